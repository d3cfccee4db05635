package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"checkin-concierge-go/internal/cache"
	"checkin-concierge-go/internal/cleaner"
	"checkin-concierge-go/internal/config"
	"checkin-concierge-go/internal/db"
	"checkin-concierge-go/internal/gate"
	"checkin-concierge-go/internal/handlers"
	"checkin-concierge-go/internal/ledger"
	"checkin-concierge-go/internal/metrics"
	"checkin-concierge-go/internal/pipeline"
	"checkin-concierge-go/internal/scheduler"
	"checkin-concierge-go/internal/server"
	"checkin-concierge-go/internal/smoobu"
)

// Run initializes and starts the application
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Check-in Concierge Service")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dbConn, err := db.Init(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	m := metrics.NewMetrics()
	l := ledger.New(dbConn)

	gateway := smoobu.NewClient(cfg.Smoobu.BaseURL, cfg.Smoobu.APIKey)

	var resCache cache.ReservationCache
	switch cfg.Cache.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisAddr,
			DB:   cfg.Cache.RedisDB,
		})
		resCache = cache.NewRedisCache(client)
		logrus.Info("Using Redis for the reservation cache")
	default:
		resCache = cache.NewDBCache(dbConn)
		logrus.Info("Using the database for the reservation cache")
	}

	var (
		classifier   gate.IntentClassifier
		acknowledger gate.Acknowledger
		parser       gate.ResponseParser
		composer     gate.ReplyComposer
	)
	if cfg.Gate.Provider == "openai" {
		g := gate.NewOpenAIGate(cfg.Gate.APIKey, cfg.Gate.Model)
		classifier, acknowledger, parser, composer = g, g, g, g
		logrus.Infof("Using OpenAI gates with model %s", cfg.Gate.Model)
	} else {
		classifier = gate.NewSimulatorClassifier()
		acknowledger = gate.NewSimulatorAcknowledger()
		parser = gate.NewSimulatorParser()
		composer = gate.NewSimulatorComposer()
		logrus.Info("Using simulator gates")
	}

	var notifier cleaner.Notifier
	if cfg.Cleaner.Channel == "email" {
		notifier = cleaner.NewEmailNotifier(cfg.Cleaner)
		logrus.Infof("Using email channel for cleaner %s", cfg.Cleaner.Name)
	} else {
		notifier = cleaner.NewConsoleNotifier()
		logrus.Infof("Using console channel for cleaner %s", cfg.Cleaner.Name)
	}

	p := pipeline.New(l, classifier, acknowledger, parser, composer, notifier, cfg.Cleaner.Name)

	sched := scheduler.NewScheduler(&cfg.Poller, &cfg.Property, gateway, resCache, l, p, notifier, m)

	h := handlers.NewHandlers(dbConn, l, sched)
	router := server.SetupRouter(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	if err := notifier.Close(); err != nil {
		logrus.Errorf("Failed to close cleaner channel: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return nil
}
