package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"checkin-concierge-go/internal/ledger"
	"checkin-concierge-go/internal/scheduler"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	db        *gorm.DB
	ledger    *ledger.Ledger
	scheduler *scheduler.Scheduler
}

// NewHandlers creates new HTTP handlers
func NewHandlers(db *gorm.DB, l *ledger.Ledger, s *scheduler.Scheduler) *Handlers {
	return &Handlers{db: db, ledger: l, scheduler: s}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/drafts", h.GetPendingDrafts)
		api.GET("/drafts/:id", h.GetDraft)
		api.POST("/drafts/:id/review", h.ReviewDraft)

		api.GET("/reservations/:id/requests", h.GetReservationHistory)

		api.POST("/scheduler/start", h.StartScheduler)
		api.POST("/scheduler/stop", h.StopScheduler)
		api.POST("/scheduler/run-once", h.RunOnce)
		api.GET("/scheduler/status", h.GetSchedulerStatus)
	}
}
