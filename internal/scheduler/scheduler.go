package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"checkin-concierge-go/internal/cache"
	"checkin-concierge-go/internal/cleaner"
	"checkin-concierge-go/internal/config"
	"checkin-concierge-go/internal/ledger"
	"checkin-concierge-go/internal/metrics"
	"checkin-concierge-go/internal/models"
	"checkin-concierge-go/internal/pipeline"
	"checkin-concierge-go/internal/scanner"
	"checkin-concierge-go/internal/smoobu"
)

// Scheduler drives the periodic polling cycle: scan recent threads, run the
// latest guest message of each reservation through the pipeline, then drain
// cleaner responses. One cycle runs to completion before the next starts.
type Scheduler struct {
	cron      *cron.Cron
	entryID   cron.EntryID
	poller    *config.PollerConfig
	property  *config.PropertyConfig
	gateway   smoobu.Gateway
	scanner   *scanner.Scanner
	cache     cache.ReservationCache
	ledger    *ledger.Ledger
	pipeline  *pipeline.Pipeline
	notifier  cleaner.Notifier
	metrics   *metrics.Metrics
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.RWMutex
	// cycleMu serializes cycles: a tick or manual trigger that fires while
	// the previous cycle is still in flight is skipped, never run alongside.
	cycleMu sync.Mutex
}

// NewScheduler creates a new scheduler
func NewScheduler(
	poller *config.PollerConfig,
	property *config.PropertyConfig,
	gateway smoobu.Gateway,
	resCache cache.ReservationCache,
	l *ledger.Ledger,
	p *pipeline.Pipeline,
	notifier cleaner.Notifier,
	m *metrics.Metrics,
) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		poller:   poller,
		property: property,
		gateway:  gateway,
		scanner:  scanner.New(gateway),
		cache:    resCache,
		ledger:   l,
		pipeline: p,
		notifier: notifier,
		metrics:  m,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	schedule := fmt.Sprintf("@every %ds", s.poller.IntervalSeconds)

	entryID, err := s.cron.AddFunc(schedule, s.pollOnce)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d seconds", s.poller.IntervalSeconds)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	// Cancel context to stop any running operations
	s.cancel()

	ctx := s.cron.Stop()

	// Wait for the in-flight cycle to complete
	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// pollOnce is the cron entry point. Cron fires each tick in its own
// goroutine, so a tick arriving while the previous cycle is still in
// flight must be dropped here to keep cycles from overlapping.
func (s *Scheduler) pollOnce() {
	if !s.cycleMu.TryLock() {
		logrus.Warn("Previous polling cycle still in flight, skipping this tick")
		return
	}
	defer s.cycleMu.Unlock()
	s.runCycle()
}

// runCycle is the main processing function. Callers hold cycleMu.
func (s *Scheduler) runCycle() {
	s.wg.Add(1)
	defer s.wg.Done()

	logrus.Info("Starting polling cycle")
	startTime := time.Now()
	s.metrics.PollCycles.Inc()

	cutoff := time.Now().Add(-time.Duration(s.poller.CutoffDays) * 24 * time.Hour)

	// A page-fetch failure stops the scan but leaves the reservations
	// collected so far to be processed.
	reservationIDs, err := s.scanner.Scan(s.ctx, cutoff)
	if err != nil {
		logrus.Errorf("Thread scan stopped early: %v", err)
	}
	logrus.Infof("Scan found %d reservations with recent activity", len(reservationIDs))

	for _, reservationID := range reservationIDs {
		if err := s.processReservation(reservationID); err != nil {
			logrus.Errorf("Failed to process reservation %d: %v", reservationID, err)
			s.metrics.ReservationFailures.Inc()
		}
	}

	s.drainCleanerResponses()
	s.updatePendingDraftsGauge()

	duration := time.Since(startTime)
	s.metrics.CycleDuration.Observe(duration.Seconds())
	logrus.Infof("Polling cycle completed in %v", duration)
}

// processReservation runs one reservation's latest guest message through
// the pipeline. Errors stay inside this reservation's boundary.
func (s *Scheduler) processReservation(reservationID int64) error {
	select {
	case <-s.ctx.Done():
		return fmt.Errorf("context cancelled")
	default:
	}

	info, err := s.lookupReservation(reservationID)
	if err != nil {
		return err
	}
	if info == nil {
		logrus.Warnf("Reservation %d not found on the platform, skipping", reservationID)
		return nil
	}

	messages, err := s.gateway.ListMessages(s.ctx, reservationID)
	if err != nil {
		return fmt.Errorf("failed to list messages: %w", err)
	}

	guestMessages := make([]models.GuestMessage, 0, len(messages))
	for _, m := range messages {
		if m.Direction == models.DirectionGuest && m.Body != "" {
			guestMessages = append(guestMessages, m)
		}
	}
	if len(guestMessages) == 0 {
		return nil
	}

	// Only the most recent guest message is classified each cycle.
	latest := guestMessages[len(guestMessages)-1]
	previous := make([]string, 0, len(guestMessages)-1)
	for _, m := range guestMessages[:len(guestMessages)-1] {
		previous = append(previous, m.Body)
	}

	convCtx := models.ConversationContext{
		ReservationID:       reservationID,
		GuestName:           info.GuestName,
		PropertyName:        info.PropertyName,
		ArrivalDate:         info.ArrivalDate,
		DepartureDate:       info.DepartureDate,
		DefaultCheckinTime:  s.property.DefaultCheckinTime,
		DefaultCheckoutTime: s.property.DefaultCheckoutTime,
		PreviousMessages:    previous,
	}

	result, err := s.pipeline.ProcessMessage(s.ctx, latest, convCtx)
	if err != nil {
		return err
	}

	switch result.Action {
	case pipeline.ActionAlreadyProcessed:
		s.metrics.MessagesSkipped.Inc()
	default:
		s.metrics.MessagesClassified.Inc()
		s.metrics.DraftsCreated.Add(float64(len(result.DraftIDs)))
		if result.Action == pipeline.ActionDraftsCreated {
			s.metrics.CleanerQueries.Inc()
		}
	}
	return nil
}

// lookupReservation reads metadata through the cache so the platform is
// asked about each booking at most once.
func (s *Scheduler) lookupReservation(reservationID int64) (*models.ReservationInfo, error) {
	cached, err := s.cache.Get(s.ctx, reservationID)
	if err != nil {
		logrus.Warnf("Reservation cache read failed for %d: %v", reservationID, err)
	}
	if cached != nil {
		s.metrics.CacheHits.Inc()
		return cached, nil
	}
	s.metrics.CacheMisses.Inc()

	info, err := s.gateway.GetReservation(s.ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reservation: %w", err)
	}
	if info == nil {
		return nil, nil
	}

	if err := s.cache.Store(s.ctx, *info); err != nil {
		logrus.Warnf("Failed to cache reservation %d: %v", reservationID, err)
	}
	return info, nil
}

// drainCleanerResponses turns waiting cleaner replies into guest-reply
// drafts. A failure here never rolls back message processing already done
// in the same cycle.
func (s *Scheduler) drainCleanerResponses() {
	responses, err := s.notifier.PollResponses(s.ctx)
	if err != nil {
		logrus.Errorf("Failed to poll cleaner responses: %v", err)
		return
	}

	for _, resp := range responses {
		result, err := s.pipeline.ProcessCleanerResponse(s.ctx, resp)
		if err != nil {
			logrus.Errorf("Failed to process cleaner response for request %s: %v", resp.RequestID, err)
			continue
		}
		s.metrics.CleanerResponses.Inc()
		s.metrics.DraftsCreated.Add(float64(len(result.DraftIDs)))
	}
}

func (s *Scheduler) updatePendingDraftsGauge() {
	drafts, err := s.ledger.GetPendingDrafts()
	if err != nil {
		logrus.Warnf("Failed to count pending drafts: %v", err)
		return
	}
	s.metrics.PendingDrafts.Set(float64(len(drafts)))
}

// RunOnce runs the polling cycle once (for manual triggering). It refuses
// to run alongside a cycle already in flight rather than queueing behind it.
func (s *Scheduler) RunOnce() error {
	if !s.cycleMu.TryLock() {
		return fmt.Errorf("a polling cycle is already in flight")
	}
	defer s.cycleMu.Unlock()

	logrus.Info("Running polling cycle once")
	s.runCycle()
	return nil
}

// GetNextRun returns the time of the next scheduled run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}

	entry := s.cron.Entry(s.entryID)
	return entry.Next
}

// GetLastRun returns the time of the last run
func (s *Scheduler) GetLastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}

	entry := s.cron.Entry(s.entryID)
	return entry.Prev
}

// Wait waits for the scheduler to stop
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
