package service

import (
	"context"
	"log"
	"sync"
	"time"

	"stockcount-api/internal/model"
)

// Syncer runs one full synchronization.
type Syncer interface {
	Sync(ctx context.Context) model.SyncResult
}

// SchedulerConfig holds configuration for the sync scheduler.
type SchedulerConfig struct {
	// Interval is how often a sync runs.
	Interval time.Duration

	// InitialDelay is the wait before the first run after Start.
	// Default: 5 seconds
	InitialDelay time.Duration
}

// SyncScheduler runs periodic synchronizations in the background.
type SyncScheduler struct {
	syncer    Syncer
	config    SchedulerConfig
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex

	lastResult *model.SyncResult
}

// NewSyncScheduler creates a new sync scheduler.
func NewSyncScheduler(syncer Syncer, config SchedulerConfig) *SyncScheduler {
	if config.Interval <= 0 {
		config.Interval = 15 * time.Minute
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 5 * time.Second
	}

	return &SyncScheduler{
		syncer: syncer,
		config: config,
		stopCh: make(chan struct{}),
	}
}

// Start begins the scheduler.
func (s *SyncScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	log.Printf("[SyncScheduler] Started - Interval: %v", s.config.Interval)

	// Run initial sync after a short delay
	go func() {
		select {
		case <-time.After(s.config.InitialDelay):
			s.runSync()
		case <-s.stopCh:
		}
	}()

	go s.run()
}

// run is the main scheduler loop.
func (s *SyncScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runSync()
		case <-s.stopCh:
			log.Printf("[SyncScheduler] Stopped")
			return
		}
	}
}

// runSync performs one synchronization.
func (s *SyncScheduler) runSync() {
	result := s.syncer.Sync(context.Background())

	s.mu.Lock()
	s.lastResult = &result
	s.mu.Unlock()

	if !result.Success {
		log.Printf("[SyncScheduler] Sync finished with failures: %s", result.Summary)
	}
}

// LastResult returns the outcome of the most recent scheduled run.
func (s *SyncScheduler) LastResult() (model.SyncResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastResult == nil {
		return model.SyncResult{}, false
	}
	return *s.lastResult, true
}

// Stop stops the scheduler.
func (s *SyncScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}

// RunNow triggers an immediate synchronization.
func (s *SyncScheduler) RunNow() model.SyncResult {
	s.runSync()
	result, _ := s.LastResult()
	return result
}
