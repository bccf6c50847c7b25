package service

import (
	"context"
	"sync"
	"time"

	"orderscan-api/internal/repository"

	"go.uber.org/zap"
)

// CleanupConfig holds configuration for the event retention scheduler.
type CleanupConfig struct {
	// RetentionMaxAge is the age after which scan events are deleted.
	// Default: 90 days
	RetentionMaxAge time.Duration

	// CleanupInterval is how often the cleanup runs.
	// Default: 24 hours
	CleanupInterval time.Duration
}

// CleanupScheduler periodically trims old records from the scan event log.
type CleanupScheduler struct {
	repo      repository.ScanEventRepository
	config    CleanupConfig
	logger    *zap.Logger
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewCleanupScheduler creates a new cleanup scheduler.
func NewCleanupScheduler(repo repository.ScanEventRepository, config CleanupConfig, logger *zap.Logger) *CleanupScheduler {
	if config.RetentionMaxAge == 0 {
		config.RetentionMaxAge = 90 * 24 * time.Hour
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = 24 * time.Hour
	}

	return &CleanupScheduler{
		repo:   repo,
		config: config,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start begins the cleanup scheduler.
func (s *CleanupScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.CleanupInterval)
	s.mu.Unlock()

	s.logger.Info("event retention scheduler started",
		zap.Duration("interval", s.config.CleanupInterval),
		zap.Duration("max_age", s.config.RetentionMaxAge))

	// Run initial cleanup after a short delay
	go func() {
		select {
		case <-time.After(1 * time.Minute):
			s.runCleanup()
		case <-s.stopCh:
		}
	}()

	go s.run()
}

// run is the main cleanup loop.
func (s *CleanupScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runCleanup()
		case <-s.stopCh:
			s.logger.Info("event retention scheduler stopped")
			return
		}
	}
}

// runCleanup performs the actual cleanup.
func (s *CleanupScheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	deleted, err := s.repo.DeleteOlderThan(ctx, s.config.RetentionMaxAge)
	if err != nil {
		s.logger.Warn("event retention cleanup failed", zap.Error(err))
		return
	}

	if deleted > 0 {
		s.logger.Info("trimmed old scan events", zap.Int64("deleted", deleted))
	}
}

// Stop stops the cleanup scheduler.
func (s *CleanupScheduler) Stop() {
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

// RunNow triggers an immediate cleanup run.
func (s *CleanupScheduler) RunNow() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	return s.repo.DeleteOlderThan(ctx, s.config.RetentionMaxAge)
}
