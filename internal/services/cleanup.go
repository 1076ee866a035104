package services

import (
	"context"
	"sync"
	"time"

	"zapcommerce/internal/repo"
	"zapcommerce/internal/tenant"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// CleanupService periodically removes rows that are already past their
// expiry threshold: processed webhook events beyond retention and long-dead
// message windows. The deletes are plain bulk deletes and run safely
// alongside normal traffic, since expiry is always evaluated at read time
// and nothing depends on these rows disappearing promptly.
//
// Sweeps cross merchant boundaries, so each one runs inside an admin-bound
// session; the row-level security policies would otherwise hide every row
// from an unbound connection.
type CleanupService struct {
	binder *tenant.Binder

	interval        time.Duration
	eventRetention  time.Duration
	windowRetention time.Duration

	mutex     sync.Mutex
	isRunning bool
	stopChan  chan struct{}
}

// NewCleanupService creates a cleanup service with default retention
func NewCleanupService(db *gorm.DB) *CleanupService {
	return &CleanupService{
		binder:          tenant.NewBinder(db),
		interval:        1 * time.Hour,
		eventRetention:  30 * 24 * time.Hour,
		windowRetention: 7 * 24 * time.Hour,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (s *CleanupService) Start(ctx context.Context) {
	s.mutex.Lock()
	if s.isRunning {
		s.mutex.Unlock()
		return
	}
	s.isRunning = true
	s.mutex.Unlock()

	log.Info().Dur("interval", s.interval).Msg("Starting retention cleanup service")

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.sweep(ctx)

		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-s.stopChan:
				log.Info().Msg("Stopping retention cleanup service")
				return
			case <-ctx.Done():
				log.Info().Msg("Context cancelled, stopping retention cleanup")
				return
			}
		}
	}()
}

// Stop stops the sweep loop
func (s *CleanupService) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isRunning {
		return
	}
	s.isRunning = false
	close(s.stopChan)
}

func (s *CleanupService) sweep(ctx context.Context) {
	now := time.Now()
	adminCtx := tenant.WithAdmin(ctx)

	err := s.binder.WithAdminSession(adminCtx, func(tx *gorm.DB) error {
		events := repo.NewWebhookEventRepository(tx)
		windows := repo.NewWindowRepository(tx)

		if deleted, err := events.DeleteProcessedBefore(adminCtx, now.Add(-s.eventRetention)); err != nil {
			log.Error().Err(err).Msg("Failed to delete expired webhook events")
		} else if deleted > 0 {
			log.Info().Int64("deleted", deleted).Msg("Removed webhook events past retention")
		}

		if deleted, err := windows.DeleteExpiredBefore(adminCtx, now.Add(-s.windowRetention)); err != nil {
			log.Error().Err(err).Msg("Failed to delete stale message windows")
		} else if deleted > 0 {
			log.Info().Int64("deleted", deleted).Msg("Removed stale message windows")
		}

		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("Retention sweep failed")
	}
}
