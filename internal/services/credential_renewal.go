package services

import (
	"context"
	"sync"
	"time"

	"zapcommerce/internal/repo"
	"zapcommerce/pkg/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// TokenRenewer exchanges an expiring platform token for a fresh one.
// Implementations call the platform's Graph API; the default configuration
// runs without one and only surfaces expiring credentials in the logs.
type TokenRenewer interface {
	Renew(ctx context.Context, credential *models.Credential) error
}

// CredentialRenewalService sweeps for credentials whose tokens expire soon
// and renews them before the webhook pipeline starts failing signature and
// send calls with dead tokens.
type CredentialRenewalService struct {
	credentials *repo.CredentialRepository
	renewer     TokenRenewer

	interval time.Duration
	horizon  time.Duration

	mutex     sync.Mutex
	isRunning bool
	stopChan  chan struct{}
}

// NewCredentialRenewalService creates a renewal service
func NewCredentialRenewalService(db *gorm.DB, renewer TokenRenewer) *CredentialRenewalService {
	return &CredentialRenewalService{
		credentials: repo.NewCredentialRepository(db),
		renewer:     renewer,
		interval:    6 * time.Hour,
		horizon:     72 * time.Hour,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the renewal sweep
func (s *CredentialRenewalService) Start(ctx context.Context) {
	s.mutex.Lock()
	if s.isRunning {
		s.mutex.Unlock()
		return
	}
	s.isRunning = true
	s.mutex.Unlock()

	log.Info().Dur("interval", s.interval).Msg("Starting credential renewal service")

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.sweep(ctx)

		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-s.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the sweep loop
func (s *CredentialRenewalService) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isRunning {
		return
	}
	s.isRunning = false
	close(s.stopChan)
}

func (s *CredentialRenewalService) sweep(ctx context.Context) {
	expiring, err := s.credentials.ListExpiring(ctx, s.horizon)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list expiring credentials")
		return
	}

	for idx := range expiring {
		credential := &expiring[idx]
		logger := log.With().
			Str("merchant_id", credential.MerchantID.String()).
			Str("platform", credential.Platform.String()).
			Logger()

		if s.renewer == nil {
			logger.Warn().Time("expires_at", *credential.TokenExpiresAt).
				Msg("Platform token expiring and no renewer configured")
			continue
		}

		if err := s.renewer.Renew(ctx, credential); err != nil {
			logger.Error().Err(err).Msg("Failed to renew platform token")
			continue
		}

		now := time.Now()
		credential.LastRenewedAt = &now
		if err := s.credentials.Upsert(ctx, credential); err != nil {
			logger.Error().Err(err).Msg("Failed to persist renewed credential")
		} else {
			logger.Info().Msg("Platform token renewed")
		}
	}
}
