package window

import (
	"context"
	"errors"
	"time"

	"zapcommerce/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultTTL is the customer-service window duration mandated by the
// messaging platforms: a business may send free-form messages for 24 hours
// after the last customer-initiated contact.
const DefaultTTL = 24 * time.Hour

// ErrWindowClosed is returned when a merchant-side action requires an open
// window and none exists (never opened, or already expired)
var ErrWindowClosed = errors.New("messaging window is closed")

// Store is the persistence contract the service needs. Implemented by
// repo.WindowRepository.
type Store interface {
	Get(ctx context.Context, merchantID uuid.UUID, platform models.Platform, identifier string) (*models.MessageWindow, error)
	UpsertInbound(ctx context.Context, merchantID uuid.UUID, platform models.Platform, identifier string, now time.Time, ttl time.Duration) (*models.MessageWindow, error)
	RecordMerchantResponse(ctx context.Context, merchantID uuid.UUID, platform models.Platform, identifier string, now time.Time) error
}

// Service models the per-customer messaging window as a two-state machine:
// open or expired, re-entered whenever the customer writes again. Expiry is
// evaluated at read time against the stored timestamp; nothing transitions
// rows in the background.
type Service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewService creates a window service with the platform-mandated 24h TTL
func NewService(store Store) *Service {
	return &Service{store: store, ttl: DefaultTTL, now: time.Now}
}

// RegisterInbound handles a qualifying customer-initiated event: it opens a
// fresh window or extends an existing one to now + TTL and increments the
// inbound counter, atomically
func (s *Service) RegisterInbound(ctx context.Context, merchantID uuid.UUID, platform models.Platform, identifier string) (*models.MessageWindow, error) {
	return s.store.UpsertInbound(ctx, merchantID, platform, identifier, s.now(), s.ttl)
}

// RegisterReply records a merchant-side response. It requires an open
// window and never extends the expiry; only the customer resets the clock.
func (s *Service) RegisterReply(ctx context.Context, merchantID uuid.UUID, platform models.Platform, identifier string) error {
	err := s.store.RecordMerchantResponse(ctx, merchantID, platform, identifier, s.now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrWindowClosed
	}
	return err
}

// Status is the read contract messaging workers consult before sending.
// CanSend is false once now >= window_expires_at, and the remaining time is
// clamped at zero; repeated checks without new inbound activity never flip
// back to true.
func (s *Service) Status(ctx context.Context, merchantID uuid.UUID, platform models.Platform, identifier string) (models.WindowStatus, error) {
	w, err := s.store.Get(ctx, merchantID, platform, identifier)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.WindowStatus{CanSend: false, RemainingSeconds: 0}, nil
	}
	if err != nil {
		return models.WindowStatus{}, err
	}

	now := s.now()
	return models.WindowStatus{
		CanSend:          w.IsOpen(now),
		WindowExpiresAt:  w.WindowExpiresAt.UTC().Format(time.RFC3339),
		RemainingSeconds: int64(w.Remaining(now).Seconds()),
		MessageCount:     w.MessageCountInWindow,
		ResponseCount:    w.MerchantResponseCount,
	}, nil
}
