package repo

import (
	"context"
	"errors"
	"time"

	"zapcommerce/internal/tenant"
	"zapcommerce/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WindowRepository handles message-window persistence. All counter updates
// happen inside single atomic statements; a read-modify-write round trip
// would lose increments under concurrent webhook workers.
type WindowRepository struct {
	db *gorm.DB
}

// NewWindowRepository creates a new window repository
func NewWindowRepository(db *gorm.DB) *WindowRepository {
	return &WindowRepository{db: db}
}

// Get returns the window row for the triple, or gorm.ErrRecordNotFound
func (r *WindowRepository) Get(ctx context.Context, merchantID uuid.UUID, platform models.Platform, identifier string) (*models.MessageWindow, error) {
	var window models.MessageWindow
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND platform = ? AND customer_identifier = ?",
			merchantID, platform, identifier).
		First(&window).Error
	if err != nil {
		return nil, err
	}
	return &window, nil
}

// UpsertInbound records a qualifying inbound event: insert a fresh window
// (count = 1) or, on conflict with the (merchant, platform, customer) key,
// extend the expiry and increment the inbound counter. One statement, so
// concurrent inbound events for the same customer serialize on the row and
// no increment is lost.
func (r *WindowRepository) UpsertInbound(ctx context.Context, merchantID uuid.UUID, platform models.Platform, identifier string, now time.Time, windowTTL time.Duration) (*models.MessageWindow, error) {
	expires := now.Add(windowTTL)

	window := models.MessageWindow{
		BaseMerchantModel:    models.BaseMerchantModel{MerchantID: merchantID},
		Platform:             platform,
		CustomerIdentifier:   identifier,
		WindowExpiresAt:      expires,
		MessageCountInWindow: 1,
		LastInboundAt:        now,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "merchant_id"}, {Name: "platform"}, {Name: "customer_identifier"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"window_expires_at":       expires,
				"message_count_in_window": gorm.Expr("message_windows.message_count_in_window + 1"),
				"last_inbound_at":         now,
				"updated_at":              now,
			}),
		}).
		Create(&window).Error
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, merchantID, platform, identifier)
}

// RecordMerchantResponse increments the merchant-side reply counter. Replies
// never extend the window; only customer-initiated contact does. Zero rows
// affected means no open window exists for the triple.
func (r *WindowRepository) RecordMerchantResponse(ctx context.Context, merchantID uuid.UUID, platform models.Platform, identifier string, now time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.MessageWindow{}).
		Where("merchant_id = ? AND platform = ? AND customer_identifier = ?",
			merchantID, platform, identifier).
		Where("window_expires_at > ?", now).
		Update("merchant_response_count", gorm.Expr("merchant_response_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListExpiring lists open windows for the context merchant expiring before
// the deadline, for follow-up routing
func (r *WindowRepository) ListExpiring(ctx context.Context, deadline time.Time) ([]models.MessageWindow, error) {
	var windows []models.MessageWindow
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(ctx)).
		Where("window_expires_at > ? AND window_expires_at <= ?", time.Now(), deadline).
		Order("window_expires_at ASC").
		Find(&windows).Error
	return windows, err
}

// DeleteExpiredBefore bulk-deletes windows whose expiry is past the cutoff.
// Expiry itself is evaluated at read time; this is periodic housekeeping,
// not a correctness requirement, and it is safe alongside live traffic.
func (r *WindowRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Unscoped().
		Where("window_expires_at < ?", cutoff).
		Delete(&models.MessageWindow{})
	return result.RowsAffected, result.Error
}

// IsNotFound reports whether err is the record-not-found sentinel
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
