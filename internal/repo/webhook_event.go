package repo

import (
	"context"
	"errors"
	"time"

	"zapcommerce/internal/tenant"
	"zapcommerce/pkg/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicateEvent signals that a webhook delivery with the same
// (platform, event_id) key was already recorded. It is an expected,
// recoverable condition under at-least-once delivery, not a failure.
var ErrDuplicateEvent = errors.New("webhook event already processed")

// WebhookEventRepository handles webhook idempotency records
type WebhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new webhook event repository
func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Record inserts the delivery record, relying on the unique index on
// (platform, event_id) for duplicate detection. A conflicting insert
// affects zero rows and is reported as ErrDuplicateEvent so the caller can
// short-circuit without side effects; the original row is never overwritten.
func (r *WebhookEventRepository) Record(ctx context.Context, event *models.WebhookEvent) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "platform"}, {Name: "event_id"}},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDuplicateEvent
	}
	return nil
}

// MarkProcessed stamps the event once its side effects have been applied.
// The archive key rides along here because it is only known after the raw
// body was uploaded, which happens after the insert; without persisting it
// the archived payload would be unrecoverable from the database.
func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, platform models.Platform, eventID, archiveKey string) error {
	return r.db.WithContext(ctx).Model(&models.WebhookEvent{}).
		Where("platform = ? AND event_id = ?", platform, eventID).
		Updates(processedUpdates(time.Now(), archiveKey)).Error
}

// processedUpdates builds the column set for MarkProcessed
func processedUpdates(now time.Time, archiveKey string) map[string]interface{} {
	updates := map[string]interface{}{"processed_at": now}
	if archiveKey != "" {
		updates["archive_key"] = archiveKey
	}
	return updates
}

// MarkFailed records a processing failure. The error counter uses an atomic
// in-database increment so concurrent workers never lose an update.
func (r *WebhookEventRepository) MarkFailed(ctx context.Context, platform models.Platform, eventID string, cause error) error {
	return r.db.WithContext(ctx).Model(&models.WebhookEvent{}).
		Where("platform = ? AND event_id = ?", platform, eventID).
		Updates(map[string]interface{}{
			"error_count": gorm.Expr("error_count + 1"),
			"last_error":  cause.Error(),
		}).Error
}

// ListByMerchant lists recorded events for the merchant bound to the context
func (r *WebhookEventRepository) ListByMerchant(ctx context.Context, limit, offset int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(ctx)).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&events).Error
	return events, err
}

// DeleteProcessedBefore bulk-deletes processed events past the retention
// cutoff. Safe to run concurrently with normal traffic: it only touches rows
// already processed and older than the cutoff.
func (r *WebhookEventRepository) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Unscoped().
		Where("processed_at IS NOT NULL AND processed_at < ?", cutoff).
		Delete(&models.WebhookEvent{})
	return result.RowsAffected, result.Error
}
