package tenant

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Scope returns a GORM scope that injects the merchant filter from the
// context into every query it is applied to. Isolation is deny-by-default:
// a context with no merchant and no admin flag matches zero rows instead of
// failing loud, so unauthenticated callers learn nothing about existence.
func Scope(ctx context.Context) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if IsAdmin(ctx) {
			return db
		}
		if id, ok := MerchantID(ctx); ok {
			return db.Where("merchant_id = ?", id)
		}
		return db.Where("1 = 0")
	}
}

// MessageScope scopes message queries. Messages carry no merchant_id of
// their own; tenancy resolves transitively through the owning conversation,
// which is the only place scope correctness depends on the foreign-key chain.
func MessageScope(ctx context.Context) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if IsAdmin(ctx) {
			return db
		}
		if id, ok := MerchantID(ctx); ok {
			return db.Where(
				"conversation_id IN (SELECT id FROM conversations WHERE merchant_id = ?)", id)
		}
		return db.Where("1 = 0")
	}
}

// Binder binds tenant context to database sessions so that the row-level
// security policies installed by the migrations see the same identity the
// application does.
type Binder struct {
	db *gorm.DB
}

// NewBinder creates a new session binder
func NewBinder(db *gorm.DB) *Binder {
	return &Binder{db: db}
}

// WithMerchantSession runs fn inside a transaction whose database session is
// bound to the merchant. The security context is set with set_merchant_context
// and always cleared before the connection goes back to the pool, including
// on error paths; a pooled connection must never carry a previous tenant's
// context into the next unit of work.
func (b *Binder) WithMerchantSession(ctx context.Context, merchantID uuid.UUID, fn func(tx *gorm.DB) error) error {
	if merchantID == uuid.Nil {
		return ErrNilMerchant
	}
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT set_merchant_context(?)", merchantID).Error; err != nil {
			return err
		}
		defer tx.Exec("SELECT clear_security_context()")
		return fn(tx)
	})
}

// WithAdminSession runs fn inside a transaction marked as administrative,
// bypassing the row-level security policies. Same guaranteed-release
// discipline as WithMerchantSession.
func (b *Binder) WithAdminSession(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT set_admin_context(true)").Error; err != nil {
			return err
		}
		defer tx.Exec("SELECT clear_security_context()")
		return fn(tx)
	})
}
