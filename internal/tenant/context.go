package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

type contextKey int

const (
	merchantIDKey contextKey = iota
	adminKey
)

// ErrNilMerchant is returned when a caller tries to bind an empty merchant
// id. This is a precondition violation and must abort the unit of work.
var ErrNilMerchant = errors.New("merchant id must not be nil")

// WithMerchant returns a context carrying the active merchant id.
// The id travels explicitly through the call chain instead of living in
// ambient session state, so it cannot leak across pooled-connection reuse.
func WithMerchant(ctx context.Context, merchantID uuid.UUID) (context.Context, error) {
	if merchantID == uuid.Nil {
		return nil, ErrNilMerchant
	}
	return context.WithValue(ctx, merchantIDKey, merchantID), nil
}

// WithAdmin marks the context as an administrative session that bypasses
// merchant filtering
func WithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, adminKey, true)
}

// MerchantID returns the merchant bound to the context, if any.
// It fails soft: malformed or absent values yield (Nil, false), never a panic,
// because scope evaluation must not throw.
func MerchantID(ctx context.Context) (uuid.UUID, bool) {
	v := ctx.Value(merchantIDKey)
	if v == nil {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// IsAdmin reports whether the context is an administrative session
func IsAdmin(ctx context.Context) bool {
	v := ctx.Value(adminKey)
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}
