package window

import (
	"context"
	"testing"
	"time"

	"zapcommerce/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// fakeStore mirrors the repository's atomic upsert semantics in memory
type fakeStore struct {
	windows map[string]*models.MessageWindow
}

func newFakeStore() *fakeStore {
	return &fakeStore{windows: make(map[string]*models.MessageWindow)}
}

func key(merchantID uuid.UUID, platform models.Platform, identifier string) string {
	return merchantID.String() + "|" + string(platform) + "|" + identifier
}

func (f *fakeStore) Get(_ context.Context, merchantID uuid.UUID, platform models.Platform, identifier string) (*models.MessageWindow, error) {
	w, ok := f.windows[key(merchantID, platform, identifier)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *w
	return &copied, nil
}

func (f *fakeStore) UpsertInbound(_ context.Context, merchantID uuid.UUID, platform models.Platform, identifier string, now time.Time, ttl time.Duration) (*models.MessageWindow, error) {
	k := key(merchantID, platform, identifier)
	if w, ok := f.windows[k]; ok {
		w.WindowExpiresAt = now.Add(ttl)
		w.MessageCountInWindow++
		w.LastInboundAt = now
		copied := *w
		return &copied, nil
	}
	w := &models.MessageWindow{
		BaseMerchantModel:    models.BaseMerchantModel{MerchantID: merchantID},
		Platform:             platform,
		CustomerIdentifier:   identifier,
		WindowExpiresAt:      now.Add(ttl),
		MessageCountInWindow: 1,
		LastInboundAt:        now,
	}
	f.windows[k] = w
	copied := *w
	return &copied, nil
}

func (f *fakeStore) RecordMerchantResponse(_ context.Context, merchantID uuid.UUID, platform models.Platform, identifier string, now time.Time) error {
	w, ok := f.windows[key(merchantID, platform, identifier)]
	if !ok || !now.Before(w.WindowExpiresAt) {
		return gorm.ErrRecordNotFound
	}
	w.MerchantResponseCount++
	return nil
}

func newTestService(store Store, now time.Time) (*Service, *time.Time) {
	current := now
	svc := NewService(store)
	svc.now = func() time.Time { return current }
	return svc, &current
}

func TestInboundOpensAndExtendsWindow(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	merchant := uuid.New()
	svc, clock := newTestService(newFakeStore(), t0)

	// T0: inbound opens a window expiring at T0+24h with count 1
	w, err := svc.RegisterInbound(ctx, merchant, models.PlatformWhatsApp, "5527999990000")
	if err != nil {
		t.Fatalf("RegisterInbound: %v", err)
	}
	if !w.WindowExpiresAt.Equal(t0.Add(24 * time.Hour)) {
		t.Errorf("expiry = %v, expected %v", w.WindowExpiresAt, t0.Add(24*time.Hour))
	}
	if w.MessageCountInWindow != 1 {
		t.Errorf("count = %d, expected 1", w.MessageCountInWindow)
	}

	// T0+23h: second inbound extends expiry to T0+47h and increments count
	*clock = t0.Add(23 * time.Hour)
	w, err = svc.RegisterInbound(ctx, merchant, models.PlatformWhatsApp, "5527999990000")
	if err != nil {
		t.Fatalf("RegisterInbound: %v", err)
	}
	if !w.WindowExpiresAt.Equal(t0.Add(47 * time.Hour)) {
		t.Errorf("expiry = %v, expected %v", w.WindowExpiresAt, t0.Add(47*time.Hour))
	}
	if w.MessageCountInWindow != 2 {
		t.Errorf("count = %d, expected 2", w.MessageCountInWindow)
	}
}

func TestStatusAfterExpiry(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	merchant := uuid.New()
	svc, clock := newTestService(newFakeStore(), t0)

	if _, err := svc.RegisterInbound(ctx, merchant, models.PlatformInstagram, "acme.customer"); err != nil {
		t.Fatalf("RegisterInbound: %v", err)
	}

	// T0+25h: window expired at T0+24h, can_send false, remaining clamped to 0
	*clock = t0.Add(25 * time.Hour)
	status, err := svc.Status(ctx, merchant, models.PlatformInstagram, "acme.customer")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.CanSend {
		t.Error("can_send = true after expiry")
	}
	if status.RemainingSeconds != 0 {
		t.Errorf("remaining = %d, expected 0", status.RemainingSeconds)
	}

	// Repeated checks without new inbound activity stay false
	*clock = t0.Add(48 * time.Hour)
	status, _ = svc.Status(ctx, merchant, models.PlatformInstagram, "acme.customer")
	if status.CanSend {
		t.Error("can_send flipped back to true without inbound activity")
	}
}

func TestStatusWithoutWindow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(newFakeStore(), time.Now())

	status, err := svc.Status(ctx, uuid.New(), models.PlatformWhatsApp, "5527999990000")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.CanSend || status.RemainingSeconds != 0 {
		t.Errorf("status for unknown customer = %+v, expected closed", status)
	}
}

func TestReplyDoesNotExtendWindow(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	merchant := uuid.New()
	svc, clock := newTestService(newFakeStore(), t0)

	if _, err := svc.RegisterInbound(ctx, merchant, models.PlatformWhatsApp, "5527999990000"); err != nil {
		t.Fatalf("RegisterInbound: %v", err)
	}

	*clock = t0.Add(time.Hour)
	if err := svc.RegisterReply(ctx, merchant, models.PlatformWhatsApp, "5527999990000"); err != nil {
		t.Fatalf("RegisterReply: %v", err)
	}

	status, _ := svc.Status(ctx, merchant, models.PlatformWhatsApp, "5527999990000")
	if status.ResponseCount != 1 {
		t.Errorf("response count = %d, expected 1", status.ResponseCount)
	}
	// Expiry unchanged by the reply
	expected := t0.Add(24 * time.Hour).UTC().Format(time.RFC3339)
	if status.WindowExpiresAt != expected {
		t.Errorf("expiry = %s, expected %s", status.WindowExpiresAt, expected)
	}
}

func TestReplyOnClosedWindow(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	merchant := uuid.New()
	svc, clock := newTestService(newFakeStore(), t0)

	// No window at all
	if err := svc.RegisterReply(ctx, merchant, models.PlatformWhatsApp, "5527999990000"); err != ErrWindowClosed {
		t.Errorf("reply without window error = %v, expected ErrWindowClosed", err)
	}

	// Expired window
	if _, err := svc.RegisterInbound(ctx, merchant, models.PlatformWhatsApp, "5527999990000"); err != nil {
		t.Fatalf("RegisterInbound: %v", err)
	}
	*clock = t0.Add(25 * time.Hour)
	if err := svc.RegisterReply(ctx, merchant, models.PlatformWhatsApp, "5527999990000"); err != ErrWindowClosed {
		t.Errorf("reply on expired window error = %v, expected ErrWindowClosed", err)
	}
}
