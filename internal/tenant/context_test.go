package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestWithMerchantRejectsNil(t *testing.T) {
	_, err := WithMerchant(context.Background(), uuid.Nil)
	if err != ErrNilMerchant {
		t.Errorf("WithMerchant(Nil) error = %v, expected ErrNilMerchant", err)
	}
}

func TestMerchantIDRoundTrip(t *testing.T) {
	id := uuid.New()
	ctx, err := WithMerchant(context.Background(), id)
	if err != nil {
		t.Fatalf("WithMerchant: %v", err)
	}

	got, ok := MerchantID(ctx)
	if !ok {
		t.Fatal("MerchantID reported no merchant on a bound context")
	}
	if got != id {
		t.Errorf("MerchantID = %s, expected %s", got, id)
	}
}

func TestMerchantIDFailsSoft(t *testing.T) {
	// Empty context
	if id, ok := MerchantID(context.Background()); ok || id != uuid.Nil {
		t.Errorf("MerchantID on empty context = (%s, %v), expected (Nil, false)", id, ok)
	}

	// Malformed value under the key must yield (Nil, false), never panic
	ctx := context.WithValue(context.Background(), merchantIDKey, "not-a-uuid")
	if id, ok := MerchantID(ctx); ok || id != uuid.Nil {
		t.Errorf("MerchantID on malformed context = (%s, %v), expected (Nil, false)", id, ok)
	}
}

func TestIsAdmin(t *testing.T) {
	if IsAdmin(context.Background()) {
		t.Error("empty context should not be admin")
	}
	if !IsAdmin(WithAdmin(context.Background())) {
		t.Error("WithAdmin context should be admin")
	}

	// Malformed admin flag fails soft
	ctx := context.WithValue(context.Background(), adminKey, "yes")
	if IsAdmin(ctx) {
		t.Error("malformed admin flag should not grant admin")
	}
}

func TestContextsAreIndependent(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	ctxA, _ := WithMerchant(context.Background(), a)
	ctxB, _ := WithMerchant(context.Background(), b)

	gotA, _ := MerchantID(ctxA)
	gotB, _ := MerchantID(ctxB)
	if gotA == gotB {
		t.Error("distinct merchant contexts must not observe each other's identity")
	}
	if IsAdmin(ctxA) || IsAdmin(ctxB) {
		t.Error("merchant contexts must not be admin by default")
	}
}
