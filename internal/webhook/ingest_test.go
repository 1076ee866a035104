package webhook

import (
	"context"
	"testing"
	"time"

	"zapcommerce/internal/repo"
	"zapcommerce/internal/window"
	"zapcommerce/pkg/models"

	"github.com/google/uuid"
)

type fakeEventStore struct {
	seen         map[string]bool
	processedKey string
	processed    int
	failed       int
}

func (s *fakeEventStore) Record(_ context.Context, event *models.WebhookEvent) error {
	key := event.Platform.String() + "|" + event.EventID
	if s.seen[key] {
		return repo.ErrDuplicateEvent
	}
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	s.seen[key] = true
	return nil
}

func (s *fakeEventStore) MarkProcessed(_ context.Context, _ models.Platform, _ string, archiveKey string) error {
	s.processed++
	s.processedKey = archiveKey
	return nil
}

func (s *fakeEventStore) MarkFailed(_ context.Context, _ models.Platform, _ string, _ error) error {
	s.failed++
	return nil
}

type fakeConversationStore struct {
	conversation models.Conversation
	touches      []bool
}

func (s *fakeConversationStore) FindOrCreate(_ context.Context, merchantID uuid.UUID, platform models.Platform, identifier string) (*models.Conversation, error) {
	c := s.conversation
	c.MerchantID = merchantID
	c.Platform = platform
	c.CustomerPhone = &identifier
	return &c, nil
}

func (s *fakeConversationStore) TouchLastMessage(_ context.Context, _ uuid.UUID, _ time.Time, inbound bool) error {
	s.touches = append(s.touches, inbound)
	return nil
}

type fakeMessageStore struct {
	created []*models.Message
}

func (s *fakeMessageStore) Create(_ context.Context, message *models.Message) error {
	message.ID = uuid.New()
	s.created = append(s.created, message)
	return nil
}

type fakeWindowStore struct {
	upserts int
}

func (s *fakeWindowStore) Get(context.Context, uuid.UUID, models.Platform, string) (*models.MessageWindow, error) {
	return &models.MessageWindow{WindowExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *fakeWindowStore) UpsertInbound(_ context.Context, merchantID uuid.UUID, platform models.Platform, identifier string, now time.Time, ttl time.Duration) (*models.MessageWindow, error) {
	s.upserts++
	return &models.MessageWindow{
		BaseMerchantModel:    models.BaseMerchantModel{MerchantID: merchantID},
		Platform:             platform,
		CustomerIdentifier:   identifier,
		WindowExpiresAt:      now.Add(ttl),
		MessageCountInWindow: s.upserts,
		LastInboundAt:        now,
	}, nil
}

func (s *fakeWindowStore) RecordMerchantResponse(context.Context, uuid.UUID, models.Platform, string, time.Time) error {
	return nil
}

type fakeArchiver struct {
	key   string
	calls int
}

func (a *fakeArchiver) ArchivePayload(string, string, string, []byte) (string, error) {
	a.calls++
	return a.key, nil
}

const whatsappDelivery = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"id": "entry-1",
		"changes": [{
			"value": {
				"metadata": {"display_phone_number": "5511000000000"},
				"messages": [{
					"from": "5511999998888",
					"id": "wamid.ABC",
					"timestamp": "1756400000",
					"type": "text",
					"text": {"body": "quero fazer um pedido"}
				}]
			}
		}]
	}]
}`

func newTestIngestor(events *fakeEventStore, conversations *fakeConversationStore, messages *fakeMessageStore, windows *fakeWindowStore) *Ingestor {
	return &Ingestor{
		events:        events,
		conversations: conversations,
		messages:      messages,
		windows:       window.NewService(windows),
	}
}

// A redelivered payload hashes to the same event id, so the second Ingest
// must short-circuit on the idempotency record with zero side effects.
func TestIngestRepeatedDeliveryProcessesOnce(t *testing.T) {
	events := &fakeEventStore{}
	conversations := &fakeConversationStore{}
	messages := &fakeMessageStore{}
	windows := &fakeWindowStore{}
	ingestor := newTestIngestor(events, conversations, messages, windows)

	merchantID := uuid.New()
	body := []byte(whatsappDelivery)

	first, err := ingestor.Ingest(context.Background(), merchantID, models.PlatformWhatsApp, body)
	if err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	if first.Duplicate {
		t.Error("first delivery flagged as duplicate")
	}
	if first.Messages != 1 {
		t.Errorf("first delivery processed %d messages, want 1", first.Messages)
	}

	second, err := ingestor.Ingest(context.Background(), merchantID, models.PlatformWhatsApp, body)
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if !second.Duplicate {
		t.Error("second identical delivery not flagged as duplicate")
	}
	if second.EventID != first.EventID {
		t.Errorf("event id changed across redelivery: %q then %q", first.EventID, second.EventID)
	}

	if got := len(messages.created); got != 1 {
		t.Errorf("stored %d messages, want 1", got)
	}
	if windows.upserts != 1 {
		t.Errorf("window upserted %d times, want 1", windows.upserts)
	}
	if events.processed != 1 {
		t.Errorf("event marked processed %d times, want 1", events.processed)
	}
	if events.failed != 0 {
		t.Errorf("event marked failed %d times, want 0", events.failed)
	}
}

func TestIngestMarksInboundTouch(t *testing.T) {
	events := &fakeEventStore{}
	conversations := &fakeConversationStore{}
	ingestor := newTestIngestor(events, conversations, &fakeMessageStore{}, &fakeWindowStore{})

	_, err := ingestor.Ingest(context.Background(), uuid.New(), models.PlatformWhatsApp, []byte(whatsappDelivery))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if len(conversations.touches) != 1 || !conversations.touches[0] {
		t.Errorf("inbound message touched conversation with flags %v, want one inbound touch", conversations.touches)
	}
}

// The archive key only exists after the raw body was uploaded, so it must be
// persisted by the processed stamp rather than the initial insert.
func TestIngestPersistsArchiveKey(t *testing.T) {
	events := &fakeEventStore{}
	archiver := &fakeArchiver{key: "webhooks/whatsapp/2026/08/abc.json"}
	ingestor := newTestIngestor(events, &fakeConversationStore{}, &fakeMessageStore{}, &fakeWindowStore{})
	ingestor.SetArchiver(archiver)

	_, err := ingestor.Ingest(context.Background(), uuid.New(), models.PlatformWhatsApp, []byte(whatsappDelivery))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if archiver.calls != 1 {
		t.Fatalf("archiver called %d times, want 1", archiver.calls)
	}
	if events.processedKey != archiver.key {
		t.Errorf("processed stamp carried archive key %q, want %q", events.processedKey, archiver.key)
	}
}
