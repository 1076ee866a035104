package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zapcommerce/internal/repo"
	"zapcommerce/internal/tenant"
	"zapcommerce/internal/vault"
	"zapcommerce/internal/window"
	"zapcommerce/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Archiver stores raw delivery bodies out of band (S3)
type Archiver interface {
	ArchivePayload(merchantID, platform, eventID string, rawBody []byte) (string, error)
}

// Result reports what the ingestor did with a delivery
type Result struct {
	Duplicate bool   `json:"duplicate"`
	EventID   string `json:"event_id"`
	Messages  int    `json:"messages"`
}

// The pipeline talks to its stores through narrow interfaces. The concrete
// repositories satisfy them in production; tests substitute in-memory fakes.
type eventStore interface {
	Record(ctx context.Context, event *models.WebhookEvent) error
	MarkProcessed(ctx context.Context, platform models.Platform, eventID, archiveKey string) error
	MarkFailed(ctx context.Context, platform models.Platform, eventID string, cause error) error
}

type conversationStore interface {
	FindOrCreate(ctx context.Context, merchantID uuid.UUID, platform models.Platform, identifier string) (*models.Conversation, error)
	TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time, inbound bool) error
}

type messageStore interface {
	Create(ctx context.Context, message *models.Message) error
}

type mappingStore interface {
	ResolveMerchant(ctx context.Context, platform models.Platform, externalID string) (uuid.UUID, error)
}

type credentialStore interface {
	GetByMerchantAndPlatform(ctx context.Context, merchantID uuid.UUID, platform models.Platform) (*models.Credential, error)
}

// Ingestor is the webhook processing pipeline: resolve the merchant, verify
// the signature, record the idempotency key, then apply side effects
// (conversation, message, window) exactly once per delivery.
type Ingestor struct {
	events        eventStore
	conversations conversationStore
	messages      messageStore
	mappings      mappingStore
	credentials   credentialStore
	windows       *window.Service
	cipher        *vault.Cipher
	archiver      Archiver
	notifier      Notifier
}

// NewIngestor creates a webhook ingestor
func NewIngestor(db *gorm.DB, windows *window.Service, cipher *vault.Cipher) *Ingestor {
	return &Ingestor{
		events:        repo.NewWebhookEventRepository(db),
		conversations: repo.NewConversationRepository(db),
		messages:      repo.NewMessageRepository(db),
		mappings:      repo.NewPageMappingRepository(db),
		credentials:   repo.NewCredentialRepository(db),
		windows:       windows,
		cipher:        cipher,
	}
}

// SetArchiver sets the raw-payload archiver (optional)
func (i *Ingestor) SetArchiver(a Archiver) { i.archiver = a }

// SetNotifier sets the real-time event notifier (optional)
func (i *Ingestor) SetNotifier(n Notifier) { i.notifier = n }

// ErrUnknownPage is returned when no merchant mapping exists for the
// delivery's page or business phone
var ErrUnknownPage = errors.New("no merchant mapped for webhook page")

// ResolveMerchant maps the delivery's external page id to a merchant
func (i *Ingestor) ResolveMerchant(ctx context.Context, platform models.Platform, pageExternalID string) (uuid.UUID, error) {
	merchantID, err := i.mappings.ResolveMerchant(ctx, platform, pageExternalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, ErrUnknownPage
	}
	return merchantID, err
}

// VerifyDelivery checks the HMAC signature against the merchant's stored app
// secret for the platform
func (i *Ingestor) VerifyDelivery(ctx context.Context, merchantID uuid.UUID, platform models.Platform, rawBody []byte, signatureHeader string) error {
	credential, err := i.credentials.GetByMerchantAndPlatform(ctx, merchantID, platform)
	if err != nil {
		return fmt.Errorf("no active credential for merchant: %w", err)
	}

	appSecret, err := i.cipher.Decrypt(credential.AppSecretEncrypted)
	if err != nil {
		return fmt.Errorf("failed to open app secret: %w", err)
	}

	return VerifySignature(rawBody, signatureHeader, appSecret)
}

// Ingest processes one verified delivery. Duplicate deliveries are detected
// by the (platform, event_id) idempotency key before any side effect runs,
// so at-least-once delivery from the platform collapses to exactly-once
// processing here.
func (i *Ingestor) Ingest(ctx context.Context, merchantID uuid.UUID, platform models.Platform, rawBody []byte) (Result, error) {
	// The delivery is unauthenticated; merchant identity was resolved from
	// the page mapping, so bind it here for every scoped query downstream
	ctx, err := tenant.WithMerchant(ctx, merchantID)
	if err != nil {
		return Result{}, err
	}

	eventID := ComputeEventID(merchantID, rawBody)

	event := &models.WebhookEvent{
		BaseMerchantModel: models.BaseMerchantModel{MerchantID: merchantID},
		Platform:          platform,
		EventID:           eventID,
		EventType:         "message",
		Payload:           string(rawBody),
	}
	if err := i.events.Record(ctx, event); err != nil {
		if errors.Is(err, repo.ErrDuplicateEvent) {
			log.Info().
				Str("merchant_id", merchantID.String()).
				Str("event_id", eventID).
				Msg("Duplicate webhook delivery short-circuited")
			return Result{Duplicate: true, EventID: eventID}, nil
		}
		return Result{}, err
	}

	inbound, err := ParseInbound(platform, rawBody)
	if err != nil {
		if markErr := i.events.MarkFailed(ctx, platform, eventID, err); markErr != nil {
			log.Error().Err(markErr).Str("event_id", eventID).Msg("Failed to record webhook failure")
		}
		return Result{}, err
	}

	for _, msg := range inbound {
		if err := i.applyInbound(ctx, merchantID, eventID, event.ID, msg); err != nil {
			if markErr := i.events.MarkFailed(ctx, platform, eventID, err); markErr != nil {
				log.Error().Err(markErr).Str("event_id", eventID).Msg("Failed to record webhook failure")
			}
			return Result{}, err
		}
	}

	// The archive key must be known before the processed stamp so both land
	// in the same update; archival failure degrades to an unkeyed record
	var archiveKey string
	if i.archiver != nil {
		if key, archiveErr := i.archiver.ArchivePayload(merchantID.String(), platform.String(), eventID, rawBody); archiveErr != nil {
			log.Warn().Err(archiveErr).Str("event_id", eventID).Msg("Failed to archive webhook payload")
		} else {
			archiveKey = key
			event.ArchiveKey = key
		}
	}

	if err := i.events.MarkProcessed(ctx, platform, eventID, archiveKey); err != nil {
		return Result{}, err
	}

	return Result{EventID: eventID, Messages: len(inbound)}, nil
}

func (i *Ingestor) applyInbound(ctx context.Context, merchantID uuid.UUID, eventID string, eventRowID uuid.UUID, msg InboundMessage) error {
	conversation, err := i.conversations.FindOrCreate(ctx, merchantID, msg.Platform, msg.CustomerIdentifier)
	if err != nil {
		return fmt.Errorf("failed to resolve conversation: %w", err)
	}

	message := &models.Message{
		ConversationID: conversation.ID,
		Direction:      "in",
		Type:           "text",
		Content:        msg.Text,
		ExternalID:     msg.ExternalMessageID,
		WebhookEventID: &eventRowID,
	}
	if err := i.messages.Create(ctx, message); err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}

	if err := i.conversations.TouchLastMessage(ctx, conversation.ID, time.Now(), true); err != nil {
		log.Warn().Err(err).Str("conversation_id", conversation.ID.String()).Msg("Failed to touch conversation")
	}

	if _, err := i.windows.RegisterInbound(ctx, merchantID, msg.Platform, msg.CustomerIdentifier); err != nil {
		return fmt.Errorf("failed to update messaging window: %w", err)
	}

	if i.notifier != nil {
		i.notifier.BroadcastMerchantEvent(merchantID.String(), "message_received", map[string]interface{}{
			"conversation_id": conversation.ID.String(),
			"message_id":      message.ID.String(),
			"platform":        msg.Platform.String(),
			"event_id":        eventID,
		})
	}

	return nil
}
