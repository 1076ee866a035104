package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zapcommerce/internal/tenant"
	"zapcommerce/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationRepository handles conversation data access
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// GetByID gets a conversation scoped to the context merchant
func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(ctx)).
		Where("id = ?", id).
		First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// FindOrCreate resolves the conversation for (merchant, platform, customer
// identifier), creating it when absent. The partial unique indexes per
// platform make the create race-safe: a concurrent insert surfaces as a
// duplicate-key error and the loser re-reads the winner's row.
func (r *ConversationRepository) FindOrCreate(ctx context.Context, merchantID uuid.UUID, platform models.Platform, identifier string) (*models.Conversation, error) {
	if identifier == "" {
		return nil, fmt.Errorf("customer identifier must not be empty")
	}

	find := func() (*models.Conversation, error) {
		var conversation models.Conversation
		err := r.db.WithContext(ctx).
			Where("merchant_id = ? AND platform = ?", merchantID, platform).
			Where(platform.IdentifierColumn()+" = ?", identifier).
			First(&conversation).Error
		if err != nil {
			return nil, err
		}
		return &conversation, nil
	}

	if conversation, err := find(); err == nil {
		return conversation, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conversation := models.Conversation{
		BaseMerchantModel: models.BaseMerchantModel{MerchantID: merchantID},
		Platform:          platform,
		Status:            "open",
	}
	if platform == models.PlatformInstagram {
		conversation.CustomerInstagram = &identifier
	} else {
		conversation.CustomerPhone = &identifier
	}

	err := r.db.WithContext(ctx).Create(&conversation).Error
	if err != nil {
		// Lost the insert race: the unique index rejected us, the thread exists now
		if existing, findErr := find(); findErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return &conversation, nil
}

// TouchLastMessage updates last-activity bookkeeping. Only inbound traffic
// grows the unread counter; the merchant's own replies must not mark the
// thread unread for the merchant.
func (r *ConversationRepository) TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time, inbound bool) error {
	return r.db.WithContext(ctx).Model(&models.Conversation{}).
		Scopes(tenant.Scope(ctx)).
		Where("id = ?", id).
		Updates(touchUpdates(at, inbound)).Error
}

// touchUpdates builds the column set for TouchLastMessage; the unread
// increment runs in-database so concurrent workers never lose an update
func touchUpdates(at time.Time, inbound bool) map[string]interface{} {
	updates := map[string]interface{}{"last_message_at": at}
	if inbound {
		updates["unread_count"] = gorm.Expr("unread_count + 1")
	}
	return updates
}

// ListByMerchant lists conversations for the context merchant with pagination
func (r *ConversationRepository) ListByMerchant(ctx context.Context, limit, offset int) (models.PaginationResult[models.Conversation], error) {
	var conversations []models.Conversation
	var total int64

	scoped := r.db.WithContext(ctx).Model(&models.Conversation{}).Scopes(tenant.Scope(ctx))
	if err := scoped.Count(&total).Error; err != nil {
		return models.PaginationResult[models.Conversation]{}, err
	}

	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(ctx)).
		Order("last_message_at DESC NULLS LAST").
		Limit(limit).Offset(offset).
		Find(&conversations).Error
	if err != nil {
		return models.PaginationResult[models.Conversation]{}, err
	}

	page := 1
	totalPages := 1
	if limit > 0 {
		page = (offset / limit) + 1
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}

	return models.PaginationResult[models.Conversation]{
		Data:       conversations,
		Total:      total,
		Page:       page,
		PerPage:    limit,
		TotalPages: totalPages,
	}, nil
}

// MessageRepository handles message data access. Messages resolve tenancy
// transitively through their conversation.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create creates a new message
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(message).Error
}

// ListByConversation lists messages for a conversation, scoped through the
// conversation's merchant
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Scopes(tenant.MessageScope(ctx)).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&messages).Error
	return messages, err
}
