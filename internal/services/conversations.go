package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/farellandr/homerental/internal/apperrors"
	"github.com/farellandr/homerental/internal/auth"
	"github.com/farellandr/homerental/internal/models"
)

const maxMessageLength = 5000

type ConversationService struct {
	*base
	notifier Notifier
}

// MessageEvent is what live clients receive when a message arrives.
type MessageEvent struct {
	Type         string         `json:"type"`
	Conversation uuid.UUID      `json:"conversation_id"`
	Message      models.Message `json:"message"`
}

// Start returns the tenant's conversation with the owner about a property,
// creating it on first contact.
func (s *ConversationService) Start(ctx context.Context, p auth.Principal, propertyID uuid.UUID, firstMessage string) (*models.Conversation, error) {
	const op = "ConversationService.Start"
	if !auth.IsTenant(p) {
		return nil, apperrors.New(apperrors.ErrAuthorization, op, "Only tenants can start a conversation about a property.")
	}

	db := s.db.WithContext(ctx)
	property, err := loadProperty(db, op, propertyID)
	if err != nil {
		return nil, err
	}
	visible, err := canView(db, &p, property, s.now())
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, apperrors.NotFound(op, "Property")
	}
	if property.OwnerID == p.ID {
		return nil, apperrors.Validation(op, "You cannot message yourself.")
	}

	candidate := models.Conversation{PropertyID: propertyID, TenantID: p.ID, OwnerID: property.OwnerID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&candidate).Error; err != nil {
		return nil, err
	}
	var conversation models.Conversation
	err = db.Where("property_id = ? AND tenant_id = ? AND owner_id = ?", propertyID, p.ID, property.OwnerID).
		First(&conversation).Error
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(firstMessage) != "" {
		if _, err := s.Send(ctx, p, conversation.ID, firstMessage); err != nil {
			return nil, err
		}
	}
	return &conversation, nil
}

func (s *ConversationService) participant(tx *gorm.DB, op string, p auth.Principal, conversationID uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := tx.First(&conversation, "id = ?", conversationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(op, "Conversation")
		}
		return nil, err
	}
	if !conversation.HasParticipant(p.ID) {
		return nil, apperrors.Authorization(op)
	}
	return &conversation, nil
}

func (s *ConversationService) Send(ctx context.Context, p auth.Principal, conversationID uuid.UUID, content string) (*models.Message, error) {
	const op = "ConversationService.Send"
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > maxMessageLength {
		return nil, apperrors.Validation(op, "Message must be between 1 and 5000 characters.")
	}

	var message models.Message
	var conversation *models.Conversation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		conversation, err = s.participant(tx, op, p, conversationID)
		if err != nil {
			return err
		}
		now := s.now()
		message = models.Message{
			ConversationID: conversationID,
			SenderID:       p.ID,
			Content:        content,
			CreatedAt:      now,
		}
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).Where("id = ?", conversationID).Update("updated_at", now).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(conversation.Other(p.ID), MessageEvent{Type: "message", Conversation: conversationID, Message: message})
	return &message, nil
}

// Open returns the thread oldest first and marks the other party's messages read.
func (s *ConversationService) Open(ctx context.Context, p auth.Principal, conversationID uuid.UUID) ([]models.Message, error) {
	const op = "ConversationService.Open"
	db := s.db.WithContext(ctx)
	if _, err := s.participant(db, op, p, conversationID); err != nil {
		return nil, err
	}

	err := db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, p.ID, false).
		Update("is_read", true).Error
	if err != nil {
		return nil, err
	}

	var messages []models.Message
	err = db.Where("conversation_id = ?", conversationID).Order("created_at ASC").Order("id ASC").Find(&messages).Error
	return messages, err
}

type InboxEntry struct {
	models.Conversation
	Unread      int64           `json:"unread"`
	LastMessage *models.Message `json:"last_message,omitempty"`
}

// Inbox lists the principal's conversations, most recently active first.
func (s *ConversationService) Inbox(ctx context.Context, p auth.Principal) ([]InboxEntry, error) {
	db := s.db.WithContext(ctx)

	var conversations []models.Conversation
	err := db.Where("tenant_id = ? OR owner_id = ?", p.ID, p.ID).Order("updated_at DESC").Find(&conversations).Error
	if err != nil || len(conversations) == 0 {
		return []InboxEntry{}, err
	}

	ids := make([]uuid.UUID, 0, len(conversations))
	for _, c := range conversations {
		ids = append(ids, c.ID)
	}

	var counts []struct {
		ConversationID uuid.UUID
		Unread         int64
	}
	err = db.Model(&models.Message{}).
		Select("conversation_id, COUNT(*) AS unread").
		Where("conversation_id IN ? AND sender_id <> ? AND is_read = ?", ids, p.ID, false).
		Group("conversation_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	unread := make(map[uuid.UUID]int64, len(counts))
	for _, c := range counts {
		unread[c.ConversationID] = c.Unread
	}

	entries := make([]InboxEntry, 0, len(conversations))
	for _, c := range conversations {
		entry := InboxEntry{Conversation: c, Unread: unread[c.ID]}
		var last models.Message
		err := db.Where("conversation_id = ?", c.ID).Order("created_at DESC").Order("id DESC").Limit(1).Find(&last).Error
		if err != nil {
			return nil, err
		}
		if last.ID != 0 {
			entry.LastMessage = &last
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
