package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is unique per (property, tenant, owner).
type Conversation struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	PropertyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_participants,priority:1" json:"property_id"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_participants,priority:2;index" json:"tenant_id"`
	OwnerID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_participants,priority:3;index" json:"owner_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `gorm:"index" json:"updated_at"`
}

func (conversation *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if conversation.ID == uuid.Nil {
		conversation.ID = uuid.New()
	}
	return
}

// Other returns the participant that is not userID.
func (conversation *Conversation) Other(userID uuid.UUID) uuid.UUID {
	if conversation.TenantID == userID {
		return conversation.OwnerID
	}
	return conversation.TenantID
}

func (conversation *Conversation) HasParticipant(userID uuid.UUID) bool {
	return conversation.TenantID == userID || conversation.OwnerID == userID
}

type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index" json:"conversation_id"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null;index" json:"sender_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	IsRead         bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}
