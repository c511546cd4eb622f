package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farellandr/homerental/internal/entitlement"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

// Payment is the single intent/outcome row of a property. It is never
// deleted, not even with its property.
type Payment struct {
	ID               uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	PropertyID       uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex" json:"property_id"`
	OwnerID          uuid.UUID        `gorm:"type:uuid;not null;index" json:"owner_id"`
	GatewayOrderID   string           `gorm:"not null;uniqueIndex" json:"gateway_order_id"`
	GatewayPaymentID *string          `json:"gateway_payment_id,omitempty"`
	GatewaySignature *string          `json:"-"`
	CheckoutURL      string           `json:"checkout_url,omitempty"`
	Plan             entitlement.Plan `gorm:"type:varchar(20);not null" json:"plan"`
	Amount           decimal.Decimal  `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency         string           `gorm:"type:varchar(3);not null" json:"currency"`
	Status           PaymentStatus    `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	ConfirmedAt      *time.Time       `json:"confirmed_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (payment *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return
}

type PaymentEventKind string

const (
	EventIntentCreated  PaymentEventKind = "intent_created"
	EventIntentReplaced PaymentEventKind = "intent_replaced"
	EventSucceeded      PaymentEventKind = "succeeded"
	EventDuplicate      PaymentEventKind = "duplicate"
	EventFailed         PaymentEventKind = "failed"
)

// PaymentEvent is the append-only audit trail of a payment row, kept because
// the row itself is reused across retries and renewals.
type PaymentEvent struct {
	ID        uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	PaymentID uuid.UUID        `gorm:"type:uuid;not null;index" json:"payment_id"`
	OrderID   string           `gorm:"not null;index" json:"order_id"`
	Kind      PaymentEventKind `gorm:"type:varchar(30);not null" json:"kind"`
	Source    string           `gorm:"type:varchar(20)" json:"source"`
	Detail    string           `json:"detail"`
	CreatedAt time.Time        `json:"created_at"`
}

func (event *PaymentEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return
}
