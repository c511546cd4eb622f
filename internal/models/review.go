package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is unique per (property, reviewer); posting again edits it.
type Review struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	PropertyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_property_reviewer,priority:1" json:"property_id"`
	ReviewerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_property_reviewer,priority:2;index" json:"reviewer_id"`
	Rating     int       `gorm:"not null;check:chk_reviews_rating,rating >= 1 AND rating <= 5" json:"rating"`
	Comment    string    `gorm:"type:text" json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (review *Review) BeforeCreate(tx *gorm.DB) (err error) {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	return
}

// Wishlist is unique per (tenant, property).
type Wishlist struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_tenant_property,priority:1" json:"tenant_id"`
	PropertyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_tenant_property,priority:2;index" json:"property_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (wishlist *Wishlist) BeforeCreate(tx *gorm.DB) (err error) {
	if wishlist.ID == uuid.Nil {
		wishlist.ID = uuid.New()
	}
	return
}
