package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/farellandr/homerental/internal/apperrors"
	"github.com/farellandr/homerental/internal/auth"
	"github.com/farellandr/homerental/internal/models"
)

type ReviewService struct {
	*base
}

// Upsert creates the reviewer's review of a property or edits it in place.
func (s *ReviewService) Upsert(ctx context.Context, p auth.Principal, propertyID uuid.UUID, rating int, comment string) (*models.Review, error) {
	const op = "ReviewService.Upsert"
	if rating < 1 || rating > 5 {
		return nil, apperrors.Validation(op, "Rating must be between 1 and 5.")
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
		return nil, apperrors.Validation(op, "You cannot review your own property.")
	}

	now := s.now()
	candidate := models.Review{
		PropertyID: propertyID,
		ReviewerID: p.ID,
		Rating:     rating,
		Comment:    strings.TrimSpace(comment),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "property_id"}, {Name: "reviewer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "updated_at"}),
	}).Create(&candidate).Error
	if err != nil {
		return nil, err
	}

	var review models.Review
	if err := db.Where("property_id = ? AND reviewer_id = ?", propertyID, p.ID).First(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (s *ReviewService) Delete(ctx context.Context, p auth.Principal, propertyID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("property_id = ? AND reviewer_id = ?", propertyID, p.ID).
		Delete(&models.Review{}).Error
}

type ReviewSummary struct {
	Reviews []models.Review `json:"reviews"`
	Count   int             `json:"count"`
	Average float64         `json:"average_rating"`
}

func (s *ReviewService) List(ctx context.Context, viewer *auth.Principal, propertyID uuid.UUID) (*ReviewSummary, error) {
	const op = "ReviewService.List"
	db := s.db.WithContext(ctx)
	property, err := loadProperty(db, op, propertyID)
	if err != nil {
		return nil, err
	}
	visible, err := canView(db, viewer, property, s.now())
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, apperrors.NotFound(op, "Property")
	}

	var reviews []models.Review
	if err := db.Where("property_id = ?", propertyID).Order("created_at DESC").Find(&reviews).Error; err != nil {
		return nil, err
	}

	summary := &ReviewSummary{Reviews: reviews, Count: len(reviews)}
	if len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		summary.Average = float64(sum) / float64(len(reviews))
	}
	return summary, nil
}

type WishlistService struct {
	*base
}

// Add is idempotent; adding twice keeps one entry.
func (s *WishlistService) Add(ctx context.Context, p auth.Principal, propertyID uuid.UUID) error {
	const op = "WishlistService.Add"
	if !auth.IsTenant(p) {
		return apperrors.New(apperrors.ErrAuthorization, op, "Only tenants have a wishlist.")
	}

	db := s.db.WithContext(ctx)
	property, err := loadProperty(db, op, propertyID)
	if err != nil {
		return err
	}
	visible, err := canView(db, &p, property, s.now())
	if err != nil {
		return err
	}
	if !visible {
		return apperrors.NotFound(op, "Property")
	}

	entry := models.Wishlist{TenantID: p.ID, PropertyID: propertyID}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error
}

// Remove succeeds whether or not the entry exists.
func (s *WishlistService) Remove(ctx context.Context, p auth.Principal, propertyID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("tenant_id = ? AND property_id = ?", p.ID, propertyID).
		Delete(&models.Wishlist{}).Error
}

type WishlistEntry struct {
	PropertyID uuid.UUID        `json:"property_id"`
	AddedAt    time.Time        `json:"added_at"`
	Visible    bool             `json:"visible"`
	Property   *models.Property `json:"property,omitempty"`
}

// List returns the tenant's saved listings. Listings that are no longer
// visible keep their entry but not their details.
func (s *WishlistService) List(ctx context.Context, p auth.Principal) ([]WishlistEntry, error) {
	db := s.db.WithContext(ctx)

	var saved []models.Wishlist
	if err := db.Where("tenant_id = ?", p.ID).Order("created_at DESC").Find(&saved).Error; err != nil {
		return nil, err
	}
	if len(saved) == 0 {
		return []WishlistEntry{}, nil
	}

	ids := make([]uuid.UUID, 0, len(saved))
	for _, w := range saved {
		ids = append(ids, w.PropertyID)
	}
	var properties []models.Property
	if err := db.Preload("Images").Where("id IN ?", ids).Find(&properties).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.Property, len(properties))
	for i := range properties {
		byID[properties[i].ID] = &properties[i]
	}

	now := s.now()
	entries := make([]WishlistEntry, 0, len(saved))
	for _, w := range saved {
		entry := WishlistEntry{PropertyID: w.PropertyID, AddedAt: w.CreatedAt}
		if property, ok := byID[w.PropertyID]; ok {
			visible, err := canView(db, &p, property, now)
			if err != nil {
				return nil, err
			}
			if visible {
				entry.Visible = true
				entry.Property = property
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
