package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farellandr/homerental/internal/entitlement"
	"github.com/farellandr/homerental/internal/models"
)

type EntitlementService struct {
	*base
}

// CanActivate decides whether ownerID may have one more active listing on
// plan. excludeID drops one listing from the count, typically the one being
// paid for.
func (s *EntitlementService) CanActivate(ctx context.Context, ownerID uuid.UUID, plan entitlement.Plan, excludeID uuid.UUID) (entitlement.Decision, error) {
	return canActivate(s.db.WithContext(ctx), ownerID, plan, excludeID, s.now())
}

func canActivate(tx *gorm.DB, ownerID uuid.UUID, plan entitlement.Plan, excludeID uuid.UUID, now time.Time) (entitlement.Decision, error) {
	var properties []models.Property
	query := tx.Select("id", "plan_type", "is_paid", "plan_expiry_date").Where("owner_id = ?", ownerID)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Find(&properties).Error; err != nil {
		return entitlement.Decision{}, err
	}

	listings := make([]entitlement.Listing, 0, len(properties))
	for i := range properties {
		listings = append(listings, properties[i].Entitlement())
	}
	return entitlement.CanActivate(listings, plan, now), nil
}
