package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farellandr/homerental/internal/apperrors"
	"github.com/farellandr/homerental/internal/auth"
	"github.com/farellandr/homerental/internal/models"
)

type ModerationService struct {
	*base
}

type PendingPage struct {
	Properties []models.Property `json:"properties"`
	Pagination Page              `json:"pagination"`
}

// ListPending is the admin queue: paid listings waiting for approval, oldest first.
func (s *ModerationService) ListPending(ctx context.Context, p auth.Principal, page, limit int) (*PendingPage, error) {
	const op = "ModerationService.ListPending"
	if !auth.IsAdmin(p) {
		return nil, apperrors.Authorization(op)
	}

	query := s.db.WithContext(ctx).Model(&models.Property{}).
		Where("status = ? AND is_paid = ? AND plan_expiry_date > ?", models.StatusPendingApproval, true, s.now())

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	pg := newPage(page, limit, total)

	var properties []models.Property
	err := query.Preload("Images").Preload("Owner").
		Order("created_at ASC").
		Offset(pg.Offset()).Limit(pg.Limit).
		Find(&properties).Error
	if err != nil {
		return nil, err
	}
	return &PendingPage{Properties: properties, Pagination: pg}, nil
}

func (s *ModerationService) Approve(ctx context.Context, p auth.Principal, id uuid.UUID) (*models.Property, error) {
	const op = "ModerationService.Approve"
	if !auth.IsAdmin(p) {
		return nil, apperrors.Authorization(op)
	}

	now := s.now()
	var property *models.Property
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := reloadAdmin(tx, op, p); err != nil {
			return err
		}
		var err error
		property, err = loadProperty(tx, op, id)
		if err != nil {
			return err
		}
		if property.Status != models.StatusPendingApproval {
			return apperrors.Validation(op, "Only listings pending approval can be approved.")
		}
		if !property.IsPaid || !property.IsPlanActive(now) {
			return apperrors.Validation(op, "The listing has no active paid plan.")
		}

		result := tx.Model(&models.Property{}).
			Where("id = ? AND status = ?", id, models.StatusPendingApproval).
			Updates(map[string]interface{}{"status": models.StatusAvailable, "updated_at": now})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.New(apperrors.ErrConflict, op, "The listing changed concurrently. Reload and retry.")
		}
		property.Status = models.StatusAvailable
		property.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateListings(ctx, op)
	logf(op, "property %s approved by %s", id, p.ID)
	return property, nil
}

// Reject removes a pending listing together with everything attached to it.
func (s *ModerationService) Reject(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	const op = "ModerationService.Reject"
	if !auth.IsAdmin(p) {
		return apperrors.Authorization(op)
	}

	var refs []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := reloadAdmin(tx, op, p); err != nil {
			return err
		}
		property, err := loadProperty(tx, op, id)
		if err != nil {
			return err
		}
		if property.Status != models.StatusPendingApproval {
			return apperrors.Validation(op, "Only listings pending approval can be rejected.")
		}
		refs, err = deletePropertyCascade(tx, id)
		return err
	})
	if err != nil {
		return err
	}

	s.media.Remove(refs...)
	s.invalidateListings(ctx, op)
	logf(op, "property %s rejected and removed by %s", id, p.ID)
	return nil
}
