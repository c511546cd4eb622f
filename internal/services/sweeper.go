package services

import (
	"context"

	"github.com/farellandr/homerental/internal/models"
)

// ExpirySweeper returns listings whose plan lapsed to pending approval.
type ExpirySweeper struct {
	*base
}

// Sweep is a single conditional update, so it is safe to run on several
// instances at once and any number of times.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int64, error) {
	const op = "ExpirySweeper.Sweep"
	now := s.now()
	result := s.db.WithContext(ctx).Model(&models.Property{}).
		Where("status = ? AND plan_expiry_date <= ?", models.StatusAvailable, now).
		Updates(map[string]interface{}{"status": models.StatusPendingApproval, "updated_at": now})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		s.invalidateListings(ctx, op)
	}
	logf(op, "%d expired listings moved to pending approval", result.RowsAffected)
	return result.RowsAffected, nil
}
