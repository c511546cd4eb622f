package auth

import (
	"github.com/google/uuid"

	"github.com/farellandr/homerental/internal/models"
)

// Principal is the authenticated actor of a request.
type Principal struct {
	ID          uuid.UUID
	Role        models.Role
	IsSuperuser bool
}

func FromUser(user *models.User) Principal {
	return Principal{ID: user.ID, Role: user.Role, IsSuperuser: user.IsSuperuser}
}

// IsAdmin is the single admin capability check: superusers and ADMIN accounts.
func IsAdmin(p Principal) bool {
	if p.IsSuperuser {
		return true
	}
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleOwner, models.RoleTenant:
		return false
	default:
		return false
	}
}

func IsOwner(p Principal) bool {
	switch p.Role {
	case models.RoleOwner:
		return true
	case models.RoleAdmin, models.RoleTenant:
		return false
	default:
		return false
	}
}

func IsTenant(p Principal) bool {
	switch p.Role {
	case models.RoleTenant:
		return true
	case models.RoleAdmin, models.RoleOwner:
		return false
	default:
		return false
	}
}

// CanManage reports whether p may mutate a listing owned by ownerID.
func CanManage(p Principal, ownerID uuid.UUID) bool {
	if IsAdmin(p) {
		return true
	}
	return IsOwner(p) && p.ID == ownerID
}
