package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/farellandr/homerental/internal/apperrors"
	"github.com/farellandr/homerental/internal/auth"
	"github.com/farellandr/homerental/internal/models"
)

type UserService struct {
	*base
	jwtSecret string
}

type RegisterInput struct {
	Email       string
	Password    string
	Name        string
	PhoneNumber string
	Role        models.Role
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	const op = "UserService.Register"
	switch in.Role {
	case models.RoleOwner, models.RoleTenant:
	case models.RoleAdmin:
		return nil, apperrors.Validation(op, "Admin accounts cannot be self-registered.")
	default:
		return nil, apperrors.Validation(op, "Invalid role.")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || len(in.Password) < 6 {
		return nil, apperrors.Validation(op, "Email and a password of at least 6 characters are required.")
	}

	db := s.db.WithContext(ctx)
	var existing int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, apperrors.New(apperrors.ErrConflict, op, "User already exists.")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:       email,
		Password:    string(hashedPassword),
		Name:        strings.TrimSpace(in.Name),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Role:        in.Role,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.New(apperrors.ErrConflict, op, "User already exists.")
		}
		return nil, err
	}
	return &user, nil
}

// Login checks credentials and issues a token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	const op = "UserService.Login"
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, apperrors.New(apperrors.ErrAuthentication, op, "Invalid credentials.")
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, apperrors.New(apperrors.ErrAuthentication, op, "Invalid credentials.")
	}

	token, err := auth.IssueToken(s.jwtSecret, user.ID, string(user.Role), s.now())
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("UserService.Get", "User")
		}
		return nil, err
	}
	return &user, nil
}

// Delete removes a user and everything they own. Admins cannot delete
// themselves.
func (s *UserService) Delete(ctx context.Context, p auth.Principal, targetID uuid.UUID) error {
	const op = "UserService.Delete"
	if !auth.IsAdmin(p) {
		return apperrors.Authorization(op)
	}

	var refs []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := reloadAdmin(tx, op, p)
		if err != nil {
			return err
		}
		if actor.ID == targetID {
			return apperrors.Validation(op, "You cannot delete your own account.")
		}

		var target models.User
		if err := tx.First(&target, "id = ?", targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound(op, "User")
			}
			return err
		}

		var propertyIDs []uuid.UUID
		if err := tx.Model(&models.Property{}).Where("owner_id = ?", targetID).Pluck("id", &propertyIDs).Error; err != nil {
			return err
		}
		for _, id := range propertyIDs {
			removed, err := deletePropertyCascade(tx, id)
			if err != nil {
				return err
			}
			refs = append(refs, removed...)
		}

		conversations := tx.Model(&models.Conversation{}).Select("id").Where("tenant_id = ? OR owner_id = ?", targetID, targetID)
		if err := tx.Where("conversation_id IN (?) OR sender_id = ?", conversations, targetID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ? OR owner_id = ?", targetID, targetID).Delete(&models.Conversation{}).Error; err != nil {
			return err
		}
		for _, model := range []interface{}{
			&models.RentalApplication{},
			&models.Lease{},
			&models.MaintenanceRequest{},
			&models.Wishlist{},
		} {
			if err := tx.Where("tenant_id = ?", targetID).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("reviewer_id = ?", targetID).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		return tx.Delete(&target).Error
	})
	if err != nil {
		return err
	}

	s.media.Remove(refs...)
	s.invalidateListings(ctx, op)
	logf(op, "user %s deleted by %s", targetID, p.ID)
	return nil
}

// EnsureAdmin creates the superuser account when it does not exist yet.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	const op = "UserService.EnsureAdmin"
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	db := s.db.WithContext(ctx)
	var existing int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.User{
		Email:       email,
		Password:    string(hashedPassword),
		Name:        "Administrator",
		Role:        models.RoleAdmin,
		IsSuperuser: true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	logf(op, "seeded admin account %s", email)
	return nil
}
