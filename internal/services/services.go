// Package services implements the marketplace operations on top of gorm.
// Every operation takes the acting principal explicitly and returns errors
// from apperrors.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farellandr/homerental/internal/apperrors"
	"github.com/farellandr/homerental/internal/auth"
	"github.com/farellandr/homerental/internal/cache"
	"github.com/farellandr/homerental/internal/gateway"
	"github.com/farellandr/homerental/internal/models"
)

// MediaCleaner removes image blobs after their rows are gone.
type MediaCleaner interface {
	Remove(refs ...string)
}

// Notifier pushes a payload to every live connection of a user.
type Notifier interface {
	Notify(userID uuid.UUID, payload interface{})
}

type noopCleaner struct{}

func (noopCleaner) Remove(refs ...string) {}

type noopNotifier struct{}

func (noopNotifier) Notify(userID uuid.UUID, payload interface{}) {}

type Deps struct {
	DB             *gorm.DB
	Gateway        gateway.Gateway
	Cache          cache.ListingCache
	Media          MediaCleaner
	Notifier       Notifier
	Currency       string
	GatewayTimeout time.Duration
	JWTSecret      string
	Now            func() time.Time
}

type Services struct {
	Users         *UserService
	Listings      *ListingService
	Entitlements  *EntitlementService
	Payments      *PaymentService
	Moderation    *ModerationService
	Applications  *ApplicationService
	Leases        *LeaseService
	Maintenance   *MaintenanceService
	Conversations *ConversationService
	Reviews       *ReviewService
	Wishlist      *WishlistService
	Sweeper       *ExpirySweeper
}

func New(deps Deps) *Services {
	if deps.Cache == nil {
		deps.Cache = cache.Noop{}
	}
	if deps.Media == nil {
		deps.Media = noopCleaner{}
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	if deps.Currency == "" {
		deps.Currency = "INR"
	}
	if deps.GatewayTimeout <= 0 {
		deps.GatewayTimeout = 10 * time.Second
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}

	base := &base{db: deps.DB, cache: deps.Cache, media: deps.Media, now: deps.Now}
	entitlements := &EntitlementService{base: base}
	return &Services{
		Users:         &UserService{base: base, jwtSecret: deps.JWTSecret},
		Listings:      &ListingService{base: base},
		Entitlements:  entitlements,
		Payments:      &PaymentService{base: base, gateway: deps.Gateway, currency: deps.Currency, timeout: deps.GatewayTimeout},
		Moderation:    &ModerationService{base: base},
		Applications:  &ApplicationService{base: base},
		Leases:        &LeaseService{base: base},
		Maintenance:   &MaintenanceService{base: base},
		Conversations: &ConversationService{base: base, notifier: deps.Notifier},
		Reviews:       &ReviewService{base: base},
		Wishlist:      &WishlistService{base: base},
		Sweeper:       &ExpirySweeper{base: base},
	}
}

// base carries what every service shares.
type base struct {
	db    *gorm.DB
	cache cache.ListingCache
	media MediaCleaner
	now   func() time.Time
}

func (b *base) invalidateListings(ctx context.Context, op string) {
	if err := b.cache.Invalidate(ctx); err != nil {
		logf(op, "failed to invalidate listing cache: %v", err)
	}
}

func loadProperty(tx *gorm.DB, op string, id uuid.UUID) (*models.Property, error) {
	var property models.Property
	if err := tx.First(&property, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(op, "Property")
		}
		return nil, err
	}
	return &property, nil
}

// loadManaged loads a property the principal may mutate. Non-managers get
// NotFound for listings they cannot see and Authorization otherwise.
func loadManaged(tx *gorm.DB, op string, p auth.Principal, id uuid.UUID, now time.Time) (*models.Property, error) {
	property, err := loadProperty(tx, op, id)
	if err != nil {
		return nil, err
	}
	if auth.CanManage(p, property.OwnerID) {
		return property, nil
	}
	visible, err := canView(tx, &p, property, now)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, apperrors.NotFound(op, "Property")
	}
	return nil, apperrors.Authorization(op)
}

// canView applies listing visibility. viewer is nil for anonymous requests.
func canView(tx *gorm.DB, viewer *auth.Principal, property *models.Property, now time.Time) (bool, error) {
	if property.IsPubliclyVisible(now) {
		return true, nil
	}
	if viewer == nil {
		return false, nil
	}
	if auth.CanManage(*viewer, property.OwnerID) {
		return true, nil
	}
	if property.Status != models.StatusRented || !auth.IsTenant(*viewer) {
		return false, nil
	}
	return hasApprovedApplication(tx, viewer.ID, property.ID)
}

// reloadAdmin re-reads the actor inside tx so a demoted or deleted admin
// cannot act on a stale token.
func reloadAdmin(tx *gorm.DB, op string, p auth.Principal) (*models.User, error) {
	var actor models.User
	if err := tx.First(&actor, "id = ?", p.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Authorization(op)
		}
		return nil, err
	}
	if !auth.IsAdmin(auth.FromUser(&actor)) {
		return nil, apperrors.Authorization(op)
	}
	return &actor, nil
}

// deletePropertyCascade removes a property and everything hanging off it
// except payments. It returns the image refs to clean up after commit.
func deletePropertyCascade(tx *gorm.DB, propertyID uuid.UUID) ([]string, error) {
	var refs []string
	if err := tx.Model(&models.PropertyImage{}).Where("property_id = ?", propertyID).Pluck("blob_ref", &refs).Error; err != nil {
		return nil, err
	}

	conversations := tx.Model(&models.Conversation{}).Select("id").Where("property_id = ?", propertyID)
	if err := tx.Where("conversation_id IN (?)", conversations).Delete(&models.Message{}).Error; err != nil {
		return nil, err
	}

	for _, model := range []interface{}{
		&models.Conversation{},
		&models.PropertyImage{},
		&models.RentalApplication{},
		&models.Lease{},
		&models.MaintenanceRequest{},
		&models.Review{},
		&models.Wishlist{},
	} {
		if err := tx.Where("property_id = ?", propertyID).Delete(model).Error; err != nil {
			return nil, err
		}
	}

	if err := tx.Delete(&models.Property{}, "id = ?", propertyID).Error; err != nil {
		return nil, err
	}
	return refs, nil
}

type Page struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func newPage(page, limit int, total int64) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return Page{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}
