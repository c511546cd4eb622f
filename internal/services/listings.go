package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farellandr/homerental/internal/apperrors"
	"github.com/farellandr/homerental/internal/auth"
	"github.com/farellandr/homerental/internal/entitlement"
	"github.com/farellandr/homerental/internal/models"
)

type ListingService struct {
	*base
}

type ListingInput struct {
	Title            string
	AdTitle          *string
	Description      string
	Price            decimal.Decimal
	Location         string
	PropertyType     string
	BHK              int
	Bathrooms        int
	Furnishing       models.Furnishing
	SuperBuiltArea   decimal.Decimal
	Facing           models.Facing
	BuiltYear        *int
	BachelorsAllowed bool
	TotalFloors      int
	Amenities        []string
	Plan             entitlement.Plan
}

func (in *ListingInput) validate(op string) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	in.PropertyType = strings.TrimSpace(in.PropertyType)
	switch {
	case in.Title == "" || utf8.RuneCountInString(in.Title) > 200:
		return apperrors.Validation(op, "Title is required and must be at most 200 characters.")
	case strings.TrimSpace(in.Description) == "":
		return apperrors.Validation(op, "Description is required.")
	case !in.Price.IsPositive():
		return apperrors.Validation(op, "Price must be greater than zero.")
	case in.Location == "":
		return apperrors.Validation(op, "Location is required.")
	case in.PropertyType == "":
		return apperrors.Validation(op, "Property type is required.")
	case in.BHK < 1 || in.Bathrooms < 1:
		return apperrors.Validation(op, "BHK and bathrooms must be at least 1.")
	case !in.Furnishing.Valid():
		return apperrors.Validation(op, "Unknown furnishing.")
	case !in.Facing.Valid():
		return apperrors.Validation(op, "Unknown facing.")
	case !in.SuperBuiltArea.IsPositive():
		return apperrors.Validation(op, "Super built-up area must be greater than zero.")
	case in.TotalFloors < 0:
		return apperrors.Validation(op, "Total floors cannot be negative.")
	case in.BuiltYear != nil && (*in.BuiltYear < 1800 || *in.BuiltYear > 3000):
		return apperrors.Validation(op, "Built year is out of range.")
	}
	if in.Plan == "" {
		in.Plan = entitlement.Basic
	}
	if !in.Plan.Valid() {
		return apperrors.Validation(op, "Unknown plan.")
	}
	return nil
}

func (in *ListingInput) apply(property *models.Property) {
	property.Title = in.Title
	property.AdTitle = in.AdTitle
	property.Description = in.Description
	property.Price = in.Price
	property.Location = in.Location
	property.PropertyType = in.PropertyType
	property.BHK = in.BHK
	property.Bathrooms = in.Bathrooms
	property.Furnishing = in.Furnishing
	property.SuperBuiltArea = in.SuperBuiltArea
	property.Facing = in.Facing
	property.BuiltYear = in.BuiltYear
	property.BachelorsAllowed = in.BachelorsAllowed
	property.TotalFloors = in.TotalFloors
	property.SetAmenities(in.Amenities)
}

func (s *ListingService) Create(ctx context.Context, p auth.Principal, in ListingInput) (*models.Property, error) {
	const op = "ListingService.Create"
	if !auth.IsOwner(p) && !auth.IsAdmin(p) {
		return nil, apperrors.New(apperrors.ErrAuthorization, op, "Only owners can list properties.")
	}
	if err := in.validate(op); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	decision, err := canActivate(db, p.ID, in.Plan, uuid.Nil, s.now())
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, apperrors.New(apperrors.ErrEntitlementExceeded, op, decision.Reason)
	}

	property := models.Property{
		OwnerID:  p.ID,
		Status:   models.StatusPendingApproval,
		IsPaid:   false,
		PlanType: in.Plan,
	}
	in.apply(&property)
	if err := db.Create(&property).Error; err != nil {
		return nil, err
	}
	logf(op, "owner %s created property %s on plan %s", p.ID, property.ID, property.PlanType)
	return &property, nil
}

// Get returns a property if viewer may see it. viewer is nil for anonymous
// requests; hidden listings are reported as not found.
func (s *ListingService) Get(ctx context.Context, viewer *auth.Principal, id uuid.UUID) (*models.Property, error) {
	const op = "ListingService.Get"
	db := s.db.WithContext(ctx)
	property, err := loadProperty(db.Preload("Images"), op, id)
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
	return property, nil
}

// GetManaged returns a property the principal may mutate.
func (s *ListingService) GetManaged(ctx context.Context, p auth.Principal, id uuid.UUID) (*models.Property, error) {
	return loadManaged(s.db.WithContext(ctx), "ListingService.GetManaged", p, id, s.now())
}

func (s *ListingService) Update(ctx context.Context, p auth.Principal, id uuid.UUID, in ListingInput) (*models.Property, error) {
	const op = "ListingService.Update"
	if err := in.validate(op); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	property, err := loadManaged(db, op, p, id, s.now())
	if err != nil {
		return nil, err
	}
	in.apply(property)

	err = db.Model(property).Select(
		"title", "ad_title", "description", "price", "location", "property_type", "bhk",
		"bathrooms", "furnishing", "super_built_area", "facing", "built_year",
		"bachelors_allowed", "total_floors", "amenities", "updated_at",
	).Updates(property).Error
	if err != nil {
		return nil, err
	}
	s.invalidateListings(ctx, op)
	return property, nil
}

func (s *ListingService) Delete(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	const op = "ListingService.Delete"
	var refs []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := loadManaged(tx, op, p, id, s.now()); err != nil {
			return err
		}
		var err error
		refs, err = deletePropertyCascade(tx, id)
		return err
	})
	if err != nil {
		return err
	}
	s.media.Remove(refs...)
	s.invalidateListings(ctx, op)
	logf(op, "property %s deleted by %s", id, p.ID)
	return nil
}

func (s *ListingService) AttachImage(ctx context.Context, p auth.Principal, propertyID uuid.UUID, blobRef string) (*models.PropertyImage, error) {
	const op = "ListingService.AttachImage"
	if strings.TrimSpace(blobRef) == "" {
		return nil, apperrors.Validation(op, "Image reference is required.")
	}
	db := s.db.WithContext(ctx)
	if _, err := loadManaged(db, op, p, propertyID, s.now()); err != nil {
		return nil, err
	}

	image := models.PropertyImage{PropertyID: propertyID, BlobRef: blobRef}
	if err := db.Create(&image).Error; err != nil {
		return nil, err
	}
	s.invalidateListings(ctx, op)
	return &image, nil
}

func (s *ListingService) DeleteImage(ctx context.Context, p auth.Principal, propertyID, imageID uuid.UUID) error {
	const op = "ListingService.DeleteImage"
	db := s.db.WithContext(ctx)
	if _, err := loadManaged(db, op, p, propertyID, s.now()); err != nil {
		return err
	}

	var image models.PropertyImage
	if err := db.First(&image, "id = ? AND property_id = ?", imageID, propertyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound(op, "Image")
		}
		return err
	}
	if err := db.Delete(&image).Error; err != nil {
		return err
	}
	s.media.Remove(image.BlobRef)
	s.invalidateListings(ctx, op)
	return nil
}

type OwnerListing struct {
	models.Property
	PlanActive    bool                  `json:"plan_active"`
	DaysRemaining int                   `json:"days_remaining"`
	PaymentStatus *models.PaymentStatus `json:"payment_status,omitempty"`
}

// ListForOwner is the owner dashboard: every listing in every state.
func (s *ListingService) ListForOwner(ctx context.Context, p auth.Principal) ([]OwnerListing, error) {
	db := s.db.WithContext(ctx)

	var properties []models.Property
	if err := db.Preload("Images").Where("owner_id = ?", p.ID).Order("created_at DESC").Find(&properties).Error; err != nil {
		return nil, err
	}

	var payments []models.Payment
	if err := db.Select("property_id", "status").Where("owner_id = ?", p.ID).Find(&payments).Error; err != nil {
		return nil, err
	}
	statuses := make(map[uuid.UUID]models.PaymentStatus, len(payments))
	for _, payment := range payments {
		statuses[payment.PropertyID] = payment.Status
	}

	now := s.now()
	listings := make([]OwnerListing, 0, len(properties))
	for _, property := range properties {
		listing := OwnerListing{
			Property:      property,
			PlanActive:    property.IsPaid && property.IsPlanActive(now),
			DaysRemaining: property.DaysRemaining(now),
		}
		if status, ok := statuses[property.ID]; ok {
			status := status
			listing.PaymentStatus = &status
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

type SearchFilter struct {
	Location     string
	PropertyType string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	BHK          int
	Furnishing   models.Furnishing
}

func (f SearchFilter) params(page, limit int) map[string]string {
	params := map[string]string{
		"location":      strings.ToLower(strings.TrimSpace(f.Location)),
		"property_type": strings.ToLower(strings.TrimSpace(f.PropertyType)),
		"bhk":           strconv.Itoa(f.BHK),
		"furnishing":    string(f.Furnishing),
		"page":          strconv.Itoa(page),
		"limit":         strconv.Itoa(limit),
	}
	if f.MinPrice != nil {
		params["min_price"] = f.MinPrice.String()
	}
	if f.MaxPrice != nil {
		params["max_price"] = f.MaxPrice.String()
	}
	return params
}

type SearchResult struct {
	Properties []models.Property `json:"properties"`
	Pagination Page              `json:"pagination"`
}

// Search returns tenant-visible listings only, premium first then newest.
func (s *ListingService) Search(ctx context.Context, filter SearchFilter, page, limit int) (*SearchResult, error) {
	const op = "ListingService.Search"
	pg := newPage(page, limit, 0)
	params := filter.params(pg.Page, pg.Limit)
	now := s.now()

	var cached SearchResult
	cacheKey, hit, err := s.cache.Get(ctx, params, &cached)
	if err != nil {
		logf(op, "cache read failed: %v", err)
	} else if hit {
		// Plans may have lapsed since the page was cached.
		visible := cached.Properties[:0]
		for _, property := range cached.Properties {
			if property.IsPubliclyVisible(now) {
				visible = append(visible, property)
			}
		}
		cached.Properties = visible
		return &cached, nil
	}

	query := s.db.WithContext(ctx).Model(&models.Property{}).
		Where("status = ? AND is_paid = ? AND plan_expiry_date > ?", models.StatusAvailable, true, now)
	if loc := params["location"]; loc != "" {
		query = query.Where("LOWER(location) LIKE ?", "%"+loc+"%")
	}
	if pt := params["property_type"]; pt != "" {
		query = query.Where("LOWER(property_type) = ?", pt)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.BHK > 0 {
		query = query.Where("bhk = ?", filter.BHK)
	}
	if filter.Furnishing != "" {
		query = query.Where("furnishing = ?", filter.Furnishing)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var properties []models.Property
	err = query.Preload("Images").
		Order("CASE plan_type WHEN 'premium' THEN 3 WHEN 'standard' THEN 2 ELSE 1 END DESC").
		Order("created_at DESC").
		Offset(pg.Offset()).Limit(pg.Limit).
		Find(&properties).Error
	if err != nil {
		return nil, err
	}

	result := &SearchResult{Properties: properties, Pagination: newPage(pg.Page, pg.Limit, total)}
	if err := s.cache.Set(ctx, cacheKey, result); err != nil {
		logf(op, "cache write failed: %v", err)
	}
	return result, nil
}

var ownerTransitions = map[models.PropertyStatus][]models.PropertyStatus{
	models.StatusAvailable:   {models.StatusRented, models.StatusMaintenance},
	models.StatusRented:      {models.StatusAvailable},
	models.StatusMaintenance: {models.StatusAvailable},
}

// SetStatus applies an owner-side transition. Leaving PENDING is moderation's job.
func (s *ListingService) SetStatus(ctx context.Context, p auth.Principal, id uuid.UUID, status models.PropertyStatus) (*models.Property, error) {
	const op = "ListingService.SetStatus"
	if !status.Valid() {
		return nil, apperrors.Validation(op, "Unknown status.")
	}

	db := s.db.WithContext(ctx)
	now := s.now()
	property, err := loadManaged(db, op, p, id, now)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, next := range ownerTransitions[property.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperrors.Validation(op, "Cannot change status from "+string(property.Status)+" to "+string(status)+".")
	}
	if status == models.StatusAvailable && !(property.IsPaid && property.IsPlanActive(now)) {
		return nil, apperrors.Validation(op, "The listing plan has expired. Renew it before making the listing available.")
	}

	result := db.Model(&models.Property{}).
		Where("id = ? AND status = ?", id, property.Status).
		Updates(map[string]interface{}{"status": status, "updated_at": now})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.New(apperrors.ErrConflict, op, "The listing changed concurrently. Reload and retry.")
	}
	property.Status = status
	property.UpdatedAt = now
	s.invalidateListings(ctx, op)
	return property, nil
}
