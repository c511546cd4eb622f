package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farellandr/homerental/internal/apperrors"
	"github.com/farellandr/homerental/internal/auth"
	"github.com/farellandr/homerental/internal/models"
)

type ApplicationService struct {
	*base
}

func (s *ApplicationService) Apply(ctx context.Context, p auth.Principal, propertyID uuid.UUID, message string) (*models.RentalApplication, error) {
	const op = "ApplicationService.Apply"
	if !auth.IsTenant(p) {
		return nil, apperrors.New(apperrors.ErrAuthorization, op, "Only tenants can apply for a property.")
	}

	db := s.db.WithContext(ctx)
	property, err := loadProperty(db, op, propertyID)
	if err != nil {
		return nil, err
	}
	if !property.IsPubliclyVisible(s.now()) {
		return nil, apperrors.NotFound(op, "Property")
	}

	var open int64
	err = db.Model(&models.RentalApplication{}).
		Where("property_id = ? AND tenant_id = ? AND status IN ?", propertyID, p.ID,
			[]models.ApplicationStatus{models.ApplicationPending, models.ApplicationApproved}).
		Count(&open).Error
	if err != nil {
		return nil, err
	}
	if open > 0 {
		return nil, apperrors.New(apperrors.ErrConflict, op, "You have already applied for this property.")
	}

	application := models.RentalApplication{
		TenantID:   p.ID,
		PropertyID: propertyID,
		Status:     models.ApplicationPending,
		Message:    strings.TrimSpace(message),
	}
	if err := db.Create(&application).Error; err != nil {
		return nil, err
	}
	return &application, nil
}

// Decide approves or rejects a pending application on behalf of the owner.
func (s *ApplicationService) Decide(ctx context.Context, p auth.Principal, applicationID uuid.UUID, approve bool) (*models.RentalApplication, error) {
	const op = "ApplicationService.Decide"
	db := s.db.WithContext(ctx)

	var application models.RentalApplication
	if err := db.First(&application, "id = ?", applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(op, "Application")
		}
		return nil, err
	}
	property, err := loadProperty(db, op, application.PropertyID)
	if err != nil {
		return nil, err
	}
	if !auth.CanManage(p, property.OwnerID) {
		return nil, apperrors.Authorization(op)
	}
	if application.Status != models.ApplicationPending {
		return nil, apperrors.Validation(op, "Only pending applications can be decided.")
	}

	status := models.ApplicationRejected
	if approve {
		status = models.ApplicationApproved
	}
	result := db.Model(&models.RentalApplication{}).
		Where("id = ? AND status = ?", applicationID, models.ApplicationPending).
		Updates(map[string]interface{}{"status": status, "updated_at": s.now()})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.New(apperrors.ErrConflict, op, "The application changed concurrently. Reload and retry.")
	}
	application.Status = status
	return &application, nil
}

func (s *ApplicationService) ListMine(ctx context.Context, p auth.Principal) ([]models.RentalApplication, error) {
	var applications []models.RentalApplication
	err := s.db.WithContext(ctx).Where("tenant_id = ?", p.ID).Order("application_date DESC").Find(&applications).Error
	return applications, err
}

func (s *ApplicationService) ListForProperty(ctx context.Context, p auth.Principal, propertyID uuid.UUID) ([]models.RentalApplication, error) {
	const op = "ApplicationService.ListForProperty"
	db := s.db.WithContext(ctx)
	if _, err := loadManaged(db, op, p, propertyID, s.now()); err != nil {
		return nil, err
	}
	var applications []models.RentalApplication
	err := db.Where("property_id = ?", propertyID).Order("application_date DESC").Find(&applications).Error
	return applications, err
}

func hasApprovedApplication(tx *gorm.DB, tenantID, propertyID uuid.UUID) (bool, error) {
	var approved int64
	err := tx.Model(&models.RentalApplication{}).
		Where("property_id = ? AND tenant_id = ? AND status = ?", propertyID, tenantID, models.ApplicationApproved).
		Count(&approved).Error
	return approved > 0, err
}

type LeaseService struct {
	*base
}

type LeaseInput struct {
	PropertyID  uuid.UUID
	TenantID    uuid.UUID
	StartDate   time.Time
	EndDate     time.Time
	MonthlyRent decimal.Decimal
}

// Create records a lease for a tenant whose application was approved.
func (s *LeaseService) Create(ctx context.Context, p auth.Principal, in LeaseInput) (*models.Lease, error) {
	const op = "LeaseService.Create"
	if !in.EndDate.After(in.StartDate) {
		return nil, apperrors.Validation(op, "End date must be after start date.")
	}
	if !in.MonthlyRent.IsPositive() {
		return nil, apperrors.Validation(op, "Monthly rent must be greater than zero.")
	}

	db := s.db.WithContext(ctx)
	if _, err := loadManaged(db, op, p, in.PropertyID, s.now()); err != nil {
		return nil, err
	}
	approved, err := hasApprovedApplication(db, in.TenantID, in.PropertyID)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, apperrors.Validation(op, "The tenant has no approved application for this property.")
	}

	lease := models.Lease{
		TenantID:    in.TenantID,
		PropertyID:  in.PropertyID,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		MonthlyRent: in.MonthlyRent,
		IsActive:    true,
	}
	if err := db.Create(&lease).Error; err != nil {
		return nil, err
	}
	return &lease, nil
}

// List shows tenants their own leases, owners the leases on their listings
// and admins everything.
func (s *LeaseService) List(ctx context.Context, p auth.Principal) ([]models.Lease, error) {
	query := s.db.WithContext(ctx).Model(&models.Lease{})
	switch {
	case auth.IsAdmin(p):
	case auth.IsOwner(p):
		query = query.Where("property_id IN (?)", s.db.Model(&models.Property{}).Select("id").Where("owner_id = ?", p.ID))
	default:
		query = query.Where("tenant_id = ?", p.ID)
	}
	var leases []models.Lease
	err := query.Order("start_date DESC").Find(&leases).Error
	return leases, err
}

type MaintenanceService struct {
	*base
}

type MaintenanceInput struct {
	Title       string
	Description string
	Priority    models.MaintenancePriority
}

func (s *MaintenanceService) Create(ctx context.Context, p auth.Principal, propertyID uuid.UUID, in MaintenanceInput) (*models.MaintenanceRequest, error) {
	const op = "MaintenanceService.Create"
	if !auth.IsTenant(p) {
		return nil, apperrors.New(apperrors.ErrAuthorization, op, "Only tenants can file maintenance requests.")
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" || in.Description == "" {
		return nil, apperrors.Validation(op, "Title and description are required.")
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, apperrors.Validation(op, "Unknown priority.")
	}

	db := s.db.WithContext(ctx)
	if _, err := loadProperty(db, op, propertyID); err != nil {
		return nil, err
	}
	approved, err := hasApprovedApplication(db, p.ID, propertyID)
	if err != nil {
		return nil, err
	}
	if !approved {
		var leases int64
		if err := db.Model(&models.Lease{}).Where("property_id = ? AND tenant_id = ? AND is_active = ?", propertyID, p.ID, true).Count(&leases).Error; err != nil {
			return nil, err
		}
		if leases == 0 {
			return nil, apperrors.New(apperrors.ErrAuthorization, op, "Only tenants of this property can file maintenance requests.")
		}
	}

	request := models.MaintenanceRequest{
		TenantID:    p.ID,
		PropertyID:  propertyID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      models.MaintenanceOpen,
	}
	if err := db.Create(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// Advance moves a request forward; statuses never go back.
func (s *MaintenanceService) Advance(ctx context.Context, p auth.Principal, requestID uuid.UUID, status models.MaintenanceStatus) (*models.MaintenanceRequest, error) {
	const op = "MaintenanceService.Advance"
	if status.Step() == 0 {
		return nil, apperrors.Validation(op, "Unknown status.")
	}

	db := s.db.WithContext(ctx)
	var request models.MaintenanceRequest
	if err := db.First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(op, "Maintenance request")
		}
		return nil, err
	}
	property, err := loadProperty(db, op, request.PropertyID)
	if err != nil {
		return nil, err
	}
	if !auth.CanManage(p, property.OwnerID) {
		return nil, apperrors.Authorization(op)
	}
	if status.Step() <= request.Status.Step() {
		return nil, apperrors.Validation(op, "Maintenance requests can only move forward.")
	}

	result := db.Model(&models.MaintenanceRequest{}).
		Where("id = ? AND status = ?", requestID, request.Status).
		Updates(map[string]interface{}{"status": status, "updated_at": s.now()})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.New(apperrors.ErrConflict, op, "The request changed concurrently. Reload and retry.")
	}
	request.Status = status
	return &request, nil
}

func (s *MaintenanceService) List(ctx context.Context, p auth.Principal) ([]models.MaintenanceRequest, error) {
	query := s.db.WithContext(ctx).Model(&models.MaintenanceRequest{})
	switch {
	case auth.IsAdmin(p):
	case auth.IsOwner(p):
		query = query.Where("property_id IN (?)", s.db.Model(&models.Property{}).Select("id").Where("owner_id = ?", p.ID))
	default:
		query = query.Where("tenant_id = ?", p.ID)
	}
	var requests []models.MaintenanceRequest
	err := query.Order("created_at DESC").Find(&requests).Error
	return requests, err
}
