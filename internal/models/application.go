package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "PENDING"
	ApplicationApproved ApplicationStatus = "APPROVED"
	ApplicationRejected ApplicationStatus = "REJECTED"
)

type RentalApplication struct {
	ID              uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	TenantID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"tenant_id"`
	PropertyID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"property_id"`
	Status          ApplicationStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	Message         string            `gorm:"type:text" json:"message"`
	ApplicationDate time.Time         `gorm:"autoCreateTime" json:"application_date"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (application *RentalApplication) BeforeCreate(tx *gorm.DB) (err error) {
	if application.ID == uuid.Nil {
		application.ID = uuid.New()
	}
	return
}

type Lease struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	PropertyID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"property_id"`
	StartDate   time.Time       `gorm:"not null" json:"start_date"`
	EndDate     time.Time       `gorm:"not null" json:"end_date"`
	MonthlyRent decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"monthly_rent"`
	IsActive    bool            `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (lease *Lease) BeforeCreate(tx *gorm.DB) (err error) {
	if lease.ID == uuid.Nil {
		lease.ID = uuid.New()
	}
	return
}

type MaintenancePriority string

const (
	PriorityLow       MaintenancePriority = "LOW"
	PriorityMedium    MaintenancePriority = "MEDIUM"
	PriorityHigh      MaintenancePriority = "HIGH"
	PriorityEmergency MaintenancePriority = "EMERGENCY"
)

func (p MaintenancePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityEmergency:
		return true
	default:
		return false
	}
}

type MaintenanceStatus string

const (
	MaintenanceOpen       MaintenanceStatus = "OPEN"
	MaintenanceInProgress MaintenanceStatus = "IN_PROGRESS"
	MaintenanceResolved   MaintenanceStatus = "RESOLVED"
)

// Step orders maintenance statuses; requests only move forward.
func (s MaintenanceStatus) Step() int {
	switch s {
	case MaintenanceOpen:
		return 1
	case MaintenanceInProgress:
		return 2
	case MaintenanceResolved:
		return 3
	default:
		return 0
	}
}

type MaintenanceRequest struct {
	ID          uuid.UUID           `gorm:"type:uuid;primary_key" json:"id"`
	TenantID    uuid.UUID           `gorm:"type:uuid;not null;index" json:"tenant_id"`
	PropertyID  uuid.UUID           `gorm:"type:uuid;not null;index" json:"property_id"`
	Title       string              `gorm:"not null" json:"title"`
	Description string              `gorm:"type:text;not null" json:"description"`
	Priority    MaintenancePriority `gorm:"type:varchar(20);not null;default:'MEDIUM'" json:"priority"`
	Status      MaintenanceStatus   `gorm:"type:varchar(20);not null;default:'OPEN'" json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (request *MaintenanceRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	return
}
