package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/farellandr/homerental/internal/entitlement"
)

type PropertyStatus string

const (
	StatusPendingApproval PropertyStatus = "PENDING"
	StatusAvailable       PropertyStatus = "AVAILABLE"
	StatusRented          PropertyStatus = "RENTED"
	StatusMaintenance     PropertyStatus = "MAINTENANCE"
)

func (s PropertyStatus) Valid() bool {
	switch s {
	case StatusPendingApproval, StatusAvailable, StatusRented, StatusMaintenance:
		return true
	default:
		return false
	}
}

type Furnishing string

const (
	Unfurnished    Furnishing = "UNFURNISHED"
	SemiFurnished  Furnishing = "SEMI_FURNISHED"
	FullyFurnished Furnishing = "FULLY_FURNISHED"
)

func (f Furnishing) Valid() bool {
	switch f {
	case Unfurnished, SemiFurnished, FullyFurnished:
		return true
	default:
		return false
	}
}

type Facing string

const (
	FacingNorth     Facing = "NORTH"
	FacingSouth     Facing = "SOUTH"
	FacingEast      Facing = "EAST"
	FacingWest      Facing = "WEST"
	FacingNorthEast Facing = "NORTHEAST"
	FacingNorthWest Facing = "NORTHWEST"
	FacingSouthEast Facing = "SOUTHEAST"
	FacingSouthWest Facing = "SOUTHWEST"
)

func (f Facing) Valid() bool {
	switch f {
	case FacingNorth, FacingSouth, FacingEast, FacingWest,
		FacingNorthEast, FacingNorthWest, FacingSouthEast, FacingSouthWest:
		return true
	default:
		return false
	}
}

type Property struct {
	ID               uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID          uuid.UUID        `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner            *User            `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Title            string           `gorm:"not null" json:"title"`
	AdTitle          *string          `json:"ad_title,omitempty"`
	Description      string           `gorm:"type:text;not null" json:"description"`
	Price            decimal.Decimal  `gorm:"type:numeric(10,2);not null" json:"price"`
	Location         string           `gorm:"not null;index" json:"location"`
	PropertyType     string           `gorm:"not null" json:"property_type"`
	BHK              int              `gorm:"column:bhk;not null" json:"bhk"`
	Bathrooms        int              `gorm:"not null" json:"bathrooms"`
	Furnishing       Furnishing       `gorm:"type:varchar(50);not null" json:"furnishing"`
	SuperBuiltArea   decimal.Decimal  `gorm:"type:numeric(10,2);not null" json:"super_built_area"`
	Facing           Facing           `gorm:"type:varchar(50);not null" json:"facing"`
	BuiltYear        *int             `json:"built_year,omitempty"`
	BachelorsAllowed bool             `gorm:"not null" json:"bachelors_allowed"`
	TotalFloors      int              `gorm:"not null" json:"total_floors"`
	Amenities        datatypes.JSON   `json:"amenities"`
	Status           PropertyStatus   `gorm:"type:varchar(50);not null;default:'PENDING';index" json:"status"`
	IsPaid           bool             `gorm:"not null;default:false;check:chk_properties_paid_expiry,is_paid = false OR plan_expiry_date IS NOT NULL" json:"is_paid"`
	PlanType         entitlement.Plan `gorm:"type:varchar(20);not null;default:'basic'" json:"plan_type"`
	PlanExpiryDate   *time.Time       `gorm:"index" json:"plan_expiry_date"`
	Images           []PropertyImage  `gorm:"foreignKey:PropertyID" json:"images,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (property *Property) BeforeCreate(tx *gorm.DB) (err error) {
	if property.ID == uuid.Nil {
		property.ID = uuid.New()
	}
	return
}

func (property *Property) Entitlement() entitlement.Listing {
	return entitlement.Listing{
		Plan:      property.PlanType,
		IsPaid:    property.IsPaid,
		ExpiresAt: property.PlanExpiryDate,
	}
}

func (property *Property) IsPlanActive(now time.Time) bool {
	return entitlement.IsPlanActive(property.PlanExpiryDate, now)
}

func (property *Property) DaysRemaining(now time.Time) int {
	return entitlement.DaysRemaining(property.PlanExpiryDate, now)
}

// IsPubliclyVisible is the tenant visibility rule: approved, paid and not expired.
func (property *Property) IsPubliclyVisible(now time.Time) bool {
	return property.Status == StatusAvailable && property.IsPaid && property.IsPlanActive(now)
}

func (property *Property) AmenityList() []string {
	var list []string
	if len(property.Amenities) == 0 {
		return list
	}
	if err := json.Unmarshal(property.Amenities, &list); err != nil {
		return nil
	}
	return list
}

func (property *Property) SetAmenities(list []string) {
	cleaned := make([]string, 0, len(list))
	for _, a := range list {
		if a = strings.TrimSpace(a); a != "" {
			cleaned = append(cleaned, a)
		}
	}
	data, _ := json.Marshal(cleaned)
	property.Amenities = datatypes.JSON(data)
}

// SplitAmenities parses the comma separated form used by listing forms.
func SplitAmenities(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

type PropertyImage struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	PropertyID uuid.UUID `gorm:"type:uuid;not null;index" json:"property_id"`
	BlobRef    string    `gorm:"not null" json:"blob_ref"`
	CreatedAt  time.Time `json:"created_at"`
}

func (image *PropertyImage) BeforeCreate(tx *gorm.DB) (err error) {
	if image.ID == uuid.Nil {
		image.ID = uuid.New()
	}
	return
}
