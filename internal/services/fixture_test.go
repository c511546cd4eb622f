package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/farellandr/homerental/internal/auth"
	"github.com/farellandr/homerental/internal/entitlement"
	"github.com/farellandr/homerental/internal/gateway"
	"github.com/farellandr/homerental/internal/models"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingMedia struct {
	mu   sync.Mutex
	refs []string
}

func (m *recordingMedia) Remove(refs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs = append(m.refs, refs...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events map[uuid.UUID][]interface{}
}

func (n *recordingNotifier) Notify(userID uuid.UUID, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.events == nil {
		n.events = map[uuid.UUID][]interface{}{}
	}
	n.events[userID] = append(n.events[userID], payload)
}

func (n *recordingNotifier) count(userID uuid.UUID) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events[userID])
}

type fixture struct {
	t        *testing.T
	db       *gorm.DB
	clock    *testClock
	media    *recordingMedia
	notifier *recordingNotifier
	svc      *Services
}

func newFixture(t *testing.T, gw gateway.Gateway) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        clock.Now,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	f := &fixture{
		t:        t,
		db:       db,
		clock:    clock,
		media:    &recordingMedia{},
		notifier: &recordingNotifier{},
	}
	deps := Deps{
		DB:        db,
		Media:     f.media,
		Notifier:  f.notifier,
		JWTSecret: "test-secret",
		Now:       clock.Now,
	}
	if gw != nil {
		deps.Gateway = gw
	}
	f.svc = New(deps)
	return f
}

func (f *fixture) user(role models.Role) auth.Principal {
	f.t.Helper()
	user := models.User{
		Email:    fmt.Sprintf("%s-%s@example.com", role, uuid.NewString()[:8]),
		Password: "x",
		Role:     role,
	}
	if err := f.db.Create(&user).Error; err != nil {
		f.t.Fatalf("create user: %v", err)
	}
	return auth.FromUser(&user)
}

type propertyOption func(*models.Property)

func available(plan entitlement.Plan, remaining time.Duration) propertyOption {
	return func(p *models.Property) {
		expiry := p.CreatedAt.Add(remaining)
		p.Status = models.StatusAvailable
		p.IsPaid = true
		p.PlanType = plan
		p.PlanExpiryDate = &expiry
	}
}

func withStatus(status models.PropertyStatus) propertyOption {
	return func(p *models.Property) { p.Status = status }
}

func createdAt(t time.Time) propertyOption {
	return func(p *models.Property) {
		p.CreatedAt = t
		p.UpdatedAt = t
	}
}

func titled(title string) propertyOption {
	return func(p *models.Property) { p.Title = title }
}

// property inserts a listing directly. Options run in order; put createdAt first
// when combined with available.
func (f *fixture) property(owner auth.Principal, opts ...propertyOption) *models.Property {
	f.t.Helper()
	now := f.clock.Now()
	property := models.Property{
		OwnerID:        owner.ID,
		Title:          "Listing",
		Description:    "A place to live.",
		Price:          decimal.NewFromInt(15000),
		Location:       "Pune",
		PropertyType:   "Apartment",
		BHK:            2,
		Bathrooms:      1,
		Furnishing:     models.SemiFurnished,
		SuperBuiltArea: decimal.NewFromInt(900),
		Facing:         models.FacingEast,
		TotalFloors:    4,
		Status:         models.StatusPendingApproval,
		PlanType:       entitlement.Basic,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, opt := range opts {
		opt(&property)
	}
	if err := f.db.Create(&property).Error; err != nil {
		f.t.Fatalf("create property: %v", err)
	}
	return &property
}

func (f *fixture) reload(id uuid.UUID) *models.Property {
	f.t.Helper()
	var property models.Property
	if err := f.db.First(&property, "id = ?", id).Error; err != nil {
		f.t.Fatalf("reload property %s: %v", id, err)
	}
	return &property
}

func (f *fixture) count(model interface{}, query string, args ...interface{}) int64 {
	f.t.Helper()
	var n int64
	if err := f.db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		f.t.Fatalf("count: %v", err)
	}
	return n
}

func listingInput(title string, plan entitlement.Plan) ListingInput {
	return ListingInput{
		Title:            title,
		Description:      "Sea facing villa with a garden.",
		Price:            decimal.NewFromInt(45000),
		Location:         "Goa",
		PropertyType:     "Villa",
		BHK:              3,
		Bathrooms:        2,
		Furnishing:       models.FullyFurnished,
		SuperBuiltArea:   decimal.NewFromInt(1800),
		Facing:           models.FacingWest,
		BachelorsAllowed: true,
		TotalFloors:      2,
		Amenities:        []string{"Pool", " Garden ", ""},
		Plan:             plan,
	}
}
