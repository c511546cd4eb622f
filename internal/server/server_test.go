package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/farellandr/homerental/internal/models"
	"github.com/farellandr/homerental/internal/realtime"
	"github.com/farellandr/homerental/internal/services"
	"github.com/farellandr/homerental/internal/storage"
)

const testSecret = "server-test-secret"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
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

	hub := realtime.NewHub()
	t.Cleanup(hub.Close)

	svc := services.New(services.Deps{DB: db, Notifier: hub, JWTSecret: testSecret})
	r := gin.New()
	setupRoutes(r, svc, storage.NewDiskStore(t.TempDir()), hub, testSecret)
	return r
}

func do(t *testing.T, r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func login(t *testing.T, r http.Handler, email, role string) string {
	t.Helper()
	w := do(t, r, http.MethodPost, "/v1/register", "", gin.H{
		"email":    email,
		"password": "secret123",
		"name":     "Test User",
		"role":     role,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", email, w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/v1/login", "", gin.H{"email": email, "password": "secret123"})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, w, &resp)
	if resp.Token == "" {
		t.Fatal("login returned an empty token")
	}
	return resp.Token
}

func sunsetVilla() gin.H {
	return gin.H{
		"title":            "Sunset Villa",
		"description":      "Three bedrooms facing the hills.",
		"price":            "25000",
		"location":         "Pune",
		"property_type":    "Villa",
		"bhk":              3,
		"bathrooms":        2,
		"furnishing":       "SEMI_FURNISHED",
		"super_built_area": "1450",
		"facing":           "EAST",
		"total_floors":     2,
		"plan_type":        "basic",
	}
}

func TestOwnerListingIsHiddenUntilApproved(t *testing.T) {
	r := newTestRouter(t)
	ownerToken := login(t, r, "owner@example.com", "owner")
	tenantToken := login(t, r, "tenant@example.com", "tenant")

	w := do(t, r, http.MethodPost, "/v1/properties", ownerToken, sunsetVilla())
	if w.Code != http.StatusCreated {
		t.Fatalf("create property: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		Property struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"property"`
	}
	decode(t, w, &created)
	if created.Property.ID == "" {
		t.Fatalf("missing property id in %s", w.Body.String())
	}
	path := "/v1/properties/" + created.Property.ID

	if w := do(t, r, http.MethodGet, path, ownerToken, nil); w.Code != http.StatusOK {
		t.Fatalf("owner get: %d %s", w.Code, w.Body.String())
	}
	if w := do(t, r, http.MethodGet, path, "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("anonymous get: %d, want 404", w.Code)
	}
	if w := do(t, r, http.MethodGet, path, tenantToken, nil); w.Code != http.StatusNotFound {
		t.Fatalf("tenant get: %d, want 404", w.Code)
	}

	var search struct {
		Properties []interface{} `json:"properties"`
	}
	w = do(t, r, http.MethodGet, "/v1/properties?location=Pune", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search: %d %s", w.Code, w.Body.String())
	}
	decode(t, w, &search)
	if len(search.Properties) != 0 {
		t.Fatalf("search returned %d unapproved listings", len(search.Properties))
	}
}

func TestTenantCannotCreateListing(t *testing.T) {
	r := newTestRouter(t)
	token := login(t, r, "tenant@example.com", "tenant")

	if w := do(t, r, http.MethodPost, "/v1/properties", token, sunsetVilla()); w.Code != http.StatusForbidden {
		t.Fatalf("tenant create: %d, want 403", w.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		method, path, token string
	}{
		{http.MethodPost, "/v1/properties", ""},
		{http.MethodGet, "/v1/me", ""},
		{http.MethodGet, "/v1/me", "not-a-token"},
		{http.MethodGet, "/v1/admin/properties/pending", ""},
		{http.MethodPost, "/v1/payments/verify", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if w := do(t, r, tt.method, tt.path, tt.token, nil); w.Code != http.StatusUnauthorized {
				t.Fatalf("status %d, want 401", w.Code)
			}
		})
	}
}

func TestRegisterRejectsAdminAndDuplicates(t *testing.T) {
	r := newTestRouter(t)
	body := gin.H{"email": "a@example.com", "password": "secret123", "role": "admin"}
	if w := do(t, r, http.MethodPost, "/v1/register", "", body); w.Code != http.StatusBadRequest {
		t.Fatalf("admin self-registration: %d, want 400", w.Code)
	}

	login(t, r, "a@example.com", "owner")
	body["role"] = "tenant"
	if w := do(t, r, http.MethodPost, "/v1/register", "", body); w.Code != http.StatusConflict {
		t.Fatalf("duplicate registration: %d, want 409", w.Code)
	}
}

func TestPublicPlansAndUnconfiguredWebhook(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/v1/plans", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("plans: %d", w.Code)
	}
	var plans struct {
		Plans []struct {
			Key       string `json:"key"`
			MaxActive int    `json:"max_active"`
		} `json:"plans"`
	}
	decode(t, w, &plans)
	if len(plans.Plans) != 3 || plans.Plans[0].Key != "basic" || plans.Plans[2].MaxActive != 10 {
		t.Fatalf("unexpected plans %+v", plans.Plans)
	}

	if w := do(t, r, http.MethodPost, "/v1/payments/webhook", "", gin.H{"event": "payment.captured"}); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("webhook without gateway: %d, want 503", w.Code)
	}
}
