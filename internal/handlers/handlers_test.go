package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/farellandr/homerental/internal/gateway"
	"github.com/farellandr/homerental/internal/middleware"
	"github.com/farellandr/homerental/internal/mocks"
	"github.com/farellandr/homerental/internal/models"
	"github.com/farellandr/homerental/internal/services"
)

const testSecret = "handler-test-secret"

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
	svc    *services.Services
	gw     *mocks.MockGateway
}

func newTestAPI(t *testing.T) *testAPI {
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

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	gw := mocks.NewMockGateway(ctrl)
	svc := services.New(services.Deps{DB: db, Gateway: gw, JWTSecret: testSecret})

	r := gin.New()
	r.Use(middleware.ServicesMiddleware(svc))
	r.POST("/v1/payments/webhook", PaymentWebhook)
	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware(testSecret))
	{
		protected.POST("/properties", CreateProperty)
		protected.GET("/properties/:id", GetProperty)
		protected.POST("/properties/:id/payments", CreatePaymentIntent)
		protected.GET("/properties/:id/payment", GetPropertyPayment)
		protected.POST("/payments/verify", VerifyPayment)
		protected.POST("/admin/properties/:id/approve", ApproveProperty)
		protected.POST("/admin/properties/:id/reject", RejectProperty)
	}

	return &testAPI{t: t, router: r, db: db, svc: svc, gw: gw}
}

func (a *testAPI) do(method, path, token string, body []byte) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) doJSON(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		a.t.Fatalf("encode body: %v", err)
	}
	return a.do(method, path, token, data)
}

func (a *testAPI) token(email string, role models.Role) string {
	a.t.Helper()
	ctx := context.Background()
	if role == models.RoleAdmin {
		if err := a.svc.Users.EnsureAdmin(ctx, email, "secret123"); err != nil {
			a.t.Fatalf("EnsureAdmin: %v", err)
		}
	} else if _, err := a.svc.Users.Register(ctx, services.RegisterInput{Email: email, Password: "secret123", Role: role}); err != nil {
		a.t.Fatalf("Register: %v", err)
	}
	token, _, err := a.svc.Users.Login(ctx, email, "secret123")
	if err != nil {
		a.t.Fatalf("Login: %v", err)
	}
	return token
}

// pendingPayment creates a listing through the API and opens a Basic plan
// intent for it on orderID.
func (a *testAPI) pendingPayment(ownerToken, orderID string) uuid.UUID {
	a.t.Helper()
	w := a.doJSON(http.MethodPost, "/v1/properties", ownerToken, gin.H{
		"title":            "Lake View",
		"description":      "Two bedrooms by the lake.",
		"price":            "18000",
		"location":         "Pune",
		"property_type":    "Apartment",
		"bhk":              2,
		"bathrooms":        1,
		"furnishing":       "SEMI_FURNISHED",
		"super_built_area": "900",
		"facing":           "EAST",
		"total_floors":     4,
		"plan_type":        "basic",
	})
	if w.Code != http.StatusCreated {
		a.t.Fatalf("create property: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		Property struct {
			ID uuid.UUID `json:"id"`
		} `json:"property"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		a.t.Fatalf("decode property: %v", err)
	}

	a.gw.EXPECT().
		CreateOrder(gomock.Any(), int64(9900), "INR", gomock.Any()).
		Return(gateway.Order{ID: orderID, AmountMinor: 9900, Currency: "INR"}, nil)
	w = a.doJSON(http.MethodPost, "/v1/properties/"+created.Property.ID.String()+"/payments", ownerToken, gin.H{"plan_type": "basic"})
	if w.Code != http.StatusOK {
		a.t.Fatalf("create intent: %d %s", w.Code, w.Body.String())
	}
	return created.Property.ID
}

func (a *testAPI) paymentStatus(propertyID uuid.UUID) models.PaymentStatus {
	a.t.Helper()
	var payment models.Payment
	if err := a.db.First(&payment, "property_id = ?", propertyID).Error; err != nil {
		a.t.Fatalf("load payment: %v", err)
	}
	return payment.Status
}

func TestVerifyPaymentEndpoint(t *testing.T) {
	api := newTestAPI(t)
	owner := api.token("owner@example.com", models.RoleOwner)
	propertyID := api.pendingPayment(owner, "order_verify")

	if w := api.doJSON(http.MethodPost, "/v1/payments/verify", owner, gin.H{"order_id": "order_verify"}); w.Code != http.StatusBadRequest {
		t.Fatalf("incomplete body: %d, want 400", w.Code)
	}

	confirmation := gateway.Confirmation{OrderID: "order_verify", PaymentID: "pay_1", Signature: "good"}
	api.gw.EXPECT().VerifySignature(gomock.Any(), confirmation).Return(true, nil)
	w := api.doJSON(http.MethodPost, "/v1/payments/verify", owner, gin.H{
		"order_id":   "order_verify",
		"payment_id": "pay_1",
		"signature":  "good",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", w.Code, w.Body.String())
	}
	if got := api.paymentStatus(propertyID); got != models.PaymentSuccess {
		t.Fatalf("payment status %s, want SUCCESS", got)
	}

	// A replay of the same confirmation is acknowledged without a second check.
	w = api.doJSON(http.MethodPost, "/v1/payments/verify", owner, gin.H{
		"order_id":   "order_verify",
		"payment_id": "pay_1",
		"signature":  "good",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("replayed verify: %d %s", w.Code, w.Body.String())
	}
}

func TestVerifyPaymentRejectsBadSignature(t *testing.T) {
	api := newTestAPI(t)
	owner := api.token("owner@example.com", models.RoleOwner)
	propertyID := api.pendingPayment(owner, "order_bad")

	api.gw.EXPECT().VerifySignature(gomock.Any(), gomock.Any()).Return(false, nil)
	w := api.doJSON(http.MethodPost, "/v1/payments/verify", owner, gin.H{
		"order_id":   "order_bad",
		"payment_id": "pay_1",
		"signature":  "forged",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("forged signature: %d, want 400", w.Code)
	}
	if got := api.paymentStatus(propertyID); got != models.PaymentFailed {
		t.Fatalf("payment status %s, want FAILED", got)
	}
}

func TestPaymentWebhookEndpoint(t *testing.T) {
	api := newTestAPI(t)
	owner := api.token("owner@example.com", models.RoleOwner)
	propertyID := api.pendingPayment(owner, "order_hook")
	body := []byte(`{"event":"payment.captured"}`)

	captured := gateway.WebhookEvent{Kind: gateway.EventCaptured, Name: "payment.captured", OrderID: "order_hook", PaymentID: "pay_hook"}
	api.gw.EXPECT().ParseWebhook(body, gomock.Any()).Return(captured, nil).Times(2)

	for i := 0; i < 2; i++ {
		w := api.do(http.MethodPost, "/v1/payments/webhook", "", body)
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "SUCCESS") {
			t.Fatalf("delivery %d: %d %s", i+1, w.Code, w.Body.String())
		}
	}
	if got := api.paymentStatus(propertyID); got != models.PaymentSuccess {
		t.Fatalf("payment status %s, want SUCCESS", got)
	}
	var succeeded int64
	api.db.Model(&models.PaymentEvent{}).Where("kind = ?", models.EventSucceeded).Count(&succeeded)
	if succeeded != 1 {
		t.Fatalf("success applied %d times", succeeded)
	}
}

func TestPaymentWebhookRejectsUnauthenticatedAndIgnoresOtherEvents(t *testing.T) {
	api := newTestAPI(t)

	api.gw.EXPECT().ParseWebhook(gomock.Any(), gomock.Any()).Return(gateway.WebhookEvent{}, gateway.ErrInvalidWebhook)
	if w := api.do(http.MethodPost, "/v1/payments/webhook", "", []byte(`{}`)); w.Code != http.StatusBadRequest {
		t.Fatalf("unsigned webhook: %d, want 400", w.Code)
	}

	api.gw.EXPECT().ParseWebhook(gomock.Any(), gomock.Any()).Return(gateway.WebhookEvent{Kind: gateway.EventIgnored, Name: "refund.created"}, nil)
	w := api.do(http.MethodPost, "/v1/payments/webhook", "", []byte(`{}`))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ignored") {
		t.Fatalf("ignored event: %d %s", w.Code, w.Body.String())
	}
}

func TestPaymentWebhookLimitsBodySize(t *testing.T) {
	api := newTestAPI(t)
	body := bytes.Repeat([]byte("a"), maxWebhookBodyBytes+1)

	if w := api.do(http.MethodPost, "/v1/payments/webhook", "", body); w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized webhook: %d, want 413", w.Code)
	}
}

func TestAdminRejectEndpoint(t *testing.T) {
	api := newTestAPI(t)
	owner := api.token("owner@example.com", models.RoleOwner)
	admin := api.token("admin@example.com", models.RoleAdmin)
	propertyID := api.pendingPayment(owner, "order_reject")
	path := "/v1/admin/properties/" + propertyID.String() + "/reject"

	if w := api.do(http.MethodPost, path, owner, nil); w.Code != http.StatusForbidden {
		t.Fatalf("owner reject: %d, want 403", w.Code)
	}
	if w := api.do(http.MethodPost, "/v1/admin/properties/not-a-uuid/reject", admin, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("malformed id: %d, want 400", w.Code)
	}
	if w := api.do(http.MethodPost, path, admin, nil); w.Code != http.StatusOK {
		t.Fatalf("admin reject: %d %s", w.Code, w.Body.String())
	}
	if w := api.do(http.MethodGet, "/v1/properties/"+propertyID.String(), owner, nil); w.Code != http.StatusNotFound {
		t.Fatalf("rejected listing: %d, want 404", w.Code)
	}
	var kept models.Payment
	if err := api.db.First(&kept, "gateway_order_id = ?", "order_reject").Error; err != nil {
		t.Fatalf("payment row removed with its listing: %v", err)
	}
	if kept.PropertyID != propertyID {
		t.Fatalf("payment property_id %s, want %s", kept.PropertyID, propertyID)
	}
	if w := api.do(http.MethodPost, path, admin, nil); w.Code != http.StatusNotFound {
		t.Fatalf("second reject: %d, want 404", w.Code)
	}
}

func TestAdminApproveAfterVerifiedPayment(t *testing.T) {
	api := newTestAPI(t)
	owner := api.token("owner@example.com", models.RoleOwner)
	admin := api.token("admin@example.com", models.RoleAdmin)
	propertyID := api.pendingPayment(owner, "order_approve")
	path := "/v1/admin/properties/" + propertyID.String() + "/approve"

	if w := api.do(http.MethodPost, path, admin, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("approve unpaid: %d, want 400", w.Code)
	}

	api.gw.EXPECT().VerifySignature(gomock.Any(), gomock.Any()).Return(true, nil)
	w := api.doJSON(http.MethodPost, "/v1/payments/verify", owner, gin.H{
		"order_id":   "order_approve",
		"payment_id": "pay_1",
		"signature":  "good",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", w.Code, w.Body.String())
	}

	w = api.do(http.MethodPost, path, admin, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), string(models.StatusAvailable)) {
		t.Fatalf("approve: %d %s", w.Code, w.Body.String())
	}
}
