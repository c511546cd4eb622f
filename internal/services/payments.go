package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/farellandr/homerental/internal/apperrors"
	"github.com/farellandr/homerental/internal/auth"
	"github.com/farellandr/homerental/internal/entitlement"
	"github.com/farellandr/homerental/internal/gateway"
	"github.com/farellandr/homerental/internal/models"
)

// PaymentService turns gateway outcomes into listing activations. Success is
// applied at most once per order however many confirmations arrive.
type PaymentService struct {
	*base
	gateway  gateway.Gateway
	currency string
	timeout  time.Duration
}

type Intent struct {
	Payment models.Payment
	Order   gateway.Order
}

func (s *PaymentService) gatewayError(op string, err error) error {
	if errors.Is(err, gateway.ErrNotConfigured) {
		return apperrors.Wrap(apperrors.ErrPaymentConfiguration, op, "Online payments are not configured.", err)
	}
	return apperrors.Wrap(apperrors.ErrGatewayUnavailable, op, "The payment gateway is unavailable. Please retry.", err)
}

func receiptFor(propertyID uuid.UUID) string {
	return "prop_" + strings.ReplaceAll(propertyID.String(), "-", "")
}

// CreateOrReplaceIntent opens a gateway order for the plan and records it as
// the property's single pending payment.
func (s *PaymentService) CreateOrReplaceIntent(ctx context.Context, p auth.Principal, propertyID uuid.UUID, plan entitlement.Plan) (*Intent, error) {
	const op = "PaymentService.CreateOrReplaceIntent"
	if !plan.Valid() {
		return nil, apperrors.Validation(op, "Unknown plan.")
	}
	if s.gateway == nil {
		return nil, apperrors.New(apperrors.ErrPaymentConfiguration, op, "Online payments are not configured.")
	}

	db := s.db.WithContext(ctx)
	now := s.now()
	property, err := loadManaged(db, op, p, propertyID, now)
	if err != nil {
		return nil, err
	}

	var existing models.Payment
	err = db.Where("property_id = ?", propertyID).First(&existing).Error
	hasExisting := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if hasExisting && existing.Status == models.PaymentSuccess && property.IsPaid && property.IsPlanActive(now) {
		return nil, apperrors.New(apperrors.ErrAlreadyPaid, op, "This property already has an active paid plan.")
	}

	decision, err := canActivate(db, property.OwnerID, plan, property.ID, now)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, apperrors.New(apperrors.ErrEntitlementExceeded, op, decision.Reason)
	}

	amount := plan.Fee()
	gctx, cancel := context.WithTimeout(ctx, s.timeout)
	order, err := s.gateway.CreateOrder(gctx, amount.Shift(2).IntPart(), s.currency, receiptFor(property.ID))
	cancel()
	if err != nil {
		logf(op, "gateway order for property %s failed: %v", property.ID, err)
		return nil, s.gatewayError(op, err)
	}

	var payment models.Payment
	err = db.Transaction(func(tx *gorm.DB) error {
		var current models.Payment
		err := tx.Where("property_id = ?", propertyID).First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			payment = models.Payment{
				PropertyID:     property.ID,
				OwnerID:        property.OwnerID,
				GatewayOrderID: order.ID,
				CheckoutURL:    order.CheckoutURL,
				Plan:           plan,
				Amount:         amount,
				Currency:       s.currency,
				Status:         models.PaymentPending,
			}
			if err := tx.Create(&payment).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return apperrors.New(apperrors.ErrConflict, op, "Another payment was started concurrently. Reload and retry.")
				}
				return err
			}
			return recordEvent(tx, &payment, models.EventIntentCreated, "client", string(plan))
		}
		if err != nil {
			return err
		}

		if current.Status == models.PaymentSuccess {
			var fresh models.Property
			if err := tx.Select("is_paid", "plan_expiry_date").First(&fresh, "id = ?", propertyID).Error; err != nil {
				return err
			}
			if fresh.IsPaid && fresh.IsPlanActive(now) {
				return apperrors.New(apperrors.ErrAlreadyPaid, op, "This property already has an active paid plan.")
			}
		}

		result := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ? AND gateway_order_id = ?", current.ID, current.Status, current.GatewayOrderID).
			Updates(map[string]interface{}{
				"gateway_order_id":   order.ID,
				"gateway_payment_id": nil,
				"gateway_signature":  nil,
				"checkout_url":       order.CheckoutURL,
				"plan":               plan,
				"amount":             amount,
				"currency":           s.currency,
				"status":             models.PaymentPending,
				"confirmed_at":       nil,
				"updated_at":         now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.New(apperrors.ErrConflict, op, "The payment changed concurrently. Reload and retry.")
		}
		if err := tx.First(&payment, "id = ?", current.ID).Error; err != nil {
			return err
		}
		return recordEvent(tx, &payment, models.EventIntentReplaced, "client", replacedDetail(&current))
	})
	if err != nil {
		return nil, err
	}

	logf(op, "payment %s pending on order %s for property %s (%s)", payment.ID, order.ID, property.ID, plan)
	return &Intent{Payment: payment, Order: order}, nil
}

// ConfirmFromClient applies a client-reported checkout result after checking
// its signature with the gateway.
func (s *PaymentService) ConfirmFromClient(ctx context.Context, c gateway.Confirmation) (*models.Payment, error) {
	const op = "PaymentService.ConfirmFromClient"
	if c.OrderID == "" || c.PaymentID == "" || c.Signature == "" {
		return nil, apperrors.Validation(op, "Order id, payment id and signature are required.")
	}
	if s.gateway == nil {
		return nil, apperrors.New(apperrors.ErrPaymentConfiguration, op, "Online payments are not configured.")
	}

	payment, err := s.findByOrder(s.db.WithContext(ctx), op, c.OrderID)
	if err != nil {
		return nil, err
	}
	switch payment.Status {
	case models.PaymentSuccess:
		s.recordDuplicate(ctx, payment, "client")
		return payment, nil
	case models.PaymentFailed:
		return nil, apperrors.New(apperrors.ErrPaymentVerification, op, "This payment has failed. Start a new payment.")
	}

	gctx, cancel := context.WithTimeout(ctx, s.timeout)
	valid, err := s.gateway.VerifySignature(gctx, c)
	cancel()
	if err != nil {
		logf(op, "signature check for order %s failed: %v", c.OrderID, err)
		return nil, s.gatewayError(op, err)
	}
	if !valid {
		if err := s.markFailed(ctx, payment, "client", "invalid signature"); err != nil {
			return nil, err
		}
		logf(op, "invalid signature for order %s; payment %s failed", c.OrderID, payment.ID)
		return nil, apperrors.New(apperrors.ErrPaymentVerification, op, "Payment verification failed.")
	}

	signature := c.Signature
	return s.applySuccess(ctx, op, c.OrderID, c.PaymentID, &signature, "client")
}

// HandleWebhook authenticates a raw gateway notification and applies it.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, header http.Header) (*models.Payment, error) {
	const op = "PaymentService.HandleWebhook"
	if s.gateway == nil {
		return nil, apperrors.New(apperrors.ErrPaymentConfiguration, op, "Online payments are not configured.")
	}
	event, err := s.gateway.ParseWebhook(body, header)
	if err != nil {
		logf(op, "rejected webhook: %v", err)
		if errors.Is(err, gateway.ErrNotConfigured) {
			return nil, s.gatewayError(op, err)
		}
		return nil, apperrors.Wrap(apperrors.ErrPaymentVerification, op, "Webhook could not be authenticated.", err)
	}
	return s.ConfirmFromWebhook(ctx, event)
}

// ConfirmFromWebhook applies an already authenticated gateway event. Ignored
// event kinds return a nil payment.
func (s *PaymentService) ConfirmFromWebhook(ctx context.Context, event gateway.WebhookEvent) (*models.Payment, error) {
	const op = "PaymentService.ConfirmFromWebhook"
	switch event.Kind {
	case gateway.EventCaptured:
		return s.applySuccess(ctx, op, event.OrderID, event.PaymentID, nil, "webhook")
	case gateway.EventFailed:
		payment, err := s.findByOrder(s.db.WithContext(ctx), op, event.OrderID)
		if err != nil {
			return nil, err
		}
		if payment.Status != models.PaymentPending {
			return payment, nil
		}
		if err := s.markFailed(ctx, payment, "webhook", event.Name); err != nil {
			return nil, err
		}
		return s.findByOrder(s.db.WithContext(ctx), op, event.OrderID)
	default:
		logf(op, "ignoring webhook event %q for order %s", event.Name, event.OrderID)
		return nil, nil
	}
}

func (s *PaymentService) GetForProperty(ctx context.Context, p auth.Principal, propertyID uuid.UUID) (*models.Payment, error) {
	const op = "PaymentService.GetForProperty"
	db := s.db.WithContext(ctx)
	property, err := loadProperty(db, op, propertyID)
	if err != nil {
		return nil, err
	}
	if !auth.CanManage(p, property.OwnerID) {
		return nil, apperrors.Authorization(op)
	}

	var payment models.Payment
	if err := db.Where("property_id = ?", propertyID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(op, "Payment")
		}
		return nil, err
	}
	return &payment, nil
}

func (s *PaymentService) Events(ctx context.Context, paymentID uuid.UUID) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	err := s.db.WithContext(ctx).Where("payment_id = ?", paymentID).Order("created_at ASC").Find(&events).Error
	return events, err
}

var errAlreadyApplied = errors.New("payment already applied")

// applySuccess is the single place a payment becomes SUCCESS. The owner row
// lock serializes concurrent activations for one owner so the entitlement
// re-check and the property stamp see a stable set of listings.
func (s *PaymentService) applySuccess(ctx context.Context, op, orderID, gatewayPaymentID string, signature *string, source string) (*models.Payment, error) {
	now := s.now()
	var applied models.Payment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.findByOrder(tx, op, orderID)
		if err != nil {
			return err
		}
		if payment.Status != models.PaymentPending {
			applied = *payment
			return errAlreadyApplied
		}

		var owner models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&owner, "id = ?", payment.OwnerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound(op, "Owner")
			}
			return err
		}
		property, err := loadProperty(tx, op, payment.PropertyID)
		if err != nil {
			return err
		}

		decision, err := canActivate(tx, payment.OwnerID, payment.Plan, property.ID, now)
		if err != nil {
			return err
		}
		if !decision.Allowed {
			return apperrors.New(apperrors.ErrEntitlementExceeded, op, decision.Reason)
		}

		result := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentPending).
			Updates(map[string]interface{}{
				"status":             models.PaymentSuccess,
				"gateway_payment_id": gatewayPaymentID,
				"gateway_signature":  signature,
				"confirmed_at":       now,
				"updated_at":         now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			if err := tx.First(&applied, "id = ?", payment.ID).Error; err != nil {
				return err
			}
			return errAlreadyApplied
		}

		expiry := entitlement.ExpiryFrom(payment.Plan, now)
		err = tx.Model(&models.Property{}).Where("id = ?", property.ID).
			Updates(map[string]interface{}{
				"is_paid":          true,
				"plan_type":        payment.Plan,
				"plan_expiry_date": expiry,
				"updated_at":       now,
			}).Error
		if err != nil {
			return err
		}

		if err := recordEvent(tx, payment, models.EventSucceeded, source, gatewayPaymentID); err != nil {
			return err
		}
		return tx.First(&applied, "id = ?", payment.ID).Error
	})

	if errors.Is(err, errAlreadyApplied) {
		if applied.Status == models.PaymentFailed {
			return nil, apperrors.New(apperrors.ErrPaymentVerification, op, "This payment has failed. Start a new payment.")
		}
		s.recordDuplicate(ctx, &applied, source)
		return &applied, nil
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrEntitlementExceeded) {
			logf(op, "order %s left pending: %v", orderID, err)
		}
		return nil, err
	}

	s.invalidateListings(ctx, op)
	logf(op, "payment %s succeeded via %s; property %s paid on %s until %s",
		applied.ID, source, applied.PropertyID, applied.Plan, entitlement.ExpiryFrom(applied.Plan, now).Format(time.RFC3339))
	return &applied, nil
}

func (s *PaymentService) markFailed(ctx context.Context, payment *models.Payment, source, detail string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentPending).
			Updates(map[string]interface{}{"status": models.PaymentFailed, "updated_at": s.now()})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		return recordEvent(tx, payment, models.EventFailed, source, detail)
	})
}

func (s *PaymentService) recordDuplicate(ctx context.Context, payment *models.Payment, source string) {
	logf("PaymentService", "duplicate %s confirmation for order %s ignored (status %s)", source, payment.GatewayOrderID, payment.Status)
	if err := recordEvent(s.db.WithContext(ctx), payment, models.EventDuplicate, source, string(payment.Status)); err != nil {
		logf("PaymentService", "failed to record duplicate event: %v", err)
	}
}

func (s *PaymentService) findByOrder(tx *gorm.DB, op, orderID string) (*models.Payment, error) {
	var payment models.Payment
	if err := tx.Where("gateway_order_id = ?", orderID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(op, "Payment")
		}
		return nil, err
	}
	return &payment, nil
}

// replacedDetail keeps what the row held before it was reused, including the
// gateway proof of a settled payment that renewal clears from the row.
func replacedDetail(previous *models.Payment) string {
	detail := fmt.Sprintf("replaces %s (%s)", previous.GatewayOrderID, previous.Status)
	if previous.GatewayPaymentID != nil {
		detail += " payment=" + *previous.GatewayPaymentID
	}
	if previous.GatewaySignature != nil {
		detail += " signature=" + *previous.GatewaySignature
	}
	if previous.ConfirmedAt != nil {
		detail += " confirmed_at=" + previous.ConfirmedAt.UTC().Format(time.RFC3339)
	}
	return detail
}

func recordEvent(tx *gorm.DB, payment *models.Payment, kind models.PaymentEventKind, source, detail string) error {
	return tx.Create(&models.PaymentEvent{
		PaymentID: payment.ID,
		OrderID:   payment.GatewayOrderID,
		Kind:      kind,
		Source:    source,
		Detail:    detail,
	}).Error
}
