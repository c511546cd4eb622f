package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/homerental/internal/entitlement"
	"github.com/farellandr/homerental/internal/gateway"
	"github.com/farellandr/homerental/internal/helpers"
)

const maxWebhookBodyBytes = 1 << 20

type PaymentIntentRequest struct {
	PlanType string `json:"plan_type" binding:"required"`
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// CreatePaymentIntent opens a gateway order for a listing's plan. The client
// completes checkout with the returned order and then calls VerifyPayment.
func CreatePaymentIntent(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req PaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	plan, err := entitlement.ParsePlan(req.PlanType)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid plan type.")
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	intent, err := svc.Payments.CreateOrReplaceIntent(c.Request.Context(), principal, id, plan)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_id":   intent.Payment.ID,
		"order_id":     intent.Order.ID,
		"amount":       intent.Order.AmountMinor,
		"currency":     intent.Order.Currency,
		"key":          intent.Order.PublicKey,
		"checkout_url": intent.Order.CheckoutURL,
		"plan_type":    intent.Payment.Plan,
	})
}

func GetPropertyPayment(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	payment, err := svc.Payments.GetForProperty(c.Request.Context(), principal, id)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

func VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	_, svc, ok := authenticated(c)
	if !ok {
		return
	}

	payment, err := svc.Payments.ConfirmFromClient(c.Request.Context(), gateway.Confirmation{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment verified. Your listing is awaiting approval.",
		"payment": payment,
	})
}

// PaymentWebhook receives gateway notifications. The body is read raw because
// the signature covers the exact bytes.
func PaymentWebhook(c *gin.Context) {
	svc, ok := getServices(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			helpers.RespondWithError(c, http.StatusRequestEntityTooLarge, "Webhook payload is too large.")
			return
		}
		helpers.RespondWithError(c, http.StatusBadRequest, "Failed to read request body.")
		return
	}

	payment, err := svc.Payments.HandleWebhook(c.Request.Context(), body, c.Request.Header)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}
	if payment == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": payment.Status})
}
