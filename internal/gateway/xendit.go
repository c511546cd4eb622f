package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/xendit/xendit-go/v6"
	"github.com/xendit/xendit-go/v6/invoice"
)

type XenditConfig struct {
	SecretKey     string
	CallbackToken string
	Timeout       time.Duration
}

// XenditGateway maps orders onto Xendit invoices. Client confirmations are
// verified by asking Xendit for the invoice status rather than by a local
// signature.
type XenditGateway struct {
	config XenditConfig
	client *xendit.APIClient
}

func NewXenditGateway(config XenditConfig, client *xendit.APIClient) *XenditGateway {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &XenditGateway{config: config, client: client}
}

func (g *XenditGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (Order, error) {
	if g.client == nil || g.config.SecretKey == "" {
		return Order{}, ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	createInvoiceRequest := *invoice.NewCreateInvoiceRequest(receipt, float64(amountMinor)/100)
	createInvoiceRequest.SetCurrency(currency)
	createInvoiceRequest.SetDescription("Listing plan " + receipt)

	resp, r, err := g.client.InvoiceApi.CreateInvoice(ctx).
		CreateInvoiceRequest(createInvoiceRequest).
		Execute()
	if err != nil {
		if r != nil && (r.StatusCode == http.StatusUnauthorized || r.StatusCode == http.StatusForbidden) {
			return Order{}, ErrNotConfigured
		}
		return Order{}, fmt.Errorf("%w: create invoice: %v", ErrUnavailable, err)
	}

	return Order{
		ID:          resp.GetId(),
		AmountMinor: amountMinor,
		Currency:    currency,
		CheckoutURL: resp.GetInvoiceUrl(),
	}, nil
}

func (g *XenditGateway) VerifySignature(ctx context.Context, c Confirmation) (bool, error) {
	if g.client == nil || g.config.SecretKey == "" {
		return false, ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	resp, r, err := g.client.InvoiceApi.GetInvoiceById(ctx, c.OrderID).Execute()
	if err != nil {
		if r != nil && r.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("%w: get invoice: %v", ErrUnavailable, err)
	}
	return invoicePaid(string(resp.GetStatus())), nil
}

type xenditCallback struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	PaymentID  string `json:"payment_id"`
}

func (g *XenditGateway) ParseWebhook(body []byte, header http.Header) (WebhookEvent, error) {
	if g.config.CallbackToken == "" {
		return WebhookEvent{}, ErrNotConfigured
	}
	token := header.Get("x-callback-token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(g.config.CallbackToken)) != 1 {
		return WebhookEvent{}, fmt.Errorf("%w: callback token mismatch", ErrInvalidWebhook)
	}

	var payload xenditCallback
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	if payload.ID == "" {
		return WebhookEvent{}, fmt.Errorf("%w: missing invoice id", ErrInvalidWebhook)
	}

	event := WebhookEvent{Name: payload.Status, OrderID: payload.ID, PaymentID: payload.PaymentID}
	if event.PaymentID == "" {
		event.PaymentID = payload.ID
	}
	switch {
	case invoicePaid(payload.Status):
		event.Kind = EventCaptured
	case payload.Status == "EXPIRED":
		event.Kind = EventFailed
	default:
		event.Kind = EventIgnored
	}
	return event, nil
}

func invoicePaid(status string) bool {
	return status == "PAID" || status == "SETTLED"
}
