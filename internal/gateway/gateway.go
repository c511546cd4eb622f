// Package gateway adapts external payment providers to the port the payment
// orchestrator depends on.
package gateway

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrNotConfigured  = errors.New("payment gateway credentials are missing or rejected")
	ErrUnavailable    = errors.New("payment gateway unavailable")
	ErrInvalidWebhook = errors.New("invalid webhook")
)

type Order struct {
	ID          string
	AmountMinor int64
	Currency    string
	// CheckoutURL is set by providers that host their own checkout page.
	CheckoutURL string
	// PublicKey is handed to client-side checkout widgets.
	PublicKey string
}

// Confirmation is what a client reports back after checkout.
type Confirmation struct {
	OrderID   string
	PaymentID string
	Signature string
}

type EventKind string

const (
	EventCaptured EventKind = "captured"
	EventFailed   EventKind = "failed"
	EventIgnored  EventKind = "ignored"
)

type WebhookEvent struct {
	Kind      EventKind
	Name      string
	OrderID   string
	PaymentID string
}

//go:generate mockgen -destination=../mocks/gateway_mock.go -package=mocks github.com/farellandr/homerental/internal/gateway Gateway

type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (Order, error)
	VerifySignature(ctx context.Context, c Confirmation) (bool, error)
	ParseWebhook(body []byte, header http.Header) (WebhookEvent, error)
}
