package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	// BaseURL overrides the API host, for tests.
	BaseURL string
	Timeout time.Duration
}

type RazorpayGateway struct {
	config RazorpayConfig
	client *razorpay.Client
}

var errRejectedCredentials = errors.New("razorpay rejected the API key")

// credentialCheck reports a 401 before the SDK decodes the body, so rejected
// keys are told apart from provider outages.
type credentialCheck struct {
	next http.RoundTripper
}

func (t credentialCheck) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, errRejectedCredentials
	}
	return resp, nil
}

func NewRazorpayGateway(config RazorpayConfig) *RazorpayGateway {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	client := razorpay.NewClient(config.KeyID, config.KeySecret)
	client.Request.HTTPClient = &http.Client{
		Timeout:   config.Timeout,
		Transport: credentialCheck{next: http.DefaultTransport},
	}
	if config.BaseURL != "" {
		client.Request.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	}
	return &RazorpayGateway{config: config, client: client}
}

type orderResult struct {
	body map[string]interface{}
	err  error
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (Order, error) {
	if g.config.KeyID == "" || g.config.KeySecret == "" {
		return Order{}, ErrNotConfigured
	}

	data := map[string]interface{}{
		"amount":          amountMinor,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}
	// The SDK takes no context; the HTTP client timeout bounds the call.
	done := make(chan orderResult, 1)
	go func() {
		body, err := g.client.Order.Create(data, nil)
		done <- orderResult{body: body, err: err}
	}()

	var res orderResult
	select {
	case <-ctx.Done():
		return Order{}, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	case res = <-done:
	}

	if res.err != nil {
		if errors.Is(res.err, errRejectedCredentials) || strings.Contains(res.err.Error(), errRejectedCredentials.Error()) {
			return Order{}, ErrNotConfigured
		}
		return Order{}, fmt.Errorf("%w: %v", ErrUnavailable, res.err)
	}

	id, _ := res.body["id"].(string)
	if id == "" {
		return Order{}, fmt.Errorf("%w: malformed order response", ErrUnavailable)
	}
	order := Order{ID: id, Currency: currency, AmountMinor: amountMinor, PublicKey: g.config.KeyID}
	if amount, ok := res.body["amount"].(float64); ok {
		order.AmountMinor = int64(amount)
	}
	if cur, ok := res.body["currency"].(string); ok && cur != "" {
		order.Currency = cur
	}
	return order, nil
}

func (g *RazorpayGateway) VerifySignature(ctx context.Context, c Confirmation) (bool, error) {
	if g.config.KeySecret == "" {
		return false, ErrNotConfigured
	}
	if c.Signature == "" {
		return false, nil
	}
	params := map[string]interface{}{
		"razorpay_order_id":   c.OrderID,
		"razorpay_payment_id": c.PaymentID,
	}
	return utils.VerifyPaymentSignature(params, c.Signature, g.config.KeySecret), nil
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (g *RazorpayGateway) ParseWebhook(body []byte, header http.Header) (WebhookEvent, error) {
	if g.config.WebhookSecret == "" {
		return WebhookEvent{}, ErrNotConfigured
	}
	signature := header.Get("X-Razorpay-Signature")
	if signature == "" || !utils.VerifyWebhookSignature(string(body), signature, g.config.WebhookSecret) {
		return WebhookEvent{}, fmt.Errorf("%w: signature mismatch", ErrInvalidWebhook)
	}

	var payload razorpayWebhook
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	event := WebhookEvent{
		Name:      payload.Event,
		OrderID:   payload.Payload.Payment.Entity.OrderID,
		PaymentID: payload.Payload.Payment.Entity.ID,
	}
	switch payload.Event {
	case "payment.captured", "order.paid":
		event.Kind = EventCaptured
	case "payment.failed":
		event.Kind = EventFailed
	default:
		event.Kind = EventIgnored
		return event, nil
	}
	if event.OrderID == "" {
		return WebhookEvent{}, fmt.Errorf("%w: missing order id", ErrInvalidWebhook)
	}
	return event, nil
}
