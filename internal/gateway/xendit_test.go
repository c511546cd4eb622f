package gateway

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestXenditParseWebhook(t *testing.T) {
	g := NewXenditGateway(XenditConfig{SecretKey: "sk", CallbackToken: "tok"}, nil)

	tests := []struct {
		name  string
		token string
		body  string
		kind  EventKind
		err   error
	}{
		{"paid", "tok", `{"id":"inv_1","external_id":"p1","status":"PAID","payment_id":"pay_1"}`, EventCaptured, nil},
		{"settled without payment id", "tok", `{"id":"inv_1","status":"SETTLED"}`, EventCaptured, nil},
		{"expired", "tok", `{"id":"inv_1","status":"EXPIRED"}`, EventFailed, nil},
		{"pending", "tok", `{"id":"inv_1","status":"PENDING"}`, EventIgnored, nil},
		{"bad token", "nope", `{"id":"inv_1","status":"PAID"}`, "", ErrInvalidWebhook},
		{"missing id", "tok", `{"status":"PAID"}`, "", ErrInvalidWebhook},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			header.Set("x-callback-token", tt.token)
			event, err := g.ParseWebhook([]byte(tt.body), header)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("got %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWebhook: %v", err)
			}
			if event.Kind != tt.kind || event.OrderID != "inv_1" || event.PaymentID == "" {
				t.Fatalf("unexpected event %+v", event)
			}
		})
	}
}

func TestXenditWithoutClientIsNotConfigured(t *testing.T) {
	g := NewXenditGateway(XenditConfig{}, nil)
	if _, err := g.CreateOrder(context.Background(), 100, "IDR", "r"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := g.ParseWebhook([]byte(`{}`), http.Header{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
