package mercadopagowebhook

import (
	"net/url"
	"testing"

	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
)

func TestParseNotificationWebhookBody(t *testing.T) {
	n, err := ParseNotification([]byte(`{"type":"payment","action":"payment.updated","data":{"id":"123456"}}`), url.Values{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !n.IsPayment() || n.PaymentID != "123456" || n.Action != "payment.updated" {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestParseNotificationNumericID(t *testing.T) {
	n, err := ParseNotification([]byte(`{"type":"Payment","data":{"id":987654321}}`), nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n.PaymentID != "987654321" || n.Kind != "payment" {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestParseNotificationQueryFallback(t *testing.T) {
	q := url.Values{"topic": {"payment"}, "id": {"42"}}
	n, err := ParseNotification(nil, q)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !n.IsPayment() || n.PaymentID != "42" {
		t.Fatalf("unexpected notification %+v", n)
	}

	q = url.Values{"type": {"payment"}, "data.id": {"77"}}
	n, err = ParseNotification([]byte("  "), q)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n.PaymentID != "77" {
		t.Fatalf("expected data.id from query, got %q", n.PaymentID)
	}
}

func TestParseNotificationNonPayment(t *testing.T) {
	n, err := ParseNotification([]byte(`{"topic":"merchant_order","id":"5"}`), nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n.IsPayment() {
		t.Fatalf("merchant_order must not be treated as payment")
	}
	if n.PaymentID != "" {
		t.Fatalf("top-level id must not be read as payment id, got %q", n.PaymentID)
	}
}

func TestParseNotificationInvalidJSON(t *testing.T) {
	_, err := ParseNotification([]byte(`{"type":`), nil)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
