package stripe_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/polarishq/polaris/internal/billing/adapters/stripe"
	billingdomain "github.com/polarishq/polaris/internal/billing/domain"
)

const testWebhookSecret = "whsec_test_secret"

func newTestAdapter(t *testing.T) *stripe.Adapter {
	t.Helper()

	adapter, err := stripe.New(testWebhookSecret)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return adapter
}

func buildSignatureHeader(secret string, payload []byte, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, string(payload))))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func signedHeaders(payload []byte, ts int64) http.Header {
	headers := http.Header{}
	headers.Set("Stripe-Signature", buildSignatureHeader(testWebhookSecret, payload, ts))
	return headers
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	adapter := newTestAdapter(t)
	payload := []byte(`{"id":"evt_1","type":"customer.subscription.created"}`)

	headers := signedHeaders(payload, time.Now().Unix())
	if err := adapter.Verify(context.Background(), payload, headers); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	adapter := newTestAdapter(t)
	payload := []byte(`{"id":"evt_1"}`)

	headers := http.Header{}
	headers.Set("Stripe-Signature", buildSignatureHeader("whsec_other", payload, time.Now().Unix()))

	err := adapter.Verify(context.Background(), payload, headers)
	if !errors.Is(err, billingdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsMissingOrMalformedHeader(t *testing.T) {
	adapter := newTestAdapter(t)
	payload := []byte(`{"id":"evt_1"}`)

	err := adapter.Verify(context.Background(), payload, http.Header{})
	if !errors.Is(err, billingdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for missing header, got %v", err)
	}

	headers := http.Header{}
	headers.Set("Stripe-Signature", "v1=deadbeef")
	err = adapter.Verify(context.Background(), payload, headers)
	if !errors.Is(err, billingdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for header without timestamp, got %v", err)
	}
}

func TestParseSubscriptionUpserted(t *testing.T) {
	adapter := newTestAdapter(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix()
	payload := []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"type": "customer.subscription.updated",
		"created": %d,
		"data": {
			"object": {
				"id": "sub_1",
				"customer": "cus_1",
				"status": "active",
				"cancel_at_period_end": true,
				"created": %d,
				"metadata": {"tier": "enterprise", "orgId": "org_1"}
			}
		}
	}`, created, created-3600))

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	upserted, ok := event.(billingdomain.SubscriptionUpserted)
	if !ok {
		t.Fatalf("expected SubscriptionUpserted, got %T", event)
	}
	if upserted.ExternalID != "sub_1" || upserted.ProviderEventID != "evt_1" {
		t.Fatalf("unexpected ids %+v", upserted)
	}
	if upserted.CustomerID != "cus_1" {
		t.Fatalf("expected customer cus_1, got %q", upserted.CustomerID)
	}
	if upserted.OrgExternalID != "org_1" || upserted.Tier != "enterprise" {
		t.Fatalf("unexpected metadata %+v", upserted)
	}
	if !upserted.CancelAtPeriodEnd {
		t.Fatalf("expected cancel_at_period_end carried")
	}
	// Ordering uses the event timestamp, not the subscription's create
	// time.
	if upserted.OccurredAt.Unix() != created {
		t.Fatalf("expected occurred_at %d, got %d", created, upserted.OccurredAt.Unix())
	}
}

func TestParseSubscriptionUpsertedDefaults(t *testing.T) {
	adapter := newTestAdapter(t)
	payload := []byte(`{
		"id": "evt_1",
		"type": "customer.subscription.created",
		"data": {
			"object": {
				"id": "sub_1",
				"customer": {"id": "cus_expanded"},
				"status": "trialing",
				"metadata": {}
			}
		}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	upserted := event.(billingdomain.SubscriptionUpserted)
	if upserted.CustomerID != "cus_expanded" {
		t.Fatalf("expected expanded customer object handled, got %q", upserted.CustomerID)
	}
	if upserted.Tier != "starter" {
		t.Fatalf("expected missing tier metadata to default to starter, got %q", upserted.Tier)
	}
	if upserted.OrgExternalID != "" {
		t.Fatalf("expected empty correlation, got %q", upserted.OrgExternalID)
	}
}

func TestParseSubscriptionRemoved(t *testing.T) {
	adapter := newTestAdapter(t)
	payload := []byte(`{
		"id": "evt_2",
		"type": "customer.subscription.deleted",
		"created": 1767225600,
		"data": {
			"object": {
				"id": "sub_1",
				"customer": "cus_1",
				"status": "canceled",
				"metadata": {"orgId": "org_1"}
			}
		}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	removed, ok := event.(billingdomain.SubscriptionRemoved)
	if !ok {
		t.Fatalf("expected SubscriptionRemoved, got %T", event)
	}
	if removed.ExternalID != "sub_1" || removed.ProviderEventID != "evt_2" || removed.OrgExternalID != "org_1" {
		t.Fatalf("unexpected removal %+v", removed)
	}
}

func TestParseIgnoresUnknownKind(t *testing.T) {
	adapter := newTestAdapter(t)
	payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":{"id":"in_1"}}}`)

	_, err := adapter.Parse(context.Background(), payload)
	if !errors.Is(err, billingdomain.ErrEventIgnored) {
		t.Fatalf("expected ErrEventIgnored, got %v", err)
	}
}

func TestParseRejectsMalformedPayload(t *testing.T) {
	adapter := newTestAdapter(t)

	if _, err := adapter.Parse(context.Background(), []byte(`{not json`)); !errors.Is(err, billingdomain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if _, err := adapter.Parse(context.Background(), []byte(`{"type":"customer.subscription.created","data":{"object":{"id":"sub_1"}}}`)); !errors.Is(err, billingdomain.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent for missing event id, got %v", err)
	}
}
