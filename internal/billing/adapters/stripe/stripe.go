// Package stripe adapts Stripe webhook notifications into canonical
// billing events.
package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	billingdomain "github.com/polarishq/polaris/internal/billing/domain"
)

type Adapter struct {
	webhookSecret string
}

func New(secret string) (*Adapter, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, billingdomain.ErrInvalidSignature
	}
	return &Adapter{webhookSecret: secret}, nil
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return billingdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return billingdomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return billingdomain.ErrInvalidSignature
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (billingdomain.Event, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, billingdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, billingdomain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case "customer.subscription.created", "customer.subscription.updated":
		return a.parseSubscriptionUpserted(event)
	case "customer.subscription.deleted":
		return a.parseSubscriptionRemoved(event)
	default:
		return nil, billingdomain.ErrEventIgnored
	}
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeSubscription struct {
	ID                string            `json:"id"`
	Customer          json.RawMessage   `json:"customer"`
	Status            string            `json:"status"`
	CancelAtPeriodEnd bool              `json:"cancel_at_period_end"`
	Created           int64             `json:"created"`
	Metadata          map[string]string `json:"metadata"`
}

func (a *Adapter) parseSubscriptionUpserted(event stripeEvent) (billingdomain.Event, error) {
	sub, err := decodeSubscription(event.Data.Object)
	if err != nil {
		return nil, err
	}

	tier := strings.TrimSpace(sub.Metadata["tier"])
	if tier == "" {
		tier = "starter"
	}

	return billingdomain.SubscriptionUpserted{
		ExternalID:        sub.ID,
		ProviderEventID:   event.ID,
		CustomerID:        customerID(sub.Customer),
		OrgExternalID:     strings.TrimSpace(sub.Metadata["orgId"]),
		Tier:              tier,
		RawStatus:         strings.TrimSpace(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		OccurredAt:        timestamp(event.Created, sub.Created),
	}, nil
}

func (a *Adapter) parseSubscriptionRemoved(event stripeEvent) (billingdomain.Event, error) {
	sub, err := decodeSubscription(event.Data.Object)
	if err != nil {
		return nil, err
	}

	return billingdomain.SubscriptionRemoved{
		ExternalID:      sub.ID,
		ProviderEventID: event.ID,
		OrgExternalID:   strings.TrimSpace(sub.Metadata["orgId"]),
		OccurredAt:      timestamp(event.Created, sub.Created),
	}, nil
}

func decodeSubscription(raw json.RawMessage) (*stripeSubscription, error) {
	var sub stripeSubscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, billingdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(sub.ID) == "" {
		return nil, billingdomain.ErrInvalidEvent
	}
	return &sub, nil
}

// customerID accepts both the string form and the expanded object form
// of the customer reference.
func customerID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return strings.TrimSpace(id)
	}
	var expanded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &expanded); err == nil {
		return strings.TrimSpace(expanded.ID)
	}
	return ""
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}
