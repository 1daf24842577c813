// Package domain defines the canonical billing events and the adapter
// contract for the billing-provider webhook.
package domain

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")

	// ErrEventIgnored marks provider event kinds this engine does not
	// consume.
	ErrEventIgnored = errors.New("event_ignored")
)

// Event is one canonical billing event.
type Event interface {
	Kind() string
}

// SubscriptionUpserted mirrors a created or updated provider
// subscription. OrgExternalID comes from provider metadata and may be
// empty: cross-provider correlation is optional by design, and its
// absence is a valid degraded state, not an error.
type SubscriptionUpserted struct {
	ExternalID        string
	ProviderEventID   string
	CustomerID        string
	OrgExternalID     string
	Tier              string
	RawStatus         string
	CancelAtPeriodEnd bool
	OccurredAt        time.Time
}

func (SubscriptionUpserted) Kind() string { return "subscription_upserted" }

// SubscriptionRemoved mirrors a deleted provider subscription.
type SubscriptionRemoved struct {
	ExternalID      string
	ProviderEventID string
	OrgExternalID   string
	OccurredAt      time.Time
}

func (SubscriptionRemoved) Kind() string { return "subscription_removed" }

// Adapter verifies and normalizes raw billing-provider notifications.
// Parse performs no persistence I/O.
type Adapter interface {
	// Verify authenticates the raw payload against the provider
	// signature header. It must run over the exact bytes received.
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (Event, error)
}
