// Package domain defines the canonical identity events and the adapter
// contract for the identity-provider webhook.
package domain

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrMissingHeaders   = errors.New("missing_webhook_headers")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")

	// ErrEventIgnored marks provider event kinds this engine does not
	// consume. Ignoring them is forward compatibility, not a failure.
	ErrEventIgnored = errors.New("event_ignored")
)

// Event is one canonical identity event.
type Event interface {
	Kind() string
}

// AccountUpserted carries the canonical fields of a created or updated
// identity-provider account.
type AccountUpserted struct {
	ExternalID string
	Email      string
	FirstName  string
	LastName   string
}

func (AccountUpserted) Kind() string { return "account_upserted" }

// OrganizationUpserted carries the canonical fields of a created or
// updated identity-provider organization.
type OrganizationUpserted struct {
	ExternalID string
	Name       string
	Slug       string
}

func (OrganizationUpserted) Kind() string { return "organization_upserted" }

// MembershipCreated links an account to an organization. Both sides are
// referenced by their external ids and may not exist locally yet.
type MembershipCreated struct {
	OrgExternalID  string
	UserExternalID string
	Role           string
}

func (MembershipCreated) Kind() string { return "membership_created" }

// Adapter verifies and normalizes raw identity-provider notifications.
// Parse performs no persistence I/O.
type Adapter interface {
	// Verify authenticates the raw payload against the provider
	// signature headers. It must run over the exact bytes received;
	// re-serialization can invalidate the signature.
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (Event, error)
}
