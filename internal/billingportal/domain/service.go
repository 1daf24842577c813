// Package domain defines the outbound billing-provider session
// operations: checkout for upgrades and the self-service portal.
package domain

import (
	"context"
	"errors"
)

const (
	IntervalMonthly = "monthly"
	IntervalAnnual  = "annual"
)

var (
	ErrNotConfigured       = errors.New("billing_not_configured")
	ErrInvalidTier         = errors.New("invalid_tier")
	ErrInvalidInterval     = errors.New("invalid_interval")
	ErrUnknownOrganization = errors.New("unknown_organization")
	ErrNoBillingCustomer   = errors.New("no_billing_customer")
)

type CheckoutRequest struct {
	OrgExternalID   string
	Tier            string
	Interval        string
	ActorExternalID string
}

type PortalRequest struct {
	OrgExternalID string
}

// Session carries the provider-hosted redirect URL.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Service interface {
	// CreateCheckoutSession starts a subscription checkout for the
	// organization. The tier and org id travel in provider metadata so
	// the resulting webhook events correlate back.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error)

	// CreatePortalSession opens the provider's self-service portal for
	// an organization that already has a billing customer.
	CreatePortalSession(ctx context.Context, req PortalRequest) (*Session, error)
}
