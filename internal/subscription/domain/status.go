package domain

import "strings"

// Status is the canonical, reduced set of subscription states. All
// provider-specific raw statuses map into it.
type Status string

const (
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusTrialing Status = "trialing"
	StatusPaused   Status = "paused"
	StatusCanceled Status = "canceled"

	// StatusUnknown is assigned when a provider sends a status this
	// build does not recognize. It is excluded from entitlement grants,
	// so billing ambiguity fails closed rather than silently granting
	// or revoking access.
	StatusUnknown Status = "unknown"
)

// MapStatus reduces a raw provider status to a canonical one. The
// mapping is total: every known provider state has an explicit arm, and
// anything else becomes StatusUnknown.
func MapStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active":
		return StatusActive
	case "past_due", "unpaid":
		return StatusPastDue
	case "trialing":
		return StatusTrialing
	case "paused":
		return StatusPaused
	case "canceled", "cancelled", "incomplete_expired":
		return StatusCanceled
	case "incomplete":
		return StatusTrialing
	default:
		return StatusUnknown
	}
}
