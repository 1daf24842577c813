// Package entitlement resolves feature access from organization and
// officeholder tiers. Resolution is table driven and performs no I/O;
// callers load the actor context first.
package entitlement

import "strings"

// Side classifies which half of the platform an account belongs to.
type Side string

const (
	SideOrg  Side = "org"
	SidePol  Side = "pol"
	SideDual Side = "dual"
)

// OrgTier is the ordered entitlement level of an organization.
type OrgTier string

const (
	OrgTierStarter      OrgTier = "starter"
	OrgTierProfessional OrgTier = "professional"
	OrgTierEnterprise   OrgTier = "enterprise"
	OrgTierGlobal       OrgTier = "global"
)

// PolTier is the ordered entitlement level of an officeholder account.
type PolTier string

const (
	PolTierFoundation   PolTier = "foundation"
	PolTierProfessional PolTier = "professional"
	PolTierStrategic    PolTier = "strategic"
	PolTierCampaign     PolTier = "campaign"
)

// OrgRole is a member's role within an organization.
type OrgRole string

const (
	RoleOwner  OrgRole = "owner"
	RoleAdmin  OrgRole = "admin"
	RoleMember OrgRole = "member"
	RoleViewer OrgRole = "viewer"
)

var orgTierOrder = map[OrgTier]int{
	OrgTierStarter:      0,
	OrgTierProfessional: 1,
	OrgTierEnterprise:   2,
	OrgTierGlobal:       3,
}

var polTierOrder = map[PolTier]int{
	PolTierFoundation:   0,
	PolTierProfessional: 1,
	PolTierStrategic:    2,
	PolTierCampaign:     3,
}

// ParseOrgTier returns the matching tier, falling back to starter.
func ParseOrgTier(raw string) OrgTier {
	tier := OrgTier(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := orgTierOrder[tier]; ok {
		return tier
	}
	return OrgTierStarter
}

// ValidOrgTier reports whether raw names a known organization tier.
func ValidOrgTier(raw string) bool {
	_, ok := orgTierOrder[OrgTier(strings.ToLower(strings.TrimSpace(raw)))]
	return ok
}

// ParsePolTier returns the matching tier, falling back to foundation.
func ParsePolTier(raw string) PolTier {
	tier := PolTier(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := polTierOrder[tier]; ok {
		return tier
	}
	return PolTierFoundation
}

// ParseOrgRole returns the matching role, falling back to member.
func ParseOrgRole(raw string) OrgRole {
	switch OrgRole(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleOwner:
		return RoleOwner
	case RoleAdmin:
		return RoleAdmin
	case RoleViewer:
		return RoleViewer
	default:
		return RoleMember
	}
}

// AtLeast reports whether t grants at least the level of other.
func (t OrgTier) AtLeast(other OrgTier) bool {
	return orgTierOrder[t] >= orgTierOrder[other]
}

// AtLeast reports whether t grants at least the level of other.
func (t PolTier) AtLeast(other PolTier) bool {
	return polTierOrder[t] >= polTierOrder[other]
}

// UserContext carries everything the resolver needs about an actor.
type UserContext struct {
	UserID  string  `json:"user_id"`
	Side    Side    `json:"side"`
	OrgID   string  `json:"org_id,omitempty"`
	OrgRole OrgRole `json:"org_role,omitempty"`
	OrgTier OrgTier `json:"org_tier,omitempty"`
	PolTier PolTier `json:"pol_tier,omitempty"`
}

// HasOrgSide reports whether the actor acts on behalf of an organization.
func (c UserContext) HasOrgSide() bool {
	return c.Side == SideOrg || c.Side == SideDual
}

// HasPolSide reports whether the actor acts as an officeholder.
func (c UserContext) HasPolSide() bool {
	return c.Side == SidePol || c.Side == SideDual
}
