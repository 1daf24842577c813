// Package domain contains persistence models for organizations and memberships.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/polarishq/polaris/internal/entitlement"
	"gorm.io/datatypes"
)

// Organization represents a tenant mirrored from the identity provider.
// Tier and billing references are owned by the reconciliation engine and
// are never written by identity events.
type Organization struct {
	ID                    snowflake.ID      `gorm:"primaryKey" json:"id"`
	ExternalID            string            `gorm:"type:text;not null;uniqueIndex:ux_organizations_external_id" json:"external_id"`
	Name                  string            `gorm:"type:text;not null" json:"name"`
	Slug                  string            `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	Tier                  string            `gorm:"type:text;not null;default:'starter'" json:"tier"`
	BillingCustomerID     *string           `gorm:"type:text;column:billing_customer_id" json:"billing_customer_id,omitempty"`
	BillingSubscriptionID *string           `gorm:"type:text;column:billing_subscription_id" json:"billing_subscription_id,omitempty"`
	CountryCode           string            `gorm:"type:text;column:country_code" json:"country_code"`
	Metadata              datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt             time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt             time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// CurrentTier returns the organization tier as an entitlement tier.
func (o Organization) CurrentTier() entitlement.OrgTier {
	return entitlement.ParseOrgTier(o.Tier)
}

// Membership joins an account to an organization with a role.
type Membership struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_memberships_org_user,priority:1" json:"org_id"`
	UserID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_memberships_org_user,priority:2" json:"user_id"`
	Role      string       `gorm:"type:text;not null;default:'member'" json:"role"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Membership) TableName() string { return "memberships" }
