// Package domain contains persistence models for mirrored billing
// subscriptions and the canonical status mapping.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// OwnerType records what kind of entity a subscription bills for.
const (
	OwnerTypeOrganization = "organization"
	OwnerTypeCustomer     = "customer"
)

// Subscription mirrors one external billing subscription. The row is
// keyed by the provider's subscription id; replays of the same event
// converge because every field is overwrite-on-conflict.
type Subscription struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	ExternalID        string            `gorm:"type:text;not null;uniqueIndex:ux_subscriptions_external_id" json:"external_id"`
	BillingCustomerID string            `gorm:"type:text;not null" json:"billing_customer_id"`
	OwnerExternalID   string            `gorm:"type:text;not null;index" json:"owner_external_id"`
	OwnerType         string            `gorm:"type:text;not null" json:"owner_type"`
	Tier              string            `gorm:"type:text;not null" json:"tier"`
	Status            Status            `gorm:"type:text;not null" json:"status"`
	CancelAtPeriodEnd bool              `gorm:"not null;default:false" json:"cancel_at_period_end"`
	EventTS           time.Time         `gorm:"column:event_ts;not null" json:"event_ts"`
	Metadata          datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// Entitles reports whether the subscription grants its tier. Canceled
// and unknown statuses never entitle.
func (s Subscription) Entitles() bool {
	switch s.Status {
	case StatusActive, StatusTrialing, StatusPastDue, StatusPaused:
		return true
	default:
		return false
	}
}
