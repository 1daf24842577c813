// Package domain contains persistence models for identity-provider accounts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Side classifies which half of the platform an account belongs to.
const (
	SideOrg  = "org"
	SidePol  = "pol"
	SideDual = "dual"
)

// Account represents a person mirrored from the identity provider.
// Rows are only ever created or updated by identity events; deletion is
// managed upstream.
type Account struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	ExternalID      string       `gorm:"type:text;not null;uniqueIndex:ux_accounts_external_id" json:"external_id"`
	Email           string       `gorm:"type:text;not null" json:"email"`
	FirstName       string       `gorm:"type:text" json:"first_name"`
	LastName        string       `gorm:"type:text" json:"last_name"`
	Side            string       `gorm:"type:text;not null;default:'org'" json:"side"`
	OfficeholderRef *string      `gorm:"type:text;column:officeholder_ref" json:"officeholder_ref,omitempty"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }
