package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Upsert inserts the organization or, when the external id already
	// exists, overwrites name, slug and updated_at only. Tier and billing
	// references are untouched.
	Upsert(ctx context.Context, db *gorm.DB, org *Organization) error
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*Organization, error)

	// SetTier points the organization at a reconciled subscription. All
	// three fields move together so a reader never sees a tier without
	// its backing references.
	SetTier(ctx context.Context, db *gorm.DB, externalID, tier, customerID, subscriptionID string) error

	// ResetTier drops the organization back to the starter tier. The
	// billing customer reference is kept for historical traceability;
	// the subscription reference is cleared.
	ResetTier(ctx context.Context, db *gorm.DB, externalID, tier string) error

	// AddMember inserts a membership row. Duplicate (org, user) pairs are
	// a no-op, not an error.
	AddMember(ctx context.Context, db *gorm.DB, member *Membership) error
	FindMember(ctx context.Context, db *gorm.DB, orgID, userID snowflake.ID) (*Membership, error)

	// FindPrimaryForUser returns the user's earliest membership and its
	// organization, or nils when the user belongs to none.
	FindPrimaryForUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Organization, *Membership, error)

	// ListAdminEmails returns the addresses of the organization's owners
	// and admins, for billing notifications.
	ListAdminEmails(ctx context.Context, db *gorm.DB, externalID string) ([]string, error)
}
