package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*Subscription, error)
	Insert(ctx context.Context, db *gorm.DB, sub *Subscription) error

	// Update overwrites status, tier, cancel flag and event timestamp in
	// place, keyed by external id.
	Update(ctx context.Context, db *gorm.DB, sub *Subscription) error

	// MarkCanceled sets the status to canceled, keyed by external id.
	MarkCanceled(ctx context.Context, db *gorm.DB, externalID string, eventTS time.Time) error

	// FindEntitlingByOwner returns the newest subscription for the owner
	// whose status still grants its tier, or nil when none does.
	FindEntitlingByOwner(ctx context.Context, db *gorm.DB, ownerExternalID, ownerType string) (*Subscription, error)
}
