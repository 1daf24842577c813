package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Upsert inserts the account or, when the external id already exists,
	// overwrites email, names and updated_at only.
	Upsert(ctx context.Context, db *gorm.DB, account *Account) error
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*Account, error)
}
