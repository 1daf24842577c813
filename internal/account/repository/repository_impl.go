package repository

import (
	"context"
	"errors"

	"github.com/polarishq/polaris/internal/account/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"email":      account.Email,
			"first_name": account.FirstName,
			"last_name":  account.LastName,
			"updated_at": account.UpdatedAt,
		}),
	}).Create(account).Error
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}
