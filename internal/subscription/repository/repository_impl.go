package repository

import (
	"context"
	"errors"
	"time"

	"github.com/polarishq/polaris/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return db.WithContext(ctx).Create(sub).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET status = ?, tier = ?, cancel_at_period_end = ?, event_ts = ?,
		     billing_customer_id = ?, owner_external_id = ?, owner_type = ?, updated_at = ?
		 WHERE external_id = ?`,
		sub.Status,
		sub.Tier,
		sub.CancelAtPeriodEnd,
		sub.EventTS,
		sub.BillingCustomerID,
		sub.OwnerExternalID,
		sub.OwnerType,
		time.Now().UTC(),
		sub.ExternalID,
	).Error
}

func (r *repo) MarkCanceled(ctx context.Context, db *gorm.DB, externalID string, eventTS time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET status = ?, event_ts = ?, updated_at = ?
		 WHERE external_id = ?`,
		domain.StatusCanceled,
		eventTS,
		time.Now().UTC(),
		externalID,
	).Error
}

func (r *repo) FindEntitlingByOwner(ctx context.Context, db *gorm.DB, ownerExternalID, ownerType string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := db.WithContext(ctx).
		Where("owner_external_id = ? AND owner_type = ?", ownerExternalID, ownerType).
		Where("status IN ?", []domain.Status{
			domain.StatusActive,
			domain.StatusTrialing,
			domain.StatusPastDue,
			domain.StatusPaused,
		}).
		Order("event_ts desc, id desc").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}
