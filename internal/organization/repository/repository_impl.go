package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/polarishq/polaris/internal/organization/domain"
	pkgdb "github.com/polarishq/polaris/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, org *domain.Organization) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":       org.Name,
			"slug":       org.Slug,
			"updated_at": org.UpdatedAt,
		}),
	}).Create(org).Error
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.Organization, error) {
	var org domain.Organization
	err := db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &org, nil
}

func (r *repo) SetTier(ctx context.Context, db *gorm.DB, externalID, tier, customerID, subscriptionID string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE organizations
		 SET tier = ?, billing_customer_id = ?, billing_subscription_id = ?, updated_at = ?
		 WHERE external_id = ?`,
		tier,
		customerID,
		subscriptionID,
		time.Now().UTC(),
		externalID,
	).Error
}

func (r *repo) ResetTier(ctx context.Context, db *gorm.DB, externalID, tier string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE organizations
		 SET tier = ?, billing_subscription_id = NULL, updated_at = ?
		 WHERE external_id = ?`,
		tier,
		time.Now().UTC(),
		externalID,
	).Error
}

func (r *repo) AddMember(ctx context.Context, db *gorm.DB, member *domain.Membership) error {
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "org_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(member).Error
	if err != nil && pkgdb.IsDuplicateKeyErr(err) {
		return nil
	}
	return err
}

func (r *repo) FindMember(ctx context.Context, db *gorm.DB, orgID, userID snowflake.ID) (*domain.Membership, error) {
	var member domain.Membership
	err := db.WithContext(ctx).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (r *repo) FindPrimaryForUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Organization, *domain.Membership, error) {
	var member domain.Membership
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc, id asc").
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var org domain.Organization
	err = db.WithContext(ctx).
		Where("id = ?", member.OrgID).
		First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return &org, &member, nil
}

func (r *repo) ListAdminEmails(ctx context.Context, db *gorm.DB, externalID string) ([]string, error) {
	var emails []string
	err := db.WithContext(ctx).Raw(
		`SELECT a.email
		 FROM accounts a
		 JOIN memberships m ON m.user_id = a.id
		 JOIN organizations o ON o.id = m.org_id
		 WHERE o.external_id = ? AND m.role IN ('owner', 'admin') AND a.email <> ''
		 ORDER BY a.email`,
		externalID,
	).Scan(&emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}
