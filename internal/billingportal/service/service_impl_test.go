package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	accountdomain "github.com/polarishq/polaris/internal/account/domain"
	accountrepo "github.com/polarishq/polaris/internal/account/repository"
	"github.com/polarishq/polaris/internal/billingportal/domain"
	billingportalservice "github.com/polarishq/polaris/internal/billingportal/service"
	"github.com/polarishq/polaris/internal/config"
	orgdomain "github.com/polarishq/polaris/internal/organization/domain"
	orgrepo "github.com/polarishq/polaris/internal/organization/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&orgdomain.Organization{}, &accountdomain.Account{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newPortalService(t *testing.T, db *gorm.DB, apiKey string) domain.Service {
	t.Helper()

	return billingportalservice.NewService(billingportalservice.Params{
		Cfg:         config.Config{StripeAPIKey: apiKey, AppURL: "https://app.example.com"},
		DB:          db,
		Log:         zap.NewNop(),
		OrgRepo:     orgrepo.Provide(),
		AccountRepo: accountrepo.Provide(),
	})
}

func TestCheckoutWithoutProviderKey(t *testing.T) {
	db := setupTestDB(t)
	svc := newPortalService(t, db, "")

	_, err := svc.CreateCheckoutSession(context.Background(), domain.CheckoutRequest{
		OrgExternalID: "org_1",
		Tier:          "professional",
		Interval:      domain.IntervalMonthly,
	})
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestCheckoutValidatesTierAndInterval(t *testing.T) {
	db := setupTestDB(t)
	svc := newPortalService(t, db, "sk_test_123")

	cases := []struct {
		tier     string
		interval string
		expected error
	}{
		{"platinum", domain.IntervalMonthly, domain.ErrInvalidTier},
		{"starter", domain.IntervalMonthly, domain.ErrInvalidTier},
		{"professional", "weekly", domain.ErrInvalidInterval},
	}
	for _, tc := range cases {
		_, err := svc.CreateCheckoutSession(context.Background(), domain.CheckoutRequest{
			OrgExternalID: "org_1",
			Tier:          tc.tier,
			Interval:      tc.interval,
		})
		if !errors.Is(err, tc.expected) {
			t.Fatalf("tier=%q interval=%q: expected %v, got %v", tc.tier, tc.interval, tc.expected, err)
		}
	}
}

func TestCheckoutWithoutPriceConfigured(t *testing.T) {
	db := setupTestDB(t)
	svc := newPortalService(t, db, "sk_test_123")

	// No STRIPE_PRICE_ENTERPRISE_ANNUAL in the environment.
	_, err := svc.CreateCheckoutSession(context.Background(), domain.CheckoutRequest{
		OrgExternalID: "org_1",
		Tier:          "enterprise",
		Interval:      domain.IntervalAnnual,
	})
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured for missing price, got %v", err)
	}
}

func TestPortalRequiresKnownOrganizationAndCustomer(t *testing.T) {
	db := setupTestDB(t)
	svc := newPortalService(t, db, "sk_test_123")

	_, err := svc.CreatePortalSession(context.Background(), domain.PortalRequest{OrgExternalID: "org_missing"})
	if !errors.Is(err, domain.ErrUnknownOrganization) {
		t.Fatalf("expected ErrUnknownOrganization, got %v", err)
	}

	if err := db.Exec(
		`INSERT INTO organizations (id, external_id, name, slug, tier, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		1, "org_1", "Acme", "acme", "professional", time.Now().UTC(), time.Now().UTC(),
	).Error; err != nil {
		t.Fatalf("seed organization: %v", err)
	}

	_, err = svc.CreatePortalSession(context.Background(), domain.PortalRequest{OrgExternalID: "org_1"})
	if !errors.Is(err, domain.ErrNoBillingCustomer) {
		t.Fatalf("expected ErrNoBillingCustomer, got %v", err)
	}
}
