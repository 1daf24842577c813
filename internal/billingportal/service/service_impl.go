package service

import (
	"context"
	"fmt"
	"os"
	"strings"

	accountdomain "github.com/polarishq/polaris/internal/account/domain"
	"github.com/polarishq/polaris/internal/billingportal/domain"
	"github.com/polarishq/polaris/internal/config"
	"github.com/polarishq/polaris/internal/entitlement"
	orgdomain "github.com/polarishq/polaris/internal/organization/domain"
	stripe "github.com/stripe/stripe-go/v82"
	stripeclient "github.com/stripe/stripe-go/v82/client"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg         config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	OrgRepo     orgdomain.Repository
	AccountRepo accountdomain.Repository
}

type Service struct {
	cfg         config.Config
	db          *gorm.DB
	log         *zap.Logger
	orgRepo     orgdomain.Repository
	accountRepo accountdomain.Repository
	stripe      *stripeclient.API
}

func NewService(p Params) domain.Service {
	svc := &Service{
		cfg:         p.Cfg,
		db:          p.DB,
		log:         p.Log.Named("billingportal.service"),
		orgRepo:     p.OrgRepo,
		accountRepo: p.AccountRepo,
	}
	if key := strings.TrimSpace(p.Cfg.StripeAPIKey); key != "" {
		api := &stripeclient.API{}
		api.Init(key, nil)
		svc.stripe = api
	}
	return svc
}

func (s *Service) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.Session, error) {
	if s.stripe == nil {
		return nil, domain.ErrNotConfigured
	}
	if !entitlement.ValidOrgTier(req.Tier) || entitlement.ParseOrgTier(req.Tier) == entitlement.OrgTierStarter {
		return nil, domain.ErrInvalidTier
	}
	if req.Interval != domain.IntervalMonthly && req.Interval != domain.IntervalAnnual {
		return nil, domain.ErrInvalidInterval
	}

	priceID := lookupPriceID(req.Tier, req.Interval)
	if priceID == "" {
		return nil, domain.ErrNotConfigured
	}

	org, err := s.orgRepo.FindByExternalID(ctx, s.db, req.OrgExternalID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrUnknownOrganization
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.cfg.AppURL + "/settings/billing?status=success"),
		CancelURL:  stripe.String(s.cfg.AppURL + "/settings/billing?status=canceled"),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"tier":  req.Tier,
				"orgId": org.ExternalID,
			},
		},
	}
	if err := s.applyCheckoutCustomer(ctx, params, org, req.ActorExternalID); err != nil {
		return nil, err
	}
	params.Context = ctx

	session, err := s.stripe.CheckoutSessions.New(params)
	if err != nil {
		s.log.Warn("checkout session create failed",
			zap.String("org_external_id", org.ExternalID),
			zap.Error(err),
		)
		return nil, err
	}

	return &domain.Session{ID: session.ID, URL: session.URL}, nil
}

func (s *Service) CreatePortalSession(ctx context.Context, req domain.PortalRequest) (*domain.Session, error) {
	if s.stripe == nil {
		return nil, domain.ErrNotConfigured
	}

	org, err := s.orgRepo.FindByExternalID(ctx, s.db, req.OrgExternalID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrUnknownOrganization
	}
	if org.BillingCustomerID == nil || *org.BillingCustomerID == "" {
		return nil, domain.ErrNoBillingCustomer
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(*org.BillingCustomerID),
		ReturnURL: stripe.String(s.cfg.AppURL + "/settings/billing"),
	}
	params.Context = ctx

	session, err := s.stripe.BillingPortalSessions.New(params)
	if err != nil {
		s.log.Warn("portal session create failed",
			zap.String("org_external_id", org.ExternalID),
			zap.Error(err),
		)
		return nil, err
	}

	return &domain.Session{ID: session.ID, URL: session.URL}, nil
}

// applyCheckoutCustomer attaches the stored billing customer when the
// organization has one, and otherwise prefills the actor's email so the
// provider creates the customer against a deliverable address.
func (s *Service) applyCheckoutCustomer(ctx context.Context, params *stripe.CheckoutSessionParams, org *orgdomain.Organization, actorExternalID string) error {
	if org.BillingCustomerID != nil && *org.BillingCustomerID != "" {
		params.Customer = stripe.String(*org.BillingCustomerID)
		return nil
	}
	if strings.TrimSpace(actorExternalID) == "" {
		return nil
	}
	account, err := s.accountRepo.FindByExternalID(ctx, s.db, actorExternalID)
	if err != nil {
		return err
	}
	if account != nil && strings.TrimSpace(account.Email) != "" {
		params.CustomerEmail = stripe.String(account.Email)
	}
	return nil
}

// lookupPriceID reads the provider price for a tier and interval, e.g.
// STRIPE_PRICE_PROFESSIONAL_MONTHLY.
func lookupPriceID(tier, interval string) string {
	key := fmt.Sprintf("STRIPE_PRICE_%s_%s",
		strings.ToUpper(strings.TrimSpace(tier)),
		strings.ToUpper(strings.TrimSpace(interval)),
	)
	return strings.TrimSpace(os.Getenv(key))
}
