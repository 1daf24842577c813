package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	accountdomain "github.com/polarishq/polaris/internal/account/domain"
	auditdomain "github.com/polarishq/polaris/internal/audit/domain"
	billingdomain "github.com/polarishq/polaris/internal/billing/domain"
	"github.com/polarishq/polaris/internal/cache"
	"github.com/polarishq/polaris/internal/entitlement"
	identitydomain "github.com/polarishq/polaris/internal/identity/domain"
	obsmetrics "github.com/polarishq/polaris/internal/observability/metrics"
	orgdomain "github.com/polarishq/polaris/internal/organization/domain"
	"github.com/polarishq/polaris/internal/providers/email"
	reconciledomain "github.com/polarishq/polaris/internal/reconcile/domain"
	subscriptiondomain "github.com/polarishq/polaris/internal/subscription/domain"
	"github.com/polarishq/polaris/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	GenID            *snowflake.Node
	Repo             reconciledomain.Repository
	AccountRepo      accountdomain.Repository
	OrgRepo          orgdomain.Repository
	SubscriptionRepo subscriptiondomain.Repository
	AuditSvc         auditdomain.Service
	Email            email.Provider         `optional:"true"`
	ContextCache     cache.UserContextCache `optional:"true"`
	ObsMetrics       *obsmetrics.Metrics    `optional:"true"`
}

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	genID            *snowflake.Node
	repo             reconciledomain.Repository
	accountRepo      accountdomain.Repository
	orgRepo          orgdomain.Repository
	subscriptionRepo subscriptiondomain.Repository
	auditSvc         auditdomain.Service
	email            email.Provider
	contextCache     cache.UserContextCache
	obsMetrics       *obsmetrics.Metrics
}

func NewService(p Params) reconciledomain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("reconcile.service"),
		genID:            p.GenID,
		repo:             p.Repo,
		accountRepo:      p.AccountRepo,
		orgRepo:          p.OrgRepo,
		subscriptionRepo: p.SubscriptionRepo,
		auditSvc:         p.AuditSvc,
		email:            p.Email,
		contextCache:     p.ContextCache,
		obsMetrics:       p.ObsMetrics,
	}
}

func (s *Service) ApplyIdentityEvent(ctx context.Context, providerEventID string, event identitydomain.Event, payload []byte) error {
	if event == nil {
		return reconciledomain.ErrInvalidEvent
	}
	providerEventID = strings.TrimSpace(providerEventID)
	if providerEventID == "" {
		return reconciledomain.ErrInvalidEvent
	}
	if !json.Valid(payload) {
		return reconciledomain.ErrInvalidPayload
	}

	ctx, _ = correlation.EnsureCorrelationID(ctx)

	stored, fresh, err := s.recordEvent(ctx, reconciledomain.SourceIdentity, providerEventID, event.Kind(), payload)
	if err != nil {
		return err
	}
	if stored == nil {
		// Redelivery of a fully processed event converges to a no-op.
		s.recordOutcome(ctx, event.Kind(), reconciledomain.OutcomeDuplicate)
		return nil
	}

	outcome, err := s.applyIdentity(ctx, event)
	if err != nil {
		return err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, stored.ID, time.Now().UTC()); err != nil {
		return err
	}
	if fresh {
		s.recordOutcome(ctx, event.Kind(), outcome)
	}
	return nil
}

func (s *Service) ApplyBillingEvent(ctx context.Context, event billingdomain.Event, payload []byte) error {
	if event == nil {
		return reconciledomain.ErrInvalidEvent
	}
	if !json.Valid(payload) {
		return reconciledomain.ErrInvalidPayload
	}

	var providerEventID string
	switch ev := event.(type) {
	case billingdomain.SubscriptionUpserted:
		providerEventID = ev.ProviderEventID
	case billingdomain.SubscriptionRemoved:
		providerEventID = ev.ProviderEventID
	default:
		return reconciledomain.ErrInvalidEvent
	}
	providerEventID = strings.TrimSpace(providerEventID)
	if providerEventID == "" {
		return reconciledomain.ErrInvalidEvent
	}

	ctx, _ = correlation.EnsureCorrelationID(ctx)

	stored, fresh, err := s.recordEvent(ctx, reconciledomain.SourceBilling, providerEventID, event.Kind(), payload)
	if err != nil {
		return err
	}
	if stored == nil {
		s.recordOutcome(ctx, event.Kind(), reconciledomain.OutcomeDuplicate)
		return nil
	}

	outcome, err := s.applyBilling(ctx, event)
	if err != nil {
		return err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, stored.ID, time.Now().UTC()); err != nil {
		return err
	}
	if fresh {
		s.recordOutcome(ctx, event.Kind(), outcome)
	}
	return nil
}

// recordEvent inserts the intake row. It returns (nil, false, nil) when
// the event was already processed to completion, and the stored row
// otherwise so an interrupted first attempt can be retried.
func (s *Service) recordEvent(ctx context.Context, source, providerEventID, eventType string, payload []byte) (*reconciledomain.WebhookEventRecord, bool, error) {
	received := reconciledomain.WebhookEventRecord{
		ID:              s.genID.Generate(),
		Source:          source,
		ProviderEventID: providerEventID,
		EventType:       eventType,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      time.Now().UTC(),
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return nil, false, err
	}
	if inserted {
		return &received, true, nil
	}

	stored, err := s.repo.FindEvent(ctx, s.db, source, providerEventID)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, reconciledomain.ErrInvalidEvent
	}
	if stored.ProcessedAt != nil {
		return nil, false, nil
	}
	return stored, false, nil
}

func (s *Service) applyIdentity(ctx context.Context, event identitydomain.Event) (string, error) {
	switch ev := event.(type) {
	case identitydomain.AccountUpserted:
		return s.upsertAccount(ctx, ev)
	case identitydomain.OrganizationUpserted:
		return s.upsertOrganization(ctx, ev)
	case identitydomain.MembershipCreated:
		return s.createMembership(ctx, ev)
	default:
		return "", reconciledomain.ErrInvalidEvent
	}
}

func (s *Service) upsertAccount(ctx context.Context, ev identitydomain.AccountUpserted) (string, error) {
	if strings.TrimSpace(ev.ExternalID) == "" {
		return "", reconciledomain.ErrInvalidEvent
	}

	account := accountdomain.Account{
		ID:         s.genID.Generate(),
		ExternalID: ev.ExternalID,
		Email:      strings.ToLower(strings.TrimSpace(ev.Email)),
		FirstName:  strings.TrimSpace(ev.FirstName),
		LastName:   strings.TrimSpace(ev.LastName),
		Side:       accountdomain.SideOrg,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.accountRepo.Upsert(ctx, tx, &account)
	})
	if err != nil {
		return "", err
	}

	s.invalidateActor(ctx, ev.ExternalID)
	s.writeAuditLog(ctx, "reconcile.account.upserted", nil, "account", ev.ExternalID, map[string]any{
		"email": account.Email,
	})
	return reconciledomain.OutcomeApplied, nil
}

func (s *Service) upsertOrganization(ctx context.Context, ev identitydomain.OrganizationUpserted) (string, error) {
	if strings.TrimSpace(ev.ExternalID) == "" {
		return "", reconciledomain.ErrInvalidEvent
	}

	orgSlug := strings.TrimSpace(ev.Slug)
	if orgSlug == "" {
		orgSlug = slug.Make(ev.Name)
	}

	org := orgdomain.Organization{
		ID:         s.genID.Generate(),
		ExternalID: ev.ExternalID,
		Name:       strings.TrimSpace(ev.Name),
		Slug:       orgSlug,
		Tier:       string(entitlement.OrgTierStarter),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.orgRepo.Upsert(ctx, tx, &org)
	})
	if err != nil {
		return "", err
	}

	s.writeAuditLog(ctx, "reconcile.organization.upserted", &ev.ExternalID, "organization", ev.ExternalID, map[string]any{
		"name": org.Name,
		"slug": org.Slug,
	})
	return reconciledomain.OutcomeApplied, nil
}

// createMembership links an account to an organization. When either
// side has not been mirrored yet the event is dropped, not failed:
// the provider will emit fresh membership state once both exist.
func (s *Service) createMembership(ctx context.Context, ev identitydomain.MembershipCreated) (string, error) {
	if strings.TrimSpace(ev.OrgExternalID) == "" || strings.TrimSpace(ev.UserExternalID) == "" {
		return "", reconciledomain.ErrInvalidEvent
	}

	outcome := reconciledomain.OutcomeApplied
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := s.orgRepo.FindByExternalID(ctx, tx, ev.OrgExternalID)
		if err != nil {
			return err
		}
		account, err := s.accountRepo.FindByExternalID(ctx, tx, ev.UserExternalID)
		if err != nil {
			return err
		}
		if org == nil || account == nil {
			outcome = reconciledomain.OutcomeDropped
			return nil
		}

		member := orgdomain.Membership{
			ID:        s.genID.Generate(),
			OrgID:     org.ID,
			UserID:    account.ID,
			Role:      string(entitlement.ParseOrgRole(ev.Role)),
			CreatedAt: time.Now().UTC(),
		}
		return s.orgRepo.AddMember(ctx, tx, &member)
	})
	if err != nil {
		return "", err
	}

	if outcome == reconciledomain.OutcomeDropped {
		s.log.Warn("membership references unknown account or organization",
			zap.String("org_external_id", ev.OrgExternalID),
			zap.String("user_external_id", ev.UserExternalID),
		)
		s.writeAuditLog(ctx, "reconcile.membership.dropped", &ev.OrgExternalID, "membership", ev.UserExternalID, map[string]any{
			"org_external_id":  ev.OrgExternalID,
			"user_external_id": ev.UserExternalID,
		})
		return outcome, nil
	}

	s.invalidateActor(ctx, ev.UserExternalID)
	s.writeAuditLog(ctx, "reconcile.membership.created", &ev.OrgExternalID, "membership", ev.UserExternalID, map[string]any{
		"org_external_id":  ev.OrgExternalID,
		"user_external_id": ev.UserExternalID,
		"role":             string(entitlement.ParseOrgRole(ev.Role)),
	})
	return outcome, nil
}

func (s *Service) applyBilling(ctx context.Context, event billingdomain.Event) (string, error) {
	switch ev := event.(type) {
	case billingdomain.SubscriptionUpserted:
		return s.upsertSubscription(ctx, ev)
	case billingdomain.SubscriptionRemoved:
		return s.removeSubscription(ctx, ev)
	default:
		return "", reconciledomain.ErrInvalidEvent
	}
}

func (s *Service) upsertSubscription(ctx context.Context, ev billingdomain.SubscriptionUpserted) (string, error) {
	if strings.TrimSpace(ev.ExternalID) == "" {
		return "", reconciledomain.ErrInvalidEvent
	}

	status := subscriptiondomain.MapStatus(ev.RawStatus)
	tier := entitlement.ParseOrgTier(ev.Tier)

	outcome := reconciledomain.OutcomeApplied
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.subscriptionRepo.FindByExternalID(ctx, tx, ev.ExternalID)
		if err != nil {
			return err
		}
		if existing != nil && !ev.OccurredAt.IsZero() && existing.EventTS.After(ev.OccurredAt) {
			// Out-of-order delivery: a newer provider state already
			// landed. Applying this one would regress it.
			outcome = reconciledomain.OutcomeSkippedStale
			return nil
		}

		sub := subscriptiondomain.Subscription{
			ExternalID:        ev.ExternalID,
			BillingCustomerID: ev.CustomerID,
			OwnerExternalID:   ev.OrgExternalID,
			OwnerType:         subscriptiondomain.OwnerTypeOrganization,
			Tier:              string(tier),
			Status:            status,
			CancelAtPeriodEnd: ev.CancelAtPeriodEnd,
			EventTS:           ev.OccurredAt.UTC(),
		}
		if ev.OrgExternalID == "" {
			// No organization correlation in provider metadata. The
			// mirror stays addressable through its billing customer
			// until a correlated event restores the organization owner.
			sub.OwnerExternalID = ev.CustomerID
			sub.OwnerType = subscriptiondomain.OwnerTypeCustomer
		}
		if existing == nil {
			sub.ID = s.genID.Generate()
			if err := s.subscriptionRepo.Insert(ctx, tx, &sub); err != nil {
				return err
			}
		} else {
			sub.ID = existing.ID
			if ev.OrgExternalID == "" && existing.OwnerType == subscriptiondomain.OwnerTypeOrganization {
				sub.OwnerExternalID = existing.OwnerExternalID
				sub.OwnerType = existing.OwnerType
			}
			if err := s.subscriptionRepo.Update(ctx, tx, &sub); err != nil {
				return err
			}
		}

		if sub.OwnerType != subscriptiondomain.OwnerTypeOrganization || sub.OwnerExternalID == "" {
			// The subscription mirror is kept so a later correlated
			// event can pick it up.
			outcome = reconciledomain.OutcomeDegraded
			return nil
		}

		if sub.Entitles() {
			return s.orgRepo.SetTier(ctx, tx, sub.OwnerExternalID, string(tier), ev.CustomerID, ev.ExternalID)
		}
		return s.orgRepo.ResetTier(ctx, tx, sub.OwnerExternalID, string(entitlement.OrgTierStarter))
	})
	if err != nil {
		return "", err
	}

	metadata := map[string]any{
		"subscription_external_id": ev.ExternalID,
		"status":                   string(status),
		"tier":                     string(tier),
		"cancel_at_period_end":     ev.CancelAtPeriodEnd,
	}
	if !ev.OccurredAt.IsZero() {
		metadata["occurred_at"] = ev.OccurredAt.UTC().Format(time.RFC3339)
	}

	switch outcome {
	case reconciledomain.OutcomeSkippedStale:
		s.writeAuditLog(ctx, "reconcile.subscription.skipped_stale", orgRefOrNil(ev.OrgExternalID), "subscription", ev.ExternalID, metadata)
	case reconciledomain.OutcomeDegraded:
		s.log.Warn("subscription event missing organization correlation",
			zap.String("subscription_external_id", ev.ExternalID),
		)
		s.writeAuditLog(ctx, "reconcile.subscription.degraded", nil, "subscription", ev.ExternalID, metadata)
	default:
		s.writeAuditLog(ctx, "reconcile.subscription.upserted", orgRefOrNil(ev.OrgExternalID), "subscription", ev.ExternalID, metadata)
	}
	return outcome, nil
}

// removeSubscription marks the mirror canceled and drops the owning
// organization back to the starter tier. The billing customer reference
// stays on the organization so a later resubscribe reuses it.
func (s *Service) removeSubscription(ctx context.Context, ev billingdomain.SubscriptionRemoved) (string, error) {
	if strings.TrimSpace(ev.ExternalID) == "" {
		return "", reconciledomain.ErrInvalidEvent
	}

	orgExternalID := ev.OrgExternalID
	outcome := reconciledomain.OutcomeApplied
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.subscriptionRepo.FindByExternalID(ctx, tx, ev.ExternalID)
		if err != nil {
			return err
		}
		if existing != nil && !ev.OccurredAt.IsZero() && existing.EventTS.After(ev.OccurredAt) {
			// A newer provider state already landed. Cancelling now
			// would regress it.
			outcome = reconciledomain.OutcomeSkippedStale
			return nil
		}
		if orgExternalID == "" && existing != nil && existing.OwnerType == subscriptiondomain.OwnerTypeOrganization {
			orgExternalID = existing.OwnerExternalID
		}

		if err := s.subscriptionRepo.MarkCanceled(ctx, tx, ev.ExternalID, ev.OccurredAt.UTC()); err != nil {
			return err
		}
		if orgExternalID == "" {
			return nil
		}
		return s.orgRepo.ResetTier(ctx, tx, orgExternalID, string(entitlement.OrgTierStarter))
	})
	if err != nil {
		return "", err
	}

	if outcome == reconciledomain.OutcomeSkippedStale {
		s.writeAuditLog(ctx, "reconcile.subscription.skipped_stale", orgRefOrNil(orgExternalID), "subscription", ev.ExternalID, map[string]any{
			"subscription_external_id": ev.ExternalID,
			"occurred_at":              ev.OccurredAt.UTC().Format(time.RFC3339),
		})
		return outcome, nil
	}

	if orgExternalID == "" {
		outcome = reconciledomain.OutcomeDegraded
	}
	s.writeAuditLog(ctx, "reconcile.subscription.canceled", orgRefOrNil(orgExternalID), "subscription", ev.ExternalID, map[string]any{
		"subscription_external_id": ev.ExternalID,
	})
	if orgExternalID != "" {
		s.notifyDowngrade(ctx, orgExternalID)
	}
	return outcome, nil
}

// notifyDowngrade mails the organization's admins after a cancellation
// drops them to the starter tier. Delivery failure is logged, never
// surfaced: the reconciliation already committed.
func (s *Service) notifyDowngrade(ctx context.Context, orgExternalID string) {
	if s.email == nil {
		return
	}
	recipients, err := s.orgRepo.ListAdminEmails(ctx, s.db, orgExternalID)
	if err != nil {
		s.log.Warn("failed to load downgrade recipients",
			zap.String("org_external_id", orgExternalID),
			zap.Error(err),
		)
		return
	}
	if len(recipients) == 0 {
		return
	}

	subject := "Your subscription has ended"
	body := "<p>Your organization's subscription has been canceled and the account has moved to the Starter plan. " +
		"Saved data is untouched; paid features are paused until you resubscribe.</p>"
	if err := s.email.Send(ctx, recipients, subject, body); err != nil {
		s.log.Warn("failed to send downgrade notification",
			zap.String("org_external_id", orgExternalID),
			zap.Error(err),
		)
	}
}

// invalidateActor drops the actor's cached entitlement context so the
// next request sees the reconciled state. Tier changes driven by
// billing events are organization wide and age out with the cache TTL
// instead.
func (s *Service) invalidateActor(ctx context.Context, userExternalID string) {
	if s.contextCache == nil {
		return
	}
	s.contextCache.Invalidate(ctx, userExternalID)
}

func (s *Service) recordOutcome(ctx context.Context, eventType, outcome string) {
	if s.obsMetrics == nil || outcome == "" {
		return
	}
	s.obsMetrics.RecordReconcileOutcome(ctx, eventType, outcome)
}

func (s *Service) writeAuditLog(ctx context.Context, action string, orgRef *string, targetType, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if cid := correlation.ExtractCorrelationID(ctx); cid != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata["correlation_id"] = cid
	}
	actorType := string(auditdomain.ActorTypeWebhook)
	if err := s.auditSvc.AuditLog(ctx, orgRef, actorType, nil, action, targetType, &targetID, metadata); err != nil {
		s.log.Warn("failed to write reconcile audit log", zap.String("action", action), zap.Error(err))
	}
}

func orgRefOrNil(orgExternalID string) *string {
	if strings.TrimSpace(orgExternalID) == "" {
		return nil
	}
	return &orgExternalID
}
