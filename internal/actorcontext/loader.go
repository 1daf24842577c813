// Package actorcontext resolves the entitlement context of a request
// actor from mirrored identity and billing state.
package actorcontext

import (
	"context"
	"errors"
	"strings"

	accountdomain "github.com/polarishq/polaris/internal/account/domain"
	"github.com/polarishq/polaris/internal/cache"
	"github.com/polarishq/polaris/internal/entitlement"
	orgdomain "github.com/polarishq/polaris/internal/organization/domain"
	subscriptiondomain "github.com/polarishq/polaris/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrUnknownActor = errors.New("unknown_actor")

type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	AccountRepo      accountdomain.Repository
	OrgRepo          orgdomain.Repository
	SubscriptionRepo subscriptiondomain.Repository
	ContextCache     cache.UserContextCache
}

// Loader builds a UserContext per request. Results are cached briefly;
// the reconciler invalidates entries on identity changes, and billing
// driven tier changes age out with the cache TTL.
type Loader struct {
	db               *gorm.DB
	log              *zap.Logger
	accountRepo      accountdomain.Repository
	orgRepo          orgdomain.Repository
	subscriptionRepo subscriptiondomain.Repository
	contextCache     cache.UserContextCache
}

func NewLoader(p Params) *Loader {
	return &Loader{
		db:               p.DB,
		log:              p.Log.Named("actorcontext"),
		accountRepo:      p.AccountRepo,
		orgRepo:          p.OrgRepo,
		subscriptionRepo: p.SubscriptionRepo,
		contextCache:     p.ContextCache,
	}
}

// Load resolves the actor identified by the identity-provider user id.
// Unknown actors return ErrUnknownActor.
func (l *Loader) Load(ctx context.Context, userExternalID string) (entitlement.UserContext, error) {
	userExternalID = strings.TrimSpace(userExternalID)
	if userExternalID == "" {
		return entitlement.UserContext{}, ErrUnknownActor
	}

	if cached, ok := l.contextCache.Get(ctx, userExternalID); ok {
		return cached, nil
	}

	account, err := l.accountRepo.FindByExternalID(ctx, l.db, userExternalID)
	if err != nil {
		return entitlement.UserContext{}, err
	}
	if account == nil {
		return entitlement.UserContext{}, ErrUnknownActor
	}

	uc := entitlement.UserContext{
		UserID: account.ExternalID,
		Side:   entitlement.Side(account.Side),
	}

	if uc.HasOrgSide() {
		org, member, err := l.orgRepo.FindPrimaryForUser(ctx, l.db, account.ID)
		if err != nil {
			return entitlement.UserContext{}, err
		}
		if org != nil && member != nil {
			uc.OrgID = org.ExternalID
			uc.OrgRole = entitlement.ParseOrgRole(member.Role)
			uc.OrgTier = org.CurrentTier()
		}
	}

	if uc.HasPolSide() {
		uc.PolTier = entitlement.PolTierFoundation
		sub, err := l.subscriptionRepo.FindEntitlingByOwner(ctx, l.db, account.ExternalID, subscriptiondomain.OwnerTypeCustomer)
		if err != nil {
			return entitlement.UserContext{}, err
		}
		if sub != nil {
			uc.PolTier = entitlement.ParsePolTier(sub.Tier)
		}
	}

	l.contextCache.Set(ctx, userExternalID, uc)
	return uc, nil
}

// Invalidate drops the cached context after a reconciled change.
func (l *Loader) Invalidate(ctx context.Context, userExternalID string) {
	if strings.TrimSpace(userExternalID) == "" {
		return
	}
	l.contextCache.Invalidate(ctx, userExternalID)
}
