package identity

import (
	"github.com/polarishq/polaris/internal/config"
	"github.com/polarishq/polaris/internal/identity/adapters/clerk"
	identitydomain "github.com/polarishq/polaris/internal/identity/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.adapter",
	fx.Provide(func(cfg config.Config) (identitydomain.Adapter, error) {
		return clerk.New(cfg.IdentityWebhookSecret)
	}),
)
