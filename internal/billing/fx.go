package billing

import (
	"github.com/polarishq/polaris/internal/billing/adapters/stripe"
	billingdomain "github.com/polarishq/polaris/internal/billing/domain"
	"github.com/polarishq/polaris/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.adapter",
	fx.Provide(func(cfg config.Config) (billingdomain.Adapter, error) {
		return stripe.New(cfg.BillingWebhookSecret)
	}),
)
