package migration

import (
	"strings"

	accountdomain "github.com/polarishq/polaris/internal/account/domain"
	auditdomain "github.com/polarishq/polaris/internal/audit/domain"
	"github.com/polarishq/polaris/internal/config"
	orgdomain "github.com/polarishq/polaris/internal/organization/domain"
	reconciledomain "github.com/polarishq/polaris/internal/reconcile/domain"
	subscriptiondomain "github.com/polarishq/polaris/internal/subscription/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if !strings.EqualFold(cfg.DBType, "postgres") {
			// Versioned migrations target postgres. Other dialects are
			// for local runs and tests, where the model schema is
			// authoritative.
			return conn.AutoMigrate(
				&accountdomain.Account{},
				&orgdomain.Organization{},
				&orgdomain.Membership{},
				&subscriptiondomain.Subscription{},
				&reconciledomain.WebhookEventRecord{},
				&auditdomain.AuditLog{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
