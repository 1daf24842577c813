package reconcile

import (
	"github.com/polarishq/polaris/internal/reconcile/repository"
	"github.com/polarishq/polaris/internal/reconcile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reconcile.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
