package audit

import (
	"github.com/polarishq/polaris/internal/audit/repository"
	"github.com/polarishq/polaris/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
