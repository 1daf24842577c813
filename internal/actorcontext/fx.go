package actorcontext

import "go.uber.org/fx"

var Module = fx.Module("actorcontext",
	fx.Provide(NewLoader),
)
