package risk

import "go.uber.org/fx"

var Module = fx.Module("risk.service",
	fx.Provide(NewService),
)
