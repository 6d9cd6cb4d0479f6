package classification

import "go.uber.org/fx"

var Module = fx.Module("classification.service",
	fx.Provide(NewService),
)
