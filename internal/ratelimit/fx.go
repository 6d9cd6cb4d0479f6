package ratelimit

import (
	"github.com/railzwaylabs/landedcost/internal/ratelimit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ratelimit.service",
	fx.Provide(service.NewService),
)
