package ratehunter

import (
	landedcostservice "github.com/railzwaylabs/landedcost/internal/landedcost/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ratehunter.service",
	fx.Provide(func(s *landedcostservice.Service) Calculator { return s }),
	fx.Provide(NewService),
)
