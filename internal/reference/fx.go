package reference

import (
	"github.com/railzwaylabs/landedcost/internal/reference/repository"
	"github.com/railzwaylabs/landedcost/internal/reference/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reference.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
