package calcrun

import (
	"github.com/railzwaylabs/landedcost/internal/calcrun/repository"
	"github.com/railzwaylabs/landedcost/internal/calcrun/service"
	landedcostdomain "github.com/railzwaylabs/landedcost/internal/landedcost/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("calcrun.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) landedcostdomain.RunRecorder { return s }),
)
