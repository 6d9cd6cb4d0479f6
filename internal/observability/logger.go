package observability

import (
	"context"

	"github.com/railzwaylabs/landedcost/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the root zap logger. Production emits JSON, everything
// else uses the colored console encoder.
func NewLogger(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := zcfg.Build(zap.Fields(
		zap.String("service", cfg.App.Name),
		zap.String("version", cfg.App.Version),
	))
	if err != nil {
		return nil, err
	}

	config.WatchFile(cfg, logger)

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = logger.Sync()
			return nil
		},
	})
	return logger, nil
}
