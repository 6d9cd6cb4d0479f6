package bootstrap

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/landedcost/internal/config"
	referencedomain "github.com/railzwaylabs/landedcost/internal/reference/domain"
	"github.com/railzwaylabs/landedcost/internal/reference/loader"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EnsureReferenceData loads bootstrap.seed_dir on start when no tariff
// version exists yet. Dev and demo setups use it; production seeds through
// the seed command.
func EnsureReferenceData(lc fx.Lifecycle, cfg config.Config, db *gorm.DB, genID *snowflake.Node, log *zap.Logger) {
	dir := cfg.Bootstrap.SeedDir
	if dir == "" {
		return
	}
	log = log.Named("bootstrap")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			loaded, err := SeedIfEmpty(ctx, db, loader.New(db, genID, log), dir)
			if err != nil {
				return err
			}
			if loaded == nil {
				log.Info("reference data present; skipping seed", zap.String("dir", dir))
				return nil
			}
			log.Info("reference data seeded", zap.String("dir", dir), zap.Any("rows", loaded))
			return nil
		},
	})
}

// SeedIfEmpty runs the loader only when tariff_versions is empty. It returns
// a nil summary when nothing was loaded.
func SeedIfEmpty(ctx context.Context, db *gorm.DB, l *loader.Loader, dir string) (loader.Summary, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&referencedomain.TariffVersion{}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count tariff versions: %w", err)
	}
	if count > 0 {
		return nil, nil
	}
	summary, err := l.LoadDir(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("seed reference data from %s: %w", dir, err)
	}
	return summary, nil
}
