package db

import (
	"context"
	"fmt"
	"time"

	"github.com/railzwaylabs/landedcost/internal/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormprometheus "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(New),
)

// New opens the Postgres connection pool, wires tracing and pool metrics,
// and closes the pool when the application stops.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dbCfg := cfg.Database

	logLevel := logger.Warn
	if dbCfg.LogSQL {
		logLevel = logger.Info
	}

	conn, err := gorm.Open(postgres.Open(dbCfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(dbCfg.Name))); err != nil {
		return nil, fmt.Errorf("register tracing plugin: %w", err)
	}
	if err := conn.Use(gormprometheus.New(gormprometheus.Config{
		DBName:          dbCfg.Name,
		RefreshInterval: 15,
		StartServer:     false,
	})); err != nil {
		return nil, fmt.Errorf("register metrics plugin: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxIdleConns(dbCfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dbCfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(dbCfg.MaxConnLifetimeSeconds) * time.Second)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := sqlDB.PingContext(ctx); err != nil {
				return fmt.Errorf("failed to ping database: %w", err)
			}
			log.Info("database connection established",
				zap.String("host", dbCfg.Host),
				zap.Int("port", dbCfg.Port),
				zap.String("database", dbCfg.Name),
			)
			return nil
		},
		OnStop: func(context.Context) error {
			if err := sqlDB.Close(); err != nil {
				return fmt.Errorf("failed to close database: %w", err)
			}
			log.Info("database connection closed")
			return nil
		},
	})

	return conn, nil
}

// HealthCheck pings the underlying pool.
func HealthCheck(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("database is nil")
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
