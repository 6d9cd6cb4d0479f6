package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/landedcost/internal/bootstrap"
	"github.com/railzwaylabs/landedcost/internal/calcrun"
	"github.com/railzwaylabs/landedcost/internal/classification"
	"github.com/railzwaylabs/landedcost/internal/clock"
	"github.com/railzwaylabs/landedcost/internal/config"
	"github.com/railzwaylabs/landedcost/internal/landedcost"
	"github.com/railzwaylabs/landedcost/internal/migration"
	"github.com/railzwaylabs/landedcost/internal/observability"
	"github.com/railzwaylabs/landedcost/internal/preference"
	"github.com/railzwaylabs/landedcost/internal/ratehunter"
	"github.com/railzwaylabs/landedcost/internal/ratelimit"
	"github.com/railzwaylabs/landedcost/internal/redis"
	"github.com/railzwaylabs/landedcost/internal/reference"
	"github.com/railzwaylabs/landedcost/internal/risk"
	"github.com/railzwaylabs/landedcost/internal/scheduler"
	"github.com/railzwaylabs/landedcost/internal/server"
	"github.com/railzwaylabs/landedcost/internal/tariff"
	"github.com/railzwaylabs/landedcost/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const commandTimeout = 2 * time.Minute

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "landedcost",
		Short:         "South African landed cost and tariff engine",
		Version:       readVersionFromEnv(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newCalcCmd(),
		newVersionsCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				infraModules(),
				engineModules(),
				redis.Module,
				ratelimit.Module,
				bootstrap.Module,
				fx.Invoke(bootstrap.EnforceSchemaGate),
				fx.Invoke(bootstrap.EnsureReferenceData),
				fx.Invoke(auditTariffVersions),
				scheduler.Module,
				server.Module,
			)
			app.Run()
			return app.Err()
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var down int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and activate the schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if down > 0 {
				return withSQL(cmd.Context(), func(ctx context.Context, sqlDB *sql.DB, log *zap.Logger) error {
					return migration.Rollback(ctx, sqlDB, down, log)
				})
			}
			return startAndStop(cmd.Context(), fx.New(
				infraModules(),
				migration.Module,
			))
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "revert this many migrations instead of applying")

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the applied and embedded schema versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSQL(cmd.Context(), func(_ context.Context, sqlDB *sql.DB, _ *zap.Logger) error {
				status, err := migration.ReadStatus(sqlDB)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "current=%d latest=%d dirty=%t pending=%t\n",
					status.Current, status.Latest, status.Dirty, status.Pending())
				return nil
			})
		},
	})
	return cmd
}

func infraModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
	)
}

func engineModules() fx.Option {
	return fx.Options(
		reference.Module,
		classification.Module,
		tariff.Module,
		preference.Module,
		risk.Module,
		calcrun.Module,
		landedcost.Module,
		ratehunter.Module,
	)
}

func auditTariffVersions(lc fx.Lifecycle, svc *tariff.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_, err := svc.AuditActiveVersions(ctx)
			return err
		},
	})
}

func startAndStop(parent context.Context, app *fx.App) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, commandTimeout)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return err
	}
	return app.Stop(context.Background())
}

func withSQL(parent context.Context, fn func(context.Context, *sql.DB, *zap.Logger) error) error {
	var (
		conn *gorm.DB
		log  *zap.Logger
	)
	app := fx.New(infraModules(), fx.Populate(&conn, &log))
	if err := app.Start(context.Background()); err != nil {
		return err
	}
	defer func() { _ = app.Stop(context.Background()) }()

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	if parent == nil {
		parent = context.Background()
	}
	return fn(parent, sqlDB, log)
}

func registerSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
