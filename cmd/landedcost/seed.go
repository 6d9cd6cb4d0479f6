package main

import (
	"fmt"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/landedcost/internal/bootstrap"
	"github.com/railzwaylabs/landedcost/internal/reference/loader"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newSeedCmd() *cobra.Command {
	var (
		dir       string
		ifEmpty   bool
		skipCheck bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reference data CSV files into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				conn  *gorm.DB
				genID *snowflake.Node
				log   *zap.Logger
				gate  bootstrap.SchemaGate
			)
			app := fx.New(
				infraModules(),
				bootstrap.Module,
				fx.Populate(&conn, &genID, &log, &gate),
			)
			if err := app.Start(cmd.Context()); err != nil {
				return err
			}
			defer func() { _ = app.Stop(cmd.Context()) }()

			if !skipCheck {
				if err := gate.MustBeActive(cmd.Context()); err != nil {
					return fmt.Errorf("schema not ready: %w", err)
				}
			}

			l := loader.New(conn, genID, log)
			var (
				summary loader.Summary
				err     error
			)
			if ifEmpty {
				summary, err = bootstrap.SeedIfEmpty(cmd.Context(), conn, l, dir)
			} else {
				summary, err = l.LoadDir(cmd.Context(), dir)
			}
			if err != nil {
				return err
			}
			if summary == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "reference data already present; nothing loaded")
				return nil
			}

			files := make([]string, 0, len(summary))
			for file := range summary {
				files = append(files, file)
			}
			sort.Strings(files)
			for _, file := range files {
				fmt.Fprintf(cmd.OutOrStdout(), "%-26s %d\n", file, summary[file])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "data/reference", "directory holding the reference CSV files")
	cmd.Flags().BoolVar(&ifEmpty, "if-empty", false, "only load when no tariff version exists")
	cmd.Flags().BoolVar(&skipCheck, "skip-schema-check", false, "load without checking the bootstrap state")
	return cmd
}
