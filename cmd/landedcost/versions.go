package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/railzwaylabs/landedcost/internal/tariff"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newVersionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "List active tariff versions and flag overlaps",
		RunE: func(cmd *cobra.Command, args []string) error {
			var svc *tariff.Service
			app := fx.New(
				infraModules(),
				engineModules(),
				fx.Populate(&svc),
			)
			if err := app.Start(cmd.Context()); err != nil {
				return err
			}
			defer func() { _ = app.Stop(cmd.Context()) }()

			active, err := svc.AuditActiveVersions(cmd.Context())
			if err != nil {
				return err
			}
			current, err := svc.ResolveVersion(cmd.Context(), nil)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tEFFECTIVE FROM\tIN USE")
			for _, v := range active {
				inUse := ""
				if v.ID == current.ID {
					inUse = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.ID, v.Label, v.EffectiveFrom.Format("2006-01-02"), inUse)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if len(active) > 1 {
				fmt.Fprintf(cmd.OutOrStdout(), "\nwarning: %d versions are flagged active; calculations use %s\n", len(active), current.Label)
			}
			return nil
		},
	}
}
