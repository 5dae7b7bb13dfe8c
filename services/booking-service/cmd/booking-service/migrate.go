package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				be, err := openBackend(cmd.Context(), a.cfg, a.logger)
				if err != nil {
					return err
				}
				defer be.store.Close()
				return be.migrator.Up(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether they are applied",
			RunE: func(cmd *cobra.Command, _ []string) error {
				be, err := openBackend(cmd.Context(), a.cfg, a.logger)
				if err != nil {
					return err
				}
				defer be.store.Close()
				states, err := be.migrator.Status(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "VERSION\tAPPLIED\tFILE")
				for _, s := range states {
					fmt.Fprintf(tw, "%d\t%t\t%s\n", s.Version, s.Applied, s.File)
				}
				return tw.Flush()
			},
		},
	)
	return cmd
}
