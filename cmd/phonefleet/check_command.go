package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"phonefleet/internal/preflight"
	"phonefleet/internal/report"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var withDatabase bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify inputs, output locations, and optionally the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{Database: withDatabase})
			if err := report.WriteChecks(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			if failed, ok := preflight.FirstBlocking(results); ok {
				return fmt.Errorf("preflight failed: %s: %s", failed.Name, failed.Detail)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withDatabase, "database", false, "Also check the export database connection")
	return cmd
}
