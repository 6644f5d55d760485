package main

import (
	"github.com/spf13/cobra"

	"phonefleet/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var withExport bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Clean, filter, and analyse the exported fleet in one pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, cfg, err := ctx.newRunner()
			if err != nil {
				return err
			}
			result, runErr := runner.Run(cmd.Context(), pipeline.RunOptions{Export: withExport})
			if err := printRunResult(cmd.OutOrStdout(), result, cfg.Detection.TopUsers); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}
			return result.SaveErr()
		},
	}

	cmd.Flags().BoolVar(&withExport, "export", false, "Export the database tables before cleaning")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Dump the configured database tables to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, _, err := ctx.newRunner()
			if err != nil {
				return err
			}
			result, err := runner.Export(cmd.Context())
			if result != nil {
				if printErr := printExport(cmd.OutOrStdout(), result); printErr != nil {
					return printErr
				}
			}
			return err
		},
	}
}

func newCleanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Deduplicate devices, repair date_mod, and isolate unassigned active phones",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, _, err := ctx.newRunner()
			if err != nil {
				return err
			}
			result, err := runner.Clean(cmd.Context())
			if err != nil {
				return err
			}
			if err := printClean(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			return result.Err()
		},
	}
}

func newFilterCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "filter",
		Short: "Keep cleaned devices whose user is in the user export",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, _, err := ctx.newRunner()
			if err != nil {
				return err
			}
			result, err := runner.Filter(cmd.Context())
			if err != nil {
				return err
			}
			if err := printFilter(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			return result.Err()
		},
	}
}

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Report replacements closer than the threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("threshold") {
				cfg.Detection.ThresholdYears = threshold
			}
			runner, _, err := ctx.newRunner()
			if err != nil {
				return err
			}
			result, err := runner.Detect(cmd.Context())
			if err != nil {
				return err
			}
			if err := printDetect(cmd.OutOrStdout(), result, cfg.Detection.TopUsers); err != nil {
				return err
			}
			return result.Err()
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Override detection.threshold_years")
	return cmd
}
