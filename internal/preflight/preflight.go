package preflight

import (
	"context"

	"phonefleet/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Blocking reports whether the result should stop a run.
func (r Result) Blocking() bool {
	return !r.Passed && !r.Optional
}

// Options selects the checks RunAll performs.
type Options struct {
	// Database adds a connection check for the export stage.
	Database bool
}

// RunAll executes every applicable preflight check for cfg.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckWritable("Work directory", cfg.Paths.WorkDir))
	if opts.Database {
		results = append(results, CheckWritable("Exports directory", cfg.Paths.ExportsDir))
		results = append(results, CheckDatabase(ctx, cfg.Database))
	}

	results = append(results,
		CheckInputFile("Devices export", cfg.Inputs.Devices),
		CheckInputFile("Users export", cfg.Inputs.Users),
		Optional(CheckInputFile("Phone models export", cfg.Inputs.PhoneModels)),
	)

	for _, out := range []struct{ name, path string }{
		{"Cleaned output", cfg.Outputs.Cleaned},
		{"Isolated output", cfg.Outputs.Isolated},
		{"Filtered output", cfg.Outputs.Filtered},
		{"Replacements output", cfg.Outputs.Replacements},
		{"Summary output", cfg.Outputs.Summary},
		{"Workbook output", cfg.Outputs.Workbook},
	} {
		if out.path == "" {
			continue
		}
		results = append(results, CheckOutputPath(out.name, out.path))
	}

	return results
}

// Optional marks r as informational.
func Optional(r Result) Result {
	r.Optional = true
	return r
}

// FirstBlocking returns the first result that should stop a run.
func FirstBlocking(results []Result) (Result, bool) {
	for _, r := range results {
		if r.Blocking() {
			return r, true
		}
	}
	return Result{}, false
}
