// Package logging assembles structured slog loggers and formatting helpers used
// across phonefleet stages.
//
// It owns the configurable console/JSON handlers, tags every record of a run
// with its run identifier, and exposes context-aware helpers so stage code can
// label log lines with the pipeline stage that produced them. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the pipeline.
package logging
