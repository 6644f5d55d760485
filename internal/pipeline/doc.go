// Package pipeline runs the phonefleet stages in order: export (optional),
// clean, filter, and detect.
//
// Runner.Run passes each stage's typed, in-memory result to the next stage.
// The single-stage methods (Clean, Filter, Detect) read the previous stage's
// output file instead, so an operator can rerun one step by hand.
//
// Every stage checks its input files before doing any work and fails with
// ErrMissingInput when one is absent, so later stages never see partial
// outputs. Write failures do not stop computation: they are logged, collected
// in the stage result, and surfaced through RunResult.SaveErr once statistics
// have been reported.
//
// A run holds an exclusive lock file in the work directory and carries a UUID
// run id that appears on every log line.
package pipeline
