// Package preflight provides readiness checks for the files, directories, and
// database that phonefleet depends on.
//
// These checks run in two contexts:
//   - The pipeline runner checks each stage's inputs before the stage starts.
//     A failed required check aborts the stage with a missing-input error so no
//     partial outputs are written.
//   - The CLI "phonefleet check" command runs RunAll and prints every result.
//
// Optional checks (the phone-model table) are reported but never block a run.
package preflight
