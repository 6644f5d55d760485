// Package fleet holds the device-record model and the batch algorithms that
// turn a raw device export into the early-replacement report.
//
// The stages are pure functions over in-memory sets:
//
//   - Clean removes duplicate rows, repairs missing date_mod values with
//     Backfill, and splits out isolated rows (unassigned but active).
//   - FilterByUsers keeps rows whose users_id is a known user identity.
//   - DetectReplacements groups active assignments by user and flags
//     consecutive assignments less than the configured number of years apart.
//
// File access, logging, and persistence belong to the pipeline package. Every
// set returned by a stage is a fresh copy, so callers may keep the input.
//
// Identity coercions are explicit. FilterByUsers compares the trimmed users_id
// text against utilisateur_id values exactly ("007" and "7" differ). Isolation
// and detection parse users_id and states_id as numbers, and detection groups
// and resolves names by CanonicalUserID.
package fleet
