// Package dates recovers calendar dates from free-text fields and parses the
// timestamps stored in date_mod.
//
// Extraction recognises two shapes, tried in priority order:
//   - DD/MM/YYYY, optionally followed by HH:MM:SS
//   - YYYY-MM-DD, optionally followed by HH:MM:SS
//
// Only the first occurrence of the winning shape counts, and a match that is
// not a real calendar date is reported as absent rather than as an error.
package dates
