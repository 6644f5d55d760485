// Package tabular reads and writes the flat CSV files exchanged between
// pipeline stages.
//
// A Table keeps the header and raw string cells exactly as exported, so
// columns the pipeline never inspects survive a round trip unchanged. Readers
// decode the configured input encoding and drop a leading byte-order mark;
// writers always emit UTF-8 and replace the target file atomically.
package tabular
