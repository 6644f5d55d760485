// Package config loads, normalizes, and validates phonefleet configuration data.
//
// It supplies repository defaults matching the historical file layout
// (exports/telephones.csv, cleaned_telephones.csv, ...), expands user paths
// (including tilde shortcuts), anchors relative input and output paths at the
// work directory, reads TOML files, and honours the PHONEFLEET_DB_PASSWORD
// environment fallback.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, a canonical database driver name, and clear validation errors.
package config
