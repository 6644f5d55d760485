// Package export dumps relational tables into the CSV files the pipeline
// consumes.
//
// A Source lists tables and streams their rows. Open picks the implementation
// from the configured driver: MySQL goes through gorm, PostgreSQL through
// lib/pq, and SQLite snapshots through modernc.org/sqlite. The Exporter writes
// one <table>.csv per table with a header row, keeps going when a single table
// fails, and reports the tables the rest of the pipeline requires but did not
// receive.
package export
