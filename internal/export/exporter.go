package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"phonefleet/internal/logging"
	"phonefleet/internal/tabular"
)

// ErrIncomplete reports that a table the pipeline requires was not exported.
var ErrIncomplete = errors.New("required tables not exported")

// Options configures an export run.
type Options struct {
	// Dir receives one <table>.csv per exported table.
	Dir string
	// Tables restricts the export to the named tables. Empty exports all.
	Tables []string
	// Required lists tables whose absence fails the run.
	Required []string
}

// TableResult describes the outcome for one table.
type TableResult struct {
	Table string
	Path  string
	Rows  int
	Err   error
}

// Result summarises an export run.
type Result struct {
	Exported []TableResult
	Failed   []TableResult
	Dir      string
}

// Files returns the written file names in export order.
func (r Result) Files() []string {
	names := make([]string, 0, len(r.Exported))
	for _, t := range r.Exported {
		names = append(names, filepath.Base(t.Path))
	}
	return names
}

// Exporter copies database tables into CSV files.
type Exporter struct {
	source Source
	opts   Options
	logger *slog.Logger
}

// NewExporter builds an exporter over source.
func NewExporter(source Source, opts Options, logger *slog.Logger) *Exporter {
	return &Exporter{source: source, opts: opts, logger: logging.NewComponentLogger(logger, "export")}
}

// Run exports every selected table. A table that fails is recorded and the
// run continues; the returned error is non-nil only when listing fails, the
// context is cancelled, or a required table is missing.
func (e *Exporter) Run(ctx context.Context) (Result, error) {
	result := Result{Dir: e.opts.Dir}
	tables, err := e.source.Tables(ctx)
	if err != nil {
		return result, err
	}
	tables = e.selectTables(tables)
	e.logger.Info("tables found", logging.Int("count", len(tables)), logging.String("tables", strings.Join(tables, ",")))

	for _, table := range tables {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		path := filepath.Join(e.opts.Dir, table+".csv")
		rows, err := e.exportTable(ctx, table, path)
		entry := TableResult{Table: table, Path: path, Rows: rows, Err: err}
		if err != nil {
			logging.WarnWithContext(e.logger, "table export failed", "export_table_failed",
				logging.String("table", table),
				logging.Error(err),
				logging.String(logging.FieldImpact, "table skipped; later stages read the previous export if any"),
			)
			result.Failed = append(result.Failed, entry)
			continue
		}
		e.logger.Info("table exported", logging.String("table", table), logging.Int("rows", rows), logging.String("path", path))
		result.Exported = append(result.Exported, entry)
	}

	if missing := e.missingRequired(result); len(missing) > 0 {
		return result, fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return result, nil
}

func (e *Exporter) exportTable(ctx context.Context, table, path string) (int, error) {
	data, err := e.source.Dump(ctx, table)
	if err != nil {
		return 0, err
	}
	if err := tabular.WriteTable(path, data); err != nil {
		return 0, err
	}
	return len(data.Rows), nil
}

func (e *Exporter) selectTables(all []string) []string {
	if len(e.opts.Tables) == 0 {
		return all
	}
	selected := make([]string, 0, len(e.opts.Tables))
	for _, name := range all {
		if slices.Contains(e.opts.Tables, name) {
			selected = append(selected, name)
		}
	}
	return selected
}

func (e *Exporter) missingRequired(result Result) []string {
	var missing []string
	for _, name := range e.opts.Required {
		found := slices.ContainsFunc(result.Exported, func(t TableResult) bool { return t.Table == name })
		if !found {
			missing = append(missing, name)
		}
	}
	return missing
}
