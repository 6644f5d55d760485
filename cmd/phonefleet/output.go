package main

import (
	"fmt"
	"io"

	"phonefleet/internal/pipeline"
	"phonefleet/internal/report"
)

func printRunResult(out io.Writer, result pipeline.RunResult, topUsers int) error {
	if _, err := fmt.Fprintf(out, "Run %s\n", result.RunID); err != nil {
		return err
	}
	if result.Export != nil {
		if err := printExport(out, result.Export); err != nil {
			return err
		}
	}
	if result.Clean != nil {
		if err := printClean(out, result.Clean); err != nil {
			return err
		}
	}
	if result.Filter != nil {
		if err := printFilter(out, result.Filter); err != nil {
			return err
		}
	}
	if result.Detect != nil {
		if err := printDetect(out, result.Detect, topUsers); err != nil {
			return err
		}
	}
	if result.Workbook != nil {
		return printPersisted(out, *result.Workbook)
	}
	return nil
}

func printExport(out io.Writer, result *pipeline.ExportResult) error {
	if err := report.WriteStats(out, "Export", result.Rows()); err != nil {
		return err
	}
	for _, name := range result.Files() {
		if _, err := fmt.Fprintf(out, "Wrote %s\n", name); err != nil {
			return err
		}
	}
	for _, failed := range result.Failed {
		if _, err := fmt.Fprintf(out, "Not exported: %s (%v)\n", failed.Table, failed.Err); err != nil {
			return err
		}
	}
	return nil
}

func printClean(out io.Writer, result *pipeline.CleanResult) error {
	if err := report.WriteStats(out, "Clean", result.Rows()); err != nil {
		return err
	}
	return printPersisted(out, result.Persisted)
}

func printFilter(out io.Writer, result *pipeline.FilterResult) error {
	if err := report.WriteStats(out, "Filter", result.Rows()); err != nil {
		return err
	}
	return printPersisted(out, result.Persisted)
}

func printDetect(out io.Writer, result *pipeline.DetectResult, topUsers int) error {
	if err := report.WriteStats(out, "Detect", result.Rows()); err != nil {
		return err
	}
	if err := report.WriteTopUsers(out, result.Summary, topUsers); err != nil {
		return err
	}
	return printPersisted(out, result.Persisted)
}

func printPersisted(out io.Writer, persisted pipeline.Persisted) error {
	for _, path := range persisted.Written {
		if _, err := fmt.Fprintf(out, "Wrote %s\n", path); err != nil {
			return err
		}
	}
	for _, failed := range persisted.Failed {
		if _, err := fmt.Fprintf(out, "Not saved: %s\n", failed.Path); err != nil {
			return err
		}
	}
	return nil
}
