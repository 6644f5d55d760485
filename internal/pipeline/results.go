package pipeline

import (
	"errors"

	"phonefleet/internal/export"
	"phonefleet/internal/fleet"
	"phonefleet/internal/report"
)

// Stage names used in logs and errors.
const (
	StageExport = "export"
	StageClean  = "clean"
	StageFilter = "filter"
	StageDetect = "detect"
	StageReport = "report"
)

// SaveFailure records an output that could not be written.
type SaveFailure struct {
	Path string
	Err  error
}

// Persisted lists the files a stage wrote and the ones it failed to write.
type Persisted struct {
	Written []string
	Failed  []SaveFailure
}

// Err joins every save failure, or returns nil.
func (p Persisted) Err() error {
	errs := make([]error, 0, len(p.Failed))
	for _, f := range p.Failed {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}

// ExportResult is the outcome of the export stage.
type ExportResult struct {
	export.Result
}

// Rows returns per-table row counts.
func (r ExportResult) Rows() []report.Stat {
	stats := make([]report.Stat, 0, len(r.Exported)+1)
	for _, t := range r.Exported {
		stats = append(stats, report.Stat{Label: t.Table, Value: t.Rows})
	}
	stats = append(stats, report.Stat{Label: "Tables failed", Value: len(r.Failed)})
	return stats
}

// CleanResult is the outcome of the clean stage.
type CleanResult struct {
	Main     *fleet.DeviceSet
	Isolated *fleet.DeviceSet
	Stats    fleet.CleanStats
	Persisted
}

// Rows returns the clean statistics in display order.
func (r CleanResult) Rows() []report.Stat {
	stats := []report.Stat{
		{Label: "Rows read", Value: r.Stats.Input},
		{Label: "Duplicates removed", Value: r.Stats.Duplicates},
		{Label: "date_mod to fill", Value: r.Stats.Backfill.Missing},
	}
	for _, step := range r.Stats.Backfill.Steps {
		stats = append(stats, report.Stat{Label: "Filled via " + step.Source, Value: step.Filled})
	}
	return append(stats,
		report.Stat{Label: "Still missing", Value: r.Stats.Backfill.Remaining},
		report.Stat{Label: "Isolated", Value: r.Stats.Isolated},
		report.Stat{Label: "Cleaned", Value: r.Stats.Main},
	)
}

// FilterResult is the outcome of the filter stage.
type FilterResult struct {
	Filtered *fleet.DeviceSet
	Stats    fleet.FilterStats
	Persisted
}

// Rows returns the filter statistics in display order.
func (r FilterResult) Rows() []report.Stat {
	return []report.Stat{
		{Label: "Rows read", Value: r.Stats.Input},
		{Label: "Kept", Value: r.Stats.Kept},
		{Label: "Dropped", Value: r.Stats.Dropped},
	}
}

// DetectResult is the outcome of the detect stage.
type DetectResult struct {
	fleet.DetectResult
	Persisted
}

// Rows returns the detection statistics in display order.
func (r DetectResult) Rows() []report.Stat {
	return []report.Stat{
		{Label: "Rows read", Value: r.Stats.Input},
		{Label: "Active assignments", Value: r.Stats.Active},
		{Label: "Unparseable date_mod", Value: r.Stats.Unparseable},
		{Label: "Users with assignments", Value: r.Stats.Users},
		{Label: "Early replacements", Value: r.Stats.Events},
		{Label: "Users concerned", Value: r.Stats.Flagged},
	}
}

// RunResult gathers every stage result of a full run. Stages that did not run
// are nil.
type RunResult struct {
	RunID    string
	Export   *ExportResult
	Clean    *CleanResult
	Filter   *FilterResult
	Detect   *DetectResult
	Workbook *Persisted
}

// SaveErr joins the save failures of every stage, or returns nil.
func (r RunResult) SaveErr() error {
	var errs []error
	if r.Clean != nil {
		errs = append(errs, r.Clean.Err())
	}
	if r.Filter != nil {
		errs = append(errs, r.Filter.Err())
	}
	if r.Detect != nil {
		errs = append(errs, r.Detect.Err())
	}
	if r.Workbook != nil {
		errs = append(errs, r.Workbook.Err())
	}
	return errors.Join(errs...)
}
