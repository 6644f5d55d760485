package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"phonefleet/internal/config"
	"phonefleet/internal/export"
	"phonefleet/internal/fleet"
	"phonefleet/internal/logging"
	"phonefleet/internal/preflight"
	"phonefleet/internal/report"
	"phonefleet/internal/tabular"
)

// SourceOpener connects to the export database.
type SourceOpener func(ctx context.Context, cfg config.Database) (export.Source, error)

// Runner executes pipeline stages against one configuration.
type Runner struct {
	cfg        *config.Config
	logger     *slog.Logger
	runID      string
	lock       *flock.Flock
	openSource SourceOpener
}

// Option customises a Runner.
type Option func(*Runner)

// WithSourceOpener replaces the database connector used by the export stage.
func WithSourceOpener(open SourceOpener) Option {
	return func(r *Runner) {
		if open != nil {
			r.openSource = open
		}
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(r *Runner) {
		if strings.TrimSpace(id) != "" {
			r.runID = id
		}
	}
}

// NewRunner validates cfg and prepares a runner. The logger should already
// carry the run id when it is meant to appear on every line.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, Wrap(ErrConfiguration, "", "init", "configuration is required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, Wrap(ErrConfiguration, "", "init", "invalid configuration", err)
	}
	r := &Runner{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		runID:      uuid.NewString(),
		lock:       flock.New(cfg.LockPath()),
		openSource: export.Open,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RunID returns the identifier attached to this runner's logs and results.
func (r *Runner) RunID() string {
	return r.runID
}

// RunOptions selects optional stages of a full run.
type RunOptions struct {
	Export bool
}

// Run executes every stage in order. A stage failure stops the run and is
// returned with the results of the stages that completed. Save failures are
// not returned here; check RunResult.SaveErr.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	result := RunResult{RunID: r.runID}
	err := r.withLock(func() error {
		r.logger.Info("pipeline started", logging.Bool("export", opts.Export), logging.String("work_dir", r.cfg.Paths.WorkDir))

		if opts.Export {
			exported, err := r.export(ctx)
			result.Export = exported
			if err != nil {
				return err
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		cleaned, err := r.clean(ctx)
		if err != nil {
			return err
		}
		result.Clean = cleaned

		if err := ctx.Err(); err != nil {
			return err
		}
		users, err := r.loadUsers(StageFilter)
		if err != nil {
			return err
		}
		filtered := r.filter(ctx, cleaned.Main, users)
		result.Filter = filtered

		if err := ctx.Err(); err != nil {
			return err
		}
		result.Detect = r.detect(ctx, filtered.Filtered, users)

		if r.cfg.Outputs.Workbook != "" {
			result.Workbook = r.writeWorkbook(ctx, result)
		}

		r.logSummary(result)
		return nil
	})
	return result, err
}

// Export runs only the export stage.
func (r *Runner) Export(ctx context.Context) (*ExportResult, error) {
	var result *ExportResult
	err := r.withLock(func() error {
		var err error
		result, err = r.export(ctx)
		return err
	})
	return result, err
}

// Clean runs only the clean stage against the device export.
func (r *Runner) Clean(ctx context.Context) (*CleanResult, error) {
	var result *CleanResult
	err := r.withLock(func() error {
		var err error
		result, err = r.clean(ctx)
		return err
	})
	return result, err
}

// Filter runs only the filter stage against the cleaned file.
func (r *Runner) Filter(ctx context.Context) (*FilterResult, error) {
	var result *FilterResult
	err := r.withLock(func() error {
		cleaned, err := r.loadDevices(StageFilter, "Cleaned output", r.cfg.Outputs.Cleaned, tabular.ReadOptions{})
		if err != nil {
			return err
		}
		users, err := r.loadUsers(StageFilter)
		if err != nil {
			return err
		}
		result = r.filter(ctx, cleaned, users)
		return nil
	})
	return result, err
}

// Detect runs only the detect stage against the filtered file.
func (r *Runner) Detect(ctx context.Context) (*DetectResult, error) {
	var result *DetectResult
	err := r.withLock(func() error {
		filtered, err := r.loadDevices(StageDetect, "Filtered output", r.cfg.Outputs.Filtered, tabular.ReadOptions{})
		if err != nil {
			return err
		}
		users, err := r.loadUsers(StageDetect)
		if err != nil {
			return err
		}
		result = r.detect(ctx, filtered, users)
		return nil
	})
	return result, err
}

func (r *Runner) withLock(fn func() error) error {
	if err := os.MkdirAll(r.cfg.Paths.WorkDir, 0o755); err != nil {
		return Wrap(ErrWriteFailed, "", "lock", "create work directory", err)
	}
	ok, err := r.lock.TryLock()
	if err != nil {
		return Wrap(ErrBusy, "", "lock", r.cfg.LockPath(), err)
	}
	if !ok {
		return Wrap(ErrBusy, "", "lock", "another phonefleet run holds "+r.cfg.LockPath(), nil)
	}
	defer func() {
		if err := r.lock.Unlock(); err != nil {
			r.logger.Warn("failed to release lock", logging.Error(err))
		}
	}()
	return fn()
}

func (r *Runner) stageLogger(ctx context.Context, stage string) (context.Context, *slog.Logger) {
	stageCtx := logging.WithStage(ctx, stage)
	return stageCtx, logging.WithContext(stageCtx, r.logger)
}

func (r *Runner) inputOptions() tabular.ReadOptions {
	return tabular.ReadOptions{Encoding: r.cfg.Inputs.Encoding}
}

// require turns a failed precondition into a missing-input error.
func require(stage string, check preflight.Result) error {
	if check.Passed {
		return nil
	}
	return Wrap(ErrMissingInput, stage, "precondition", check.Name+": "+check.Detail, nil)
}

func (r *Runner) loadDevices(stage, name, path string, opts tabular.ReadOptions) (*fleet.DeviceSet, error) {
	if err := require(stage, preflight.CheckInputFile(name, path)); err != nil {
		return nil, err
	}
	set, err := fleet.LoadDevices(path, opts)
	if err != nil {
		return nil, loadError(stage, path, err)
	}
	return set, nil
}

func (r *Runner) loadUsers(stage string) (*fleet.Directory, error) {
	path := r.cfg.Inputs.Users
	if err := require(stage, preflight.CheckInputFile("Users export", path)); err != nil {
		return nil, err
	}
	users, err := fleet.LoadUsers(path, r.inputOptions())
	if err != nil {
		return nil, loadError(stage, path, err)
	}
	return users, nil
}

// loadPhoneModels returns nil when the lookup table cannot be used.
func (r *Runner) loadPhoneModels(logger *slog.Logger) *fleet.PhoneModelIndex {
	path := r.cfg.Inputs.PhoneModels
	if path == "" {
		logging.WarnWithContext(logger, "phone models not configured", "backfill_source_skipped",
			logging.String(logging.FieldImpact, "last-resort date lookup skipped"))
		return nil
	}
	models, err := fleet.LoadPhoneModels(path, r.inputOptions())
	if err != nil {
		logging.WarnWithContext(logger, "phone models unavailable", "backfill_source_skipped",
			logging.String("path", path),
			logging.Error(Wrap(ErrSourceUnavailable, StageClean, "load phone models", path, err)),
			logging.String(logging.FieldImpact, "last-resort date lookup skipped; affected rows keep an empty date_mod"),
		)
		return nil
	}
	logger.Debug("phone models loaded", logging.Int("models", models.Len()))
	return models
}

func (r *Runner) export(ctx context.Context) (*ExportResult, error) {
	ctx, logger := r.stageLogger(ctx, StageExport)
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"), logging.String("driver", r.cfg.Database.Driver))

	source, err := r.openSource(ctx, r.cfg.Database)
	if err != nil {
		return nil, Wrap(ErrSourceUnavailable, StageExport, "connect", r.cfg.Database.Driver, err)
	}
	defer func() {
		if err := source.Close(); err != nil {
			logger.Warn("failed to close database", logging.Error(err))
		}
	}()

	exporter := export.NewExporter(source, export.Options{
		Dir:      r.cfg.Paths.ExportsDir,
		Tables:   r.cfg.Database.Tables,
		Required: r.requiredTables(),
	}, logger)
	res, err := exporter.Run(ctx)
	result := &ExportResult{Result: res}
	if err != nil {
		if errors.Is(err, export.ErrIncomplete) {
			return result, Wrap(ErrMissingInput, StageExport, "export", "", err)
		}
		return result, Wrap(ErrSourceUnavailable, StageExport, "export", "", err)
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("tables", len(res.Exported)),
		logging.Int("failed", len(res.Failed)),
		logging.String("dir", res.Dir),
	)
	return result, nil
}

// requiredTables names the tables whose exports feed the configured inputs.
// Inputs stored outside the exports directory are not produced by the export
// stage and are not required from it.
func (r *Runner) requiredTables() []string {
	var tables []string
	for _, path := range []string{r.cfg.Inputs.Devices, r.cfg.Inputs.Users, r.cfg.Inputs.PhoneModels} {
		if path == "" || filepath.Dir(path) != filepath.Clean(r.cfg.Paths.ExportsDir) {
			continue
		}
		tables = append(tables, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}
	return tables
}

func (r *Runner) clean(ctx context.Context) (*CleanResult, error) {
	_, logger := r.stageLogger(ctx, StageClean)
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	devices, err := r.loadDevices(StageClean, "Devices export", r.cfg.Inputs.Devices, r.inputOptions())
	if err != nil {
		return nil, err
	}

	cleaned, err := fleet.Clean(devices, fleet.CleanOptions{Backfill: fleet.BackfillOptions{
		Sources:     r.cfg.Detection.BackfillSources,
		PhoneModels: r.loadPhoneModels(logger),
	}})
	if err != nil {
		return nil, Wrap(ErrMissingInput, StageClean, "backfill", r.cfg.Inputs.Devices, err)
	}

	stats := cleaned.Stats
	logger.Info("duplicates removed", logging.Int("duplicates", stats.Duplicates), logging.Int("rows", stats.Input))
	logger.Info("date_mod values to fill", logging.Int("missing", stats.Backfill.Missing))
	for _, step := range stats.Backfill.Steps {
		logger.Info("rows filled", logging.String("source", step.Source), logging.Int("filled", step.Filled))
	}
	if stats.Backfill.Remaining > 0 {
		logging.WarnWithContext(logger, "date_mod still missing after backfill", "backfill_incomplete",
			logging.Int("rows", stats.Backfill.Remaining),
			logging.String(logging.FieldImpact, "rows kept with an empty date_mod; excluded from gap computation"),
		)
	}
	logger.Info("rows isolated", logging.Int("isolated", stats.Isolated), logging.Int("kept", stats.Main))

	result := &CleanResult{Main: cleaned.Main, Isolated: cleaned.Isolated, Stats: stats}
	r.save(logger, StageClean, &result.Persisted, r.cfg.Outputs.Cleaned, cleaned.Main.Table())
	r.save(logger, StageClean, &result.Persisted, r.cfg.Outputs.Isolated, cleaned.Isolated.Table())
	return result, nil
}

func (r *Runner) filter(ctx context.Context, cleaned *fleet.DeviceSet, users *fleet.Directory) *FilterResult {
	_, logger := r.stageLogger(ctx, StageFilter)
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"), logging.Int("users", users.Len()))

	filtered, stats := fleet.FilterByUsers(cleaned, users)
	logger.Info("rows filtered", logging.Int("kept", stats.Kept), logging.Int("dropped", stats.Dropped))

	result := &FilterResult{Filtered: filtered, Stats: stats}
	r.save(logger, StageFilter, &result.Persisted, r.cfg.Outputs.Filtered, filtered.Table())
	return result
}

func (r *Runner) detect(ctx context.Context, filtered *fleet.DeviceSet, users *fleet.Directory) *DetectResult {
	_, logger := r.stageLogger(ctx, StageDetect)
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	detected := fleet.DetectReplacements(filtered, users, fleet.DetectOptions{
		ThresholdYears: r.cfg.Detection.ThresholdYears,
		UnknownLabel:   r.cfg.Detection.UnknownLabel,
	})
	if detected.Stats.Unparseable > 0 {
		logging.WarnWithContext(logger, "unparseable date_mod values", "date_parse_failed",
			logging.Int("rows", detected.Stats.Unparseable),
			logging.String(logging.FieldImpact, "pairs involving these rows are skipped"),
		)
	}
	logger.Info("early replacements detected",
		logging.Int("events", detected.Stats.Events),
		logging.Int("users", detected.Stats.Flagged),
		logging.Float64("threshold_years", r.cfg.Detection.ThresholdYears),
	)

	result := &DetectResult{DetectResult: detected}
	r.save(logger, StageDetect, &result.Persisted, r.cfg.Outputs.Replacements, fleet.EventsTable(detected.Events))
	r.save(logger, StageDetect, &result.Persisted, r.cfg.Outputs.Summary, fleet.SummaryTable(detected.Summary))
	return result
}

func (r *Runner) save(logger *slog.Logger, stage string, persisted *Persisted, path string, table *tabular.Table) {
	if err := tabular.WriteTable(path, table); err != nil {
		wrapped := Wrap(ErrWriteFailed, stage, "save", path, err)
		logging.ErrorWithContext(logger, "output not saved", "save_failed",
			logging.String("path", path),
			logging.Error(wrapped),
		)
		persisted.Failed = append(persisted.Failed, SaveFailure{Path: path, Err: wrapped})
		return
	}
	logger.Info("output saved", logging.String("path", path), logging.Int("rows", len(table.Rows)))
	persisted.Written = append(persisted.Written, path)
}

func (r *Runner) writeWorkbook(ctx context.Context, result RunResult) *Persisted {
	_, logger := r.stageLogger(ctx, StageReport)
	path := r.cfg.Outputs.Workbook
	persisted := &Persisted{}

	sheets := []report.Sheet{
		{Name: "cleaned", Table: result.Clean.Main.Table()},
		{Name: "isolated", Table: result.Clean.Isolated.Table()},
		{Name: "filtered", Table: result.Filter.Filtered.Table()},
		{
			Name:           "replacements",
			Table:          fleet.EventsTable(result.Detect.Events),
			NumericColumns: []string{"intervalle_jours", "intervalle_annees"},
		},
		{
			Name:           "summary",
			Table:          fleet.SummaryTable(result.Detect.Summary),
			NumericColumns: []string{"nb_remplacements_anticipes"},
		},
	}
	if err := report.WriteWorkbook(path, sheets); err != nil {
		wrapped := Wrap(ErrWriteFailed, StageReport, "save", path, err)
		logging.ErrorWithContext(logger, "workbook not saved", "save_failed", logging.Error(wrapped))
		persisted.Failed = append(persisted.Failed, SaveFailure{Path: path, Err: wrapped})
		return persisted
	}
	logger.Info("workbook saved", logging.String("path", path), logging.Int("sheets", len(sheets)))
	persisted.Written = append(persisted.Written, path)
	return persisted
}

func (r *Runner) logSummary(result RunResult) {
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "pipeline_complete")}
	if result.Detect != nil {
		attrs = append(attrs,
			logging.Int("early_replacements", result.Detect.Stats.Events),
			logging.Int("users_concerned", result.Detect.Stats.Flagged),
		)
	}
	if err := result.SaveErr(); err != nil {
		attrs = append(attrs, logging.String(logging.FieldAlert, fmt.Sprintf("outputs not saved: %v", err)))
		r.logger.Warn("pipeline finished with save failures", logging.Args(attrs...)...)
		return
	}
	r.logger.Info("pipeline finished", logging.Args(attrs...)...)
}
