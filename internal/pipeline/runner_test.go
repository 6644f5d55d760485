package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"
	_ "modernc.org/sqlite"

	"phonefleet/internal/config"
	"phonefleet/internal/export"
	"phonefleet/internal/fleet"
	"phonefleet/internal/logging"
	"phonefleet/internal/testsupport"
)

func newRunner(t *testing.T, cfg *config.Config, opts ...Option) *Runner {
	t.Helper()
	runner, err := NewRunner(cfg, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return runner
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkbook("flotte.xlsx"))
	testsupport.WriteFleetFixture(t, cfg)

	result, err := newRunner(t, cfg, WithRunID("run-42")).Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := result.SaveErr(); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}
	if result.RunID != "run-42" {
		t.Fatalf("RunID = %q", result.RunID)
	}

	clean := result.Clean.Stats
	if clean.Duplicates != 1 || clean.Isolated != 1 || clean.Main != 5 {
		t.Fatalf("unexpected clean stats %+v", clean)
	}
	wantSteps := []fleet.SourceFill{
		{Source: "date_creation", Filled: 1},
		{Source: "comment", Filled: 1},
		{Source: "contact", Filled: 0},
		{Source: fleet.SourcePhoneModels, Filled: 1},
	}
	if diff := cmp.Diff(wantSteps, clean.Backfill.Steps); diff != "" {
		t.Fatalf("backfill steps (-want +got):\n%s", diff)
	}
	if result.Filter.Stats != (fleet.FilterStats{Input: 5, Kept: 4, Dropped: 1}) {
		t.Fatalf("unexpected filter stats %+v", result.Filter.Stats)
	}
	if result.Detect.Stats.Events != 2 || result.Detect.Stats.Flagged != 1 {
		t.Fatalf("unexpected detect stats %+v", result.Detect.Stats)
	}

	events := testsupport.ReadCSV(t, cfg.Outputs.Replacements)
	if diff := cmp.Diff(fleet.ReplacementColumns, events.Header); diff != "" {
		t.Fatalf("events header (-want +got):\n%s", diff)
	}
	want := [][]string{
		{"5", "Alice Martin", "Galaxy S21", "2023-01-01", "Galaxy S22", "2023-06-01", "151", "0.41"},
		{"5", "Alice Martin", "Galaxy S22", "2023-06-01", "Galaxy S24", "2025-01-01", "580", "1.59"},
	}
	if diff := cmp.Diff(want, events.Rows); diff != "" {
		t.Fatalf("events rows (-want +got):\n%s", diff)
	}
	summary := testsupport.ReadCSV(t, cfg.Outputs.Summary)
	if diff := cmp.Diff([][]string{{"5", "Alice Martin", "2"}}, summary.Rows); diff != "" {
		t.Fatalf("summary rows (-want +got):\n%s", diff)
	}
	isolated := testsupport.ReadCSV(t, cfg.Outputs.Isolated)
	if len(isolated.Rows) != 1 || isolated.Rows[0][0] != "4" {
		t.Fatalf("unexpected isolated rows %v", isolated.Rows)
	}
	if _, err := os.Stat(cfg.Outputs.Workbook); err != nil {
		t.Fatalf("workbook not written: %v", err)
	}
	if result.Workbook == nil || len(result.Workbook.Written) != 1 {
		t.Fatalf("unexpected workbook result %+v", result.Workbook)
	}
}

func TestRunMissingUsersAbortsBeforeFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFleetFixture(t, cfg)
	if err := os.Remove(cfg.Inputs.Users); err != nil {
		t.Fatal(err)
	}

	result, err := newRunner(t, cfg).Run(context.Background(), RunOptions{})
	if !errors.Is(err, ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
	if result.Clean == nil {
		t.Fatal("clean stage should have completed")
	}
	if result.Filter != nil || result.Detect != nil {
		t.Fatal("later stages must not run")
	}
	if _, err := os.Stat(cfg.Outputs.Filtered); !os.IsNotExist(err) {
		t.Fatalf("filtered output should not exist, stat err = %v", err)
	}
}

func TestRunMissingDeviceColumns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFleetFixture(t, cfg)
	testsupport.WriteCSV(t, cfg.Inputs.Devices, []string{"id", "users_id"}, []string{"1", "5"})

	_, err := newRunner(t, cfg).Run(context.Background(), RunOptions{})
	if !errors.Is(err, ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "date_mod") {
		t.Fatalf("expected missing column names in %v", err)
	}
	if _, statErr := os.Stat(cfg.Outputs.Cleaned); !os.IsNotExist(statErr) {
		t.Fatal("cleaned output must not be written")
	}
}

func TestRunMalformedDevices(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFleetFixture(t, cfg)
	testsupport.WriteFile(t, cfg.Inputs.Devices, strings.Join(testsupport.DeviceHeader, ",")+"\n1,\"unterminated\n")

	_, err := newRunner(t, cfg).Run(context.Background(), RunOptions{})
	if !errors.Is(err, ErrMalformedData) {
		t.Fatalf("expected ErrMalformedData, got %v", err)
	}
}

func TestCleanWithoutPhoneModels(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFleetFixture(t, cfg)
	if err := os.Remove(cfg.Inputs.PhoneModels); err != nil {
		t.Fatal(err)
	}

	result, err := newRunner(t, cfg).Clean(context.Background())
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if !result.Stats.Backfill.PhoneModelsSkipped || result.Stats.Backfill.Remaining != 1 {
		t.Fatalf("unexpected backfill stats %+v", result.Stats.Backfill)
	}
}

func TestRunFailsWhileLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFleetFixture(t, cfg)

	holder := flock.New(cfg.LockPath())
	ok, err := holder.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}
	defer holder.Unlock()

	_, err = newRunner(t, cfg).Run(context.Background(), RunOptions{})
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestSaveFailureKeepsStatistics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFleetFixture(t, cfg)
	blocker := filepath.Join(testsupport.BaseDir(cfg), "blocker")
	testsupport.WriteFile(t, blocker, "not a directory")
	cfg.Outputs.Filtered = filepath.Join(blocker, "filtered.csv")

	result, err := newRunner(t, cfg).Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !errors.Is(result.SaveErr(), ErrWriteFailed) {
		t.Fatalf("expected ErrWriteFailed, got %v", result.SaveErr())
	}
	if len(result.Filter.Failed) != 1 || result.Filter.Stats.Kept != 4 {
		t.Fatalf("unexpected filter result %+v", result.Filter)
	}
	if result.Detect == nil || result.Detect.Stats.Events != 2 {
		t.Fatal("detection should still run on in-memory results")
	}
}

func TestStageCommandsReadPreviousOutputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFleetFixture(t, cfg)
	runner := newRunner(t, cfg)
	ctx := context.Background()

	if _, err := runner.Detect(ctx); !errors.Is(err, ErrMissingInput) {
		t.Fatalf("detect before filter: expected ErrMissingInput, got %v", err)
	}
	if _, err := runner.Clean(ctx); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	filtered, err := runner.Filter(ctx)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if filtered.Stats.Kept != 4 {
		t.Fatalf("Kept = %d", filtered.Stats.Kept)
	}
	detected, err := runner.Detect(ctx)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if detected.Stats.Events != 2 {
		t.Fatalf("Events = %d", detected.Stats.Events)
	}
}

func TestWindows1252Inputs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEncoding("windows-1252"))
	testsupport.WriteFleetFixture(t, cfg)
	testsupport.WriteFile(t, cfg.Inputs.Users, "utilisateur_id,nom_utilisateur\n5,H\xe9l\xe8ne Dupont\n")

	result, err := newRunner(t, cfg).Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := result.Detect.Summary[0].UserName; got != "Hélène Dupont" {
		t.Fatalf("UserName = %q", got)
	}
}

func seedExportDB(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()
	statements := []string{
		`CREATE TABLE telephones (id INTEGER, users_id INTEGER, states_id INTEGER, phonemodels_id INTEGER, date_creation TEXT, comment TEXT, contact TEXT, date_mod TEXT, name TEXT)`,
		`INSERT INTO telephones VALUES (1, 5, 2, NULL, '01/01/2023', NULL, NULL, NULL, 'A'), (2, 5, 2, NULL, NULL, NULL, NULL, '2023-03-01 00:00:00', 'B')`,
		`CREATE TABLE utilisateurs (utilisateur_id INTEGER, nom_utilisateur TEXT)`,
		`INSERT INTO utilisateurs VALUES (5, 'Alice')`,
		`CREATE TABLE modeles_telephones (modele_id INTEGER, date_modification TEXT)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
}

func TestRunWithExportFromSQLite(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedExportDB(t, cfg.Database.Path)

	result, err := newRunner(t, cfg).Run(context.Background(), RunOptions{Export: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Export.Exported) != 3 {
		t.Fatalf("unexpected export result %+v", result.Export)
	}
	if result.Detect.Stats.Events != 1 {
		t.Fatalf("Events = %d", result.Detect.Stats.Events)
	}
}

func TestExportSourceUnavailable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	failing := func(context.Context, config.Database) (export.Source, error) {
		return nil, errors.New("connection refused")
	}
	_, err := newRunner(t, cfg, WithSourceOpener(failing)).Export(context.Background())
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestNewRunnerRejectsInvalidConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Inputs.Encoding = "ebcdic"
	if _, err := NewRunner(cfg, logging.NewNop()); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestRunHonoursThreshold(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithThreshold(1.0))
	testsupport.WriteFleetFixture(t, cfg)

	result, err := newRunner(t, cfg).Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Detect.Events) != 1 || result.Detect.Events[0].GapDays != 151 {
		t.Fatalf("expected only the 151-day gap, got %+v", result.Detect.Events)
	}
}
