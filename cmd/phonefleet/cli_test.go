package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"phonefleet/internal/config"
	"phonefleet/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	t.Setenv("HOME", filepath.Join(testsupport.BaseDir(cfg), "home"))
	testsupport.WriteFleetFixture(t, cfg)

	configPath := filepath.Join(testsupport.BaseDir(cfg), "phonefleet.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, haystack string, needles ...string) {
	t.Helper()
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			t.Fatalf("expected %q in output:\n%s", needle, haystack)
		}
	}
}

func TestRunCommandPrintsStatisticsAndTopUsers(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithWorkbook("flotte.xlsx"))

	out, err := runCLI(t, "run", "--config", env.configPath, "--log-level", "warn")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	requireContains(t, out,
		"Duplicates removed",
		"Filled via phone_models",
		"Early replacements",
		"Top 1 users by early replacements",
		"Alice Martin",
		"Wrote "+env.cfg.Outputs.Workbook,
	)
	for _, path := range []string{env.cfg.Outputs.Cleaned, env.cfg.Outputs.Replacements, env.cfg.Outputs.Summary} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s: %v", path, err)
		}
	}
}

func TestStageCommandsChain(t *testing.T) {
	env := setupCLITestEnv(t)

	if out, err := runCLI(t, "detect", "-c", env.configPath); err == nil || !strings.Contains(err.Error(), "missing input") {
		t.Fatalf("detect before filter: expected missing input, got %v\n%s", err, out)
	}

	out, err := runCLI(t, "clean", "-c", env.configPath)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	requireContains(t, out, "Isolated", "Wrote "+env.cfg.Outputs.Isolated)

	out, err = runCLI(t, "filter", "-c", env.configPath)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	requireContains(t, out, "Dropped")

	out, err = runCLI(t, "detect", "-c", env.configPath, "--threshold", "0.1")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	requireContains(t, out, "No early replacements detected.")
}

func TestRunCommandFailsOnSaveError(t *testing.T) {
	env := setupCLITestEnv(t)
	blocker := filepath.Join(testsupport.BaseDir(env.cfg), "blocker")
	testsupport.WriteFile(t, blocker, "file")
	env.cfg.Outputs.Summary = filepath.Join(blocker, "summary.csv")
	writeTestConfig(t, env.configPath, env.cfg)

	out, err := runCLI(t, "run", "-c", env.configPath)
	if err == nil || !strings.Contains(err.Error(), "write failed") {
		t.Fatalf("expected write failure, got %v", err)
	}
	requireContains(t, out, "Early replacements", "Not saved: "+env.cfg.Outputs.Summary)
}

func TestCheckCommandReportsMissingInput(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.Remove(env.cfg.Inputs.Users); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "check", "-c", env.configPath)
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	requireContains(t, out, "Users export", "ERROR", "Devices export", "OK")
}

func TestConfigInitAndValidate(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	target := filepath.Join(home, "cfg", "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}

	out, err = runCLI(t, "config", "validate", "-c", target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid", "Config path: "+target, "Database driver: mysql")
}

func TestConfigValidateRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	testsupport.WriteFile(t, path, "[detection]\nthreshold = 3\n")

	if _, err := runCLI(t, "config", "validate", "-c", path); err == nil {
		t.Fatal("expected unknown key error")
	}
}
