package testsupport

import (
	"path/filepath"
	"testing"

	"phonefleet/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with a unique temp work directory per test.
// Inputs live under <work>/exports and outputs directly under <work>, matching
// the default layout.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = base
	cfgVal.Paths.ExportsDir = filepath.Join(base, "exports")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Inputs.Devices = filepath.Join(base, "exports", "telephones.csv")
	cfgVal.Inputs.Users = filepath.Join(base, "exports", "utilisateurs.csv")
	cfgVal.Inputs.PhoneModels = filepath.Join(base, "exports", "modeles_telephones.csv")
	cfgVal.Outputs.Cleaned = filepath.Join(base, "cleaned_telephones.csv")
	cfgVal.Outputs.Isolated = filepath.Join(base, "isolated_telephones.csv")
	cfgVal.Outputs.Filtered = filepath.Join(base, "cleaned_telephones_filtered.csv")
	cfgVal.Outputs.Replacements = filepath.Join(base, "remplacements_anticipes.csv")
	cfgVal.Outputs.Summary = filepath.Join(base, "utilisateurs_multi_remplacements.csv")
	cfgVal.Database.Driver = "sqlite"
	cfgVal.Database.Path = filepath.Join(base, "fleet.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkbook enables the XLSX report under the work directory.
func WithWorkbook(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Outputs.Workbook = filepath.Join(b.baseDir, name)
	}
}

// WithEncoding sets the input file encoding.
func WithEncoding(encoding string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Inputs.Encoding = encoding
	}
}

// WithThreshold overrides the early-replacement threshold in years.
func WithThreshold(years float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Detection.ThresholdYears = years
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Paths.WorkDir
}
