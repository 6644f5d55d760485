package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the working directories used by a pipeline run.
type Paths struct {
	WorkDir    string `toml:"work_dir"`
	ExportsDir string `toml:"exports_dir"`
	LogDir     string `toml:"log_dir"`
}

// Inputs names the three exported tables the pipeline consumes.
type Inputs struct {
	Devices     string `toml:"devices"`
	Users       string `toml:"users"`
	PhoneModels string `toml:"phone_models"`
	// Encoding is the character set of the input files: "utf-8" or "windows-1252".
	Encoding string `toml:"encoding"`
}

// Outputs names the files produced for the reporting tool.
type Outputs struct {
	Cleaned      string `toml:"cleaned"`
	Isolated     string `toml:"isolated"`
	Filtered     string `toml:"filtered"`
	Replacements string `toml:"replacements"`
	Summary      string `toml:"summary"`
	// Workbook is an optional XLSX file bundling every output. Empty disables it.
	Workbook string `toml:"workbook"`
}

// Database holds the connection settings for the export stage.
type Database struct {
	Driver         string   `toml:"driver"`
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	User           string   `toml:"user"`
	Password       string   `toml:"password"`
	Name           string   `toml:"name"`
	Path           string   `toml:"path"` // sqlite snapshot file
	Tables         []string `toml:"tables"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Detection tunes the backfill and early-replacement analysis.
type Detection struct {
	ThresholdYears  float64  `toml:"threshold_years"`
	UnknownLabel    string   `toml:"unknown_label"`
	TopUsers        int      `toml:"top_users"`
	BackfillSources []string `toml:"backfill_sources"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for phonefleet.
//
// Configuration sections:
//   - Paths: working, export, and log directories
//   - Inputs: exported device, user, and phone model tables
//   - Outputs: cleaned, isolated, filtered, and report files
//   - Database: relational source for the export stage
//   - Detection: backfill sources and replacement threshold
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Inputs    Inputs    `toml:"inputs"`
	Outputs   Outputs   `toml:"outputs"`
	Database  Database  `toml:"database"`
	Detection Detection `toml:"detection"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/phonefleet/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("phonefleet.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work, export, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.ExportsDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the lock file guarding the work directory against concurrent runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.WorkDir, ".phonefleet.lock")
}

// LogPath returns the persistent log file location.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "phonefleet.log")
}

// ExportPath returns the CSV path the export stage writes for table.
func (c *Config) ExportPath(table string) string {
	return filepath.Join(c.Paths.ExportsDir, table+".csv")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// resolveAgainst expands pathValue and anchors relative paths at base.
func resolveAgainst(base, pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return "", nil
	}
	if !strings.HasPrefix(pathValue, "~") && !filepath.IsAbs(pathValue) {
		pathValue = filepath.Join(base, pathValue)
	}
	return expandPath(pathValue)
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
