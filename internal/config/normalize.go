package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeInputs(); err != nil {
		return err
	}
	if err := c.normalizeOutputs(); err != nil {
		return err
	}
	if err := c.normalizeDatabase(); err != nil {
		return err
	}
	c.normalizeDetection()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(strings.TrimSpace(c.Paths.WorkDir)); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportsDir) == "" {
		c.Paths.ExportsDir = defaultExportsDir
	}
	if c.Paths.ExportsDir, err = resolveAgainst(c.Paths.WorkDir, c.Paths.ExportsDir); err != nil {
		return fmt.Errorf("paths.exports_dir: %w", err)
	}
	if c.Paths.LogDir, err = resolveAgainst(c.Paths.WorkDir, c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeInputs() error {
	var err error
	if c.Inputs.Devices, err = resolveAgainst(c.Paths.WorkDir, c.Inputs.Devices); err != nil {
		return fmt.Errorf("inputs.devices: %w", err)
	}
	if c.Inputs.Users, err = resolveAgainst(c.Paths.WorkDir, c.Inputs.Users); err != nil {
		return fmt.Errorf("inputs.users: %w", err)
	}
	if c.Inputs.PhoneModels, err = resolveAgainst(c.Paths.WorkDir, c.Inputs.PhoneModels); err != nil {
		return fmt.Errorf("inputs.phone_models: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(c.Inputs.Encoding)) {
	case "", "utf-8", "utf8":
		c.Inputs.Encoding = "utf-8"
	case "windows-1252", "windows1252", "cp1252":
		c.Inputs.Encoding = "windows-1252"
	default:
		c.Inputs.Encoding = strings.ToLower(strings.TrimSpace(c.Inputs.Encoding))
	}
	return nil
}

func (c *Config) normalizeOutputs() error {
	targets := []struct {
		key   string
		value *string
	}{
		{"outputs.cleaned", &c.Outputs.Cleaned},
		{"outputs.isolated", &c.Outputs.Isolated},
		{"outputs.filtered", &c.Outputs.Filtered},
		{"outputs.replacements", &c.Outputs.Replacements},
		{"outputs.summary", &c.Outputs.Summary},
		{"outputs.workbook", &c.Outputs.Workbook},
	}
	for _, target := range targets {
		resolved, err := resolveAgainst(c.Paths.WorkDir, *target.value)
		if err != nil {
			return fmt.Errorf("%s: %w", target.key, err)
		}
		*target.value = resolved
	}
	return nil
}

func (c *Config) normalizeDatabase() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "":
		c.Database.Driver = defaultDBDriver
	case "postgresql":
		c.Database.Driver = "postgres"
	case "sqlite3":
		c.Database.Driver = "sqlite"
	}
	c.Database.Host = strings.TrimSpace(c.Database.Host)
	c.Database.User = strings.TrimSpace(c.Database.User)
	c.Database.Name = strings.TrimSpace(c.Database.Name)
	if c.Database.Port <= 0 {
		switch c.Database.Driver {
		case "postgres":
			c.Database.Port = defaultPostgresPort
		case "mysql":
			c.Database.Port = defaultMySQLPort
		}
	}
	if c.Database.Password == "" {
		if value, ok := os.LookupEnv("PHONEFLEET_DB_PASSWORD"); ok {
			c.Database.Password = value
		}
	}
	var err error
	if c.Database.Path, err = resolveAgainst(c.Paths.WorkDir, c.Database.Path); err != nil {
		return fmt.Errorf("database.path: %w", err)
	}
	if c.Database.TimeoutSeconds <= 0 {
		c.Database.TimeoutSeconds = defaultDBTimeout
	}
	tables := make([]string, 0, len(c.Database.Tables))
	for _, table := range c.Database.Tables {
		if trimmed := strings.TrimSpace(table); trimmed != "" {
			tables = append(tables, trimmed)
		}
	}
	c.Database.Tables = tables
	return nil
}

func (c *Config) normalizeDetection() {
	if c.Detection.ThresholdYears <= 0 {
		c.Detection.ThresholdYears = defaultThresholdYears
	}
	c.Detection.UnknownLabel = strings.TrimSpace(c.Detection.UnknownLabel)
	if c.Detection.UnknownLabel == "" {
		c.Detection.UnknownLabel = defaultUnknownLabel
	}
	if c.Detection.TopUsers <= 0 {
		c.Detection.TopUsers = defaultTopUsers
	}
	sources := make([]string, 0, len(c.Detection.BackfillSources))
	seen := make(map[string]struct{}, len(c.Detection.BackfillSources))
	for _, source := range c.Detection.BackfillSources {
		normalized := strings.ToLower(strings.TrimSpace(source))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		sources = append(sources, normalized)
	}
	if len(sources) == 0 {
		sources = append(sources, defaultBackfillSources...)
	}
	c.Detection.BackfillSources = sources
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
