package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateInputs(); err != nil {
		return err
	}
	if err := c.validateOutputs(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateInputs() error {
	if err := ensureSetMap(map[string]string{
		"inputs.devices": c.Inputs.Devices,
		"inputs.users":   c.Inputs.Users,
	}); err != nil {
		return err
	}
	switch c.Inputs.Encoding {
	case "utf-8", "windows-1252":
	default:
		return fmt.Errorf("inputs.encoding: unsupported value %q (use utf-8 or windows-1252)", c.Inputs.Encoding)
	}
	return nil
}

func (c *Config) validateOutputs() error {
	outputs := map[string]string{
		"outputs.cleaned":      c.Outputs.Cleaned,
		"outputs.isolated":     c.Outputs.Isolated,
		"outputs.filtered":     c.Outputs.Filtered,
		"outputs.replacements": c.Outputs.Replacements,
		"outputs.summary":      c.Outputs.Summary,
	}
	if err := ensureSetMap(outputs); err != nil {
		return err
	}
	seen := make(map[string]string, len(outputs))
	for key, path := range outputs {
		if other, ok := seen[path]; ok {
			return fmt.Errorf("%s and %s point to the same file %s", key, other, path)
		}
		seen[path] = key
	}
	if path := c.Outputs.Workbook; path != "" && !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return errors.New("outputs.workbook must end in .xlsx")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "mysql", "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database.host must be set for driver %s", c.Database.Driver)
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name must be set for driver %s", c.Database.Driver)
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return errors.New("database.port must be between 1 and 65535")
		}
	case "sqlite":
		// The snapshot path is only needed when the export stage runs.
	default:
		return fmt.Errorf("database.driver: unsupported value %q (use mysql, postgres, or sqlite)", c.Database.Driver)
	}
	return nil
}

func (c *Config) validateDetection() error {
	if c.Detection.ThresholdYears > 100 {
		return errors.New("detection.threshold_years must be at most 100")
	}
	return nil
}

func ensureSetMap(values map[string]string) error {
	for key, value := range values {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	return nil
}
