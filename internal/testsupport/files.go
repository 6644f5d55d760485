package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"phonefleet/internal/config"
	"phonefleet/internal/tabular"
)

// WriteFile writes raw content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteCSV writes a header and rows to path.
func WriteCSV(t testing.TB, path string, header []string, rows ...[]string) {
	t.Helper()

	if err := tabular.WriteFile(path, header, rows); err != nil {
		t.Fatalf("write csv %s: %v", path, err)
	}
}

// ReadCSV loads a UTF-8 CSV file written by the pipeline.
func ReadCSV(t testing.TB, path string) *tabular.Table {
	t.Helper()

	table, err := tabular.ReadFile(path, tabular.ReadOptions{})
	if err != nil {
		t.Fatalf("read csv %s: %v", path, err)
	}
	return table
}

// DeviceHeader is the column layout of the device fixture.
var DeviceHeader = []string{"id", "users_id", "states_id", "phonemodels_id", "date_creation", "comment", "contact", "date_mod", "name"}

// WriteFleetFixture writes a small device, user, and phone-model export to the
// configured input paths.
//
// The fixture contains one duplicated row, one isolated device, one device
// whose user is unknown, and user 5 with three assignments that produce two
// early replacements once date_mod is repaired.
func WriteFleetFixture(t testing.TB, cfg *config.Config) {
	t.Helper()

	WriteCSV(t, cfg.Inputs.Devices, DeviceHeader,
		[]string{"1", "5", "2", "3", "remis le 01/01/2023", "", "", "", "Galaxy S21"},
		[]string{"2", "5", "2", "3", "", "échange 2023-06-01", "", "", "Galaxy S22"},
		[]string{"3", "5", "2", "4", "", "", "", "", "Galaxy S24"},
		[]string{"3", "5", "2", "4", "", "", "", "", "Galaxy S24"},
		[]string{"4", "0", "2", "3", "", "", "", "2022-02-02 10:00:00", "iPhone 12"},
		[]string{"5", "6", "2", "3", "", "", "", "2022-03-03 08:00:00", "Pixel 6"},
		[]string{"6", "99", "2", "3", "", "", "", "2022-03-03 08:00:00", "Pixel 7"},
	)
	WriteCSV(t, cfg.Inputs.Users, []string{"utilisateur_id", "nom_utilisateur"},
		[]string{"5", "Alice Martin"},
		[]string{"6", "Bruno Petit"},
	)
	WriteCSV(t, cfg.Inputs.PhoneModels, []string{"modele_id", "date_modification"},
		[]string{"3", "2021-01-01 00:00:00"},
		[]string{"4", "2025-01-01 00:00:00"},
	)
}
