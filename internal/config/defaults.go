package config

const (
	defaultWorkDir         = "."
	defaultExportsDir      = "exports"
	defaultLogDir          = "~/.local/share/phonefleet/logs"
	defaultDevicesFile     = "exports/telephones.csv"
	defaultUsersFile       = "exports/utilisateurs.csv"
	defaultPhoneModelsFile = "exports/modeles_telephones.csv"
	defaultInputEncoding   = "utf-8"
	defaultCleanedFile     = "cleaned_telephones.csv"
	defaultIsolatedFile    = "isolated_telephones.csv"
	defaultFilteredFile    = "cleaned_telephones_filtered.csv"
	defaultReplacements    = "remplacements_anticipes.csv"
	defaultSummaryFile     = "utilisateurs_multi_remplacements.csv"
	defaultDBDriver        = "mysql"
	defaultDBHost          = "localhost"
	defaultMySQLPort       = 3306
	defaultPostgresPort    = 5432
	defaultDBUser          = "root"
	defaultDBName          = "telephones_db"
	defaultDBTimeout       = 30
	defaultThresholdYears  = 2.0
	defaultUnknownLabel    = "Inconnu"
	defaultTopUsers        = 5
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

var defaultBackfillSources = []string{"date_creation", "comment", "contact"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:    defaultWorkDir,
			ExportsDir: defaultExportsDir,
			LogDir:     defaultLogDir,
		},
		Inputs: Inputs{
			Devices:     defaultDevicesFile,
			Users:       defaultUsersFile,
			PhoneModels: defaultPhoneModelsFile,
			Encoding:    defaultInputEncoding,
		},
		Outputs: Outputs{
			Cleaned:      defaultCleanedFile,
			Isolated:     defaultIsolatedFile,
			Filtered:     defaultFilteredFile,
			Replacements: defaultReplacements,
			Summary:      defaultSummaryFile,
		},
		Database: Database{
			Driver:         defaultDBDriver,
			Host:           defaultDBHost,
			User:           defaultDBUser,
			Name:           defaultDBName,
			TimeoutSeconds: defaultDBTimeout,
		},
		Detection: Detection{
			ThresholdYears:  defaultThresholdYears,
			UnknownLabel:    defaultUnknownLabel,
			TopUsers:        defaultTopUsers,
			BackfillSources: append([]string(nil), defaultBackfillSources...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
