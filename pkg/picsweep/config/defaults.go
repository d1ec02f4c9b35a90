// Package config loads picsweep settings from config.yaml, a .env file and
// PICSWEEP_ environment variables.
package config

// Defaults for picsweep.
const (
	// DefaultPath is the folder opened when none is given. Empty prompts in the TUI.
	DefaultPath = ""

	// DefaultMode is the commit mode used when none is given.
	DefaultMode = "backup"

	// DefaultBackupSuffix is appended to the folder name for backup mode.
	DefaultBackupSuffix = "-recycle"

	// DefaultAuditBackend keeps one run's audit trail in SQLite.
	DefaultAuditBackend = "sqlite"

	// DefaultRetentionDays is how long commit manifests are kept.
	DefaultRetentionDays = 30

	// EnvPrefix is prepended to every environment override.
	EnvPrefix = "PICSWEEP"

	// EnvFile is loaded from the working directory when present.
	EnvFile = ".env"
)

// DefaultComponentLevels are the per-component log levels in a new config.
var DefaultComponentLevels = map[string]string{
	"catalog": "info",
	"ledger":  "info",
	"commit":  "info",
	"session": "info",
	"tui":     "info",
	"watcher": "warn",
}
