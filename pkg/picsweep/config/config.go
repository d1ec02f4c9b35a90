package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/picsweep/pkg/picsweep/audit"
	"github.com/jamesainslie/picsweep/pkg/picsweep/types"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// ManifestConfig configures the commit history.
type ManifestConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	// ShowWarning shows the data-loss notice when the TUI starts.
	ShowWarning  bool           `mapstructure:"show_warning"`
	DefaultPath  string         `mapstructure:"default_path"`
	Mode         string         `mapstructure:"mode"`
	BackupSuffix string         `mapstructure:"backup_suffix"`
	Audit        audit.Config   `mapstructure:"audit"`
	Manifest     ManifestConfig `mapstructure:"manifest"`
	Logging      LoggingConfig  `mapstructure:"logging"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// CommitMode parses Mode.
func (c *Config) CommitMode() (types.Mode, error) {
	return types.ParseMode(c.Mode)
}

// Load reads configuration from, in increasing precedence:
//   - built-in defaults
//   - $XDG_CONFIG_HOME/picsweep/config.yaml, or ~/.config/picsweep/config.yaml
//   - a .env file in the working directory
//   - PICSWEEP_* environment variables (e.g. PICSWEEP_MODE, PICSWEEP_AUDIT_BACKEND)
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. The file must exist.
func LoadFile(file string) (*Config, error) {
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", EnvFile, err)
	}

	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	if file != "" {
		if _, err := os.Stat(file); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	for _, p := range []*string{&cfg.DefaultPath, &cfg.Manifest.Path, &cfg.Audit.Path, &cfg.Logging.Path} {
		if *p, err = ExpandPath(*p); err != nil {
			return nil, err
		}
	}

	if _, err := cfg.CommitMode(); err != nil {
		return nil, fmt.Errorf("config key mode: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("show_warning", true)
	v.SetDefault("default_path", DefaultPath)
	v.SetDefault("mode", DefaultMode)
	v.SetDefault("backup_suffix", DefaultBackupSuffix)

	v.SetDefault("audit.backend", DefaultAuditBackend)
	v.SetDefault("audit.path", "") // in memory

	v.SetDefault("manifest.enabled", true)
	v.SetDefault("manifest.path", filepath.Join(dir, ".manifest"))
	v.SetDefault("manifest.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", DefaultComponentLevels)
}

// ConfigDir returns $XDG_CONFIG_HOME/picsweep, falling back to ~/.config/picsweep.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "picsweep"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "picsweep"), nil
}

// ConfigPath returns the config.yaml location inside ConfigDir.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// StateDir returns $XDG_STATE_HOME/picsweep/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "picsweep")
}

// DataDir returns $XDG_DATA_HOME/picsweep/ for persistent audit stores.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "picsweep")
}

// DefaultAuditPath returns where a persistent audit store lives for backend.
func DefaultAuditPath(backend string) string {
	if backend == audit.BackendBadger {
		return filepath.Join(DataDir(), "audit.badger")
	}
	return filepath.Join(DataDir(), "audit.db")
}

// WriteDefault writes a default config file if none exists and returns its path.
func WriteDefault() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	content := fmt.Sprintf(defaultTemplate, DefaultMode, DefaultBackupSuffix,
		DefaultAuditBackend, filepath.Join(dir, ".manifest"), DefaultRetentionDays)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}
	return path, nil
}

const defaultTemplate = `# picsweep configuration

# Show the data-loss notice when the review screen opens
show_warning: true

# Folder to open when none is given (empty asks)
default_path: ""

# Commit mode: backup, direct, or trash
mode: %s

# Backup folder is <folder><suffix>, next to the reviewed folder
backup_suffix: "%s"

# Audit trail of staged operations
audit:
  # sqlite, badger, or memory
  backend: %s
  # Empty keeps the trail in memory for one run
  path: ""

# One JSON record per commit
manifest:
  enabled: true
  path: %s
  retention_days: %d

logging:
  # debug, info, warn, error
  level: info
  # Empty means $XDG_STATE_HOME/picsweep/picsweep.log
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  components:
    catalog: info
    ledger: info
    commit: info
    session: info
    tui: info
    watcher: warn
`

// SetShowWarning persists show_warning, creating the config file if needed.
// Comments and other keys in the file are preserved.
func SetShowWarning(show bool) error {
	path, err := WriteDefault()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if len(doc.Content) == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("failed to update config file: %s is not a mapping", path)
	}
	setBool(root, "show_warning", show)

	var out bytes.Buffer
	enc := yaml.NewEncoder(&out)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("failed to encode config file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode config file: %w", err)
	}
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setBool(m *yaml.Node, key string, value bool) {
	val := "false"
	if value {
		val = "true"
	}

	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1].Kind = yaml.ScalarNode
			m.Content[i+1].Tag = "!!bool"
			m.Content[i+1].Value = val
			return
		}
	}

	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: val},
	)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}
