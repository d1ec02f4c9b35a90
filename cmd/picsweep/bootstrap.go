package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/picsweep/pkg/picsweep/audit"
	"github.com/jamesainslie/picsweep/pkg/picsweep/config"
	"github.com/jamesainslie/picsweep/pkg/picsweep/logging"
	"github.com/jamesainslie/picsweep/pkg/picsweep/manifest"
	"github.com/jamesainslie/picsweep/pkg/picsweep/session"
	"github.com/jamesainslie/picsweep/pkg/picsweep/types"
)

// defaultLogMaxSize applies when logging.rotation.max_size is empty or invalid.
const defaultLogMaxSize = 10 * types.MiB

// initializeLogging is the PersistentPreRunE hook: it loads configuration,
// applies flag overrides, and starts file logging.
func initializeLogging(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return err
	}
	if err := applyFlagOverrides(cmd, cfg); err != nil {
		return err
	}
	appConfig = cfg

	if dir, err := config.ConfigDir(); err == nil {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			printVerbose("cannot create config directory: %v", err)
		}
	}

	if err := logging.Init(loggingConfig(cfg, false)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logging.Get("cli").Debug("starting", "command", cmd.CommandPath(), "config", cfg.File)
	return nil
}

func closeLogging(_ *cobra.Command, _ []string) error {
	return logging.Close()
}

// initTUILogging switches logging to the in-memory buffer used by the log panel.
func initTUILogging() error {
	return logging.Init(loggingConfig(appConfig, true))
}

func loggingConfig(cfg *config.Config, tuiMode bool) logging.Config {
	console := "warn"
	switch {
	case quiet:
		console = "error"
	case verbose:
		console = "debug"
	}

	return logging.Config{
		Level:        cfg.Logging.Level,
		Path:         cfg.Logging.Path,
		Rotation:     parseRotationConfig(cfg.Logging.Rotation),
		Components:   cfg.Logging.Components,
		ConsoleLevel: console,
		TUIMode:      tuiMode,
	}
}

// parseRotationConfig converts the config file's rotation settings.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	maxSize := int64(defaultLogMaxSize)
	if rc.MaxSize != "" {
		if n, err := types.ParseSize(rc.MaxSize); err == nil && n > 0 {
			maxSize = n
		}
	}
	return logging.RotationConfig{
		MaxSize:    maxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
}

// applyFlagOverrides copies explicitly set persistent flags into cfg.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("mode") {
		mode, _ := flags.GetString("mode")
		if _, err := types.ParseMode(mode); err != nil {
			return err
		}
		cfg.Mode = mode
	}
	if flags.Changed("backup-suffix") {
		cfg.BackupSuffix, _ = flags.GetString("backup-suffix")
	}
	if flags.Changed("audit-backend") {
		cfg.Audit.Backend, _ = flags.GetString("audit-backend")
	}
	return nil
}

// resolveFolder picks the folder argument, then the configured default,
// then fallback, and makes the result absolute. An empty result stays empty.
func resolveFolder(args []string, configured, fallback string) (string, error) {
	folder := fallback
	switch {
	case len(args) > 0:
		folder = args[0]
	case configured != "":
		folder = configured
	}
	if folder == "" {
		return "", nil
	}

	expanded, err := config.ExpandPath(folder)
	if err != nil {
		return "", fmt.Errorf("failed to expand path: %w", err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	return abs, nil
}

// openAudit opens the configured audit store, creating its parent directory.
func openAudit(cfg *config.Config) (audit.Store, error) {
	if cfg.Audit.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Audit.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create audit directory: %w", err)
		}
	}
	store, err := audit.Open(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit store: %w", err)
	}
	return store, nil
}

// openSession builds the review engine from configuration.
func openSession(cfg *config.Config, n session.Notifier) (*session.Session, error) {
	store, err := openAudit(cfg)
	if err != nil {
		return nil, err
	}

	opts := []session.Option{
		session.WithBackupSuffix(cfg.BackupSuffix),
		session.WithNotifier(n),
	}
	if cfg.Manifest.Enabled {
		m, err := manifest.New(cfg.Manifest.Path)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize manifest: %w", err)
		}
		opts = append(opts, session.WithManifest(m))
	}

	return session.New(store, opts...), nil
}
