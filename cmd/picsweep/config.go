package main

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/picsweep/pkg/picsweep/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage picsweep configuration.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/picsweep/config.yaml (if set)
  2. ~/.config/picsweep/config.yaml

A .env file in the working directory and PICSWEEP_ environment variables
override the file:
  PICSWEEP_MODE=trash
  PICSWEEP_AUDIT_BACKEND=badger
  PICSWEEP_AUDIT_PATH=~/.local/share/picsweep/audit.badger`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the configuration file in $VISUAL or $EDITOR",
	Args:  cobra.NoArgs,
	RunE:  runConfigEdit,
}

func init() {
	configCmd.AddCommand(configShowCmd, configInitCmd, configPathCmd, configEditCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg := appConfig
	out := cmd.OutOrStdout()

	if cfg.File != "" {
		fmt.Fprintf(out, "Config file: %s\n\n", cfg.File)
	} else {
		fmt.Fprintf(out, "Config file: (using defaults, no file found)\n\n")
	}

	fmt.Fprintf(out, "show_warning:              %t\n", cfg.ShowWarning)
	fmt.Fprintf(out, "default_path:              %s\n", cfg.DefaultPath)
	fmt.Fprintf(out, "mode:                      %s\n", cfg.Mode)
	fmt.Fprintf(out, "backup_suffix:             %s\n", cfg.BackupSuffix)
	fmt.Fprintf(out, "audit.backend:             %s\n", cfg.Audit.Backend)
	fmt.Fprintf(out, "audit.path:                %s\n", orMemory(cfg.Audit.Path))
	fmt.Fprintf(out, "manifest.enabled:          %t\n", cfg.Manifest.Enabled)
	fmt.Fprintf(out, "manifest.path:             %s\n", cfg.Manifest.Path)
	fmt.Fprintf(out, "manifest.retention_days:   %d\n", cfg.Manifest.RetentionDays)
	fmt.Fprintf(out, "logging.level:             %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "logging.path:              %s\n", cfg.Logging.Path)
	fmt.Fprintf(out, "logging.rotation.max_size: %s\n", cfg.Logging.Rotation.MaxSize)

	comps := make([]string, 0, len(cfg.Logging.Components))
	for name, level := range cfg.Logging.Components {
		comps = append(comps, name+"="+level)
	}
	sort.Strings(comps)
	fmt.Fprintf(out, "logging.components:        %s\n", strings.Join(comps, " "))

	fmt.Fprintf(out, "\nEnvironment overrides:\n")
	var env []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, config.EnvPrefix+"_") {
			env = append(env, kv)
		}
	}
	sort.Strings(env)
	if len(env) == 0 {
		fmt.Fprintln(out, "(none)")
	}
	for _, kv := range env {
		fmt.Fprintln(out, kv)
	}
	return nil
}

func orMemory(path string) string {
	if path == "" {
		return "(memory)"
	}
	return path
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		printInfo(cmd, "Config file already exists: %s", path)
		printInfo(cmd, "Use 'picsweep config edit' to modify it.")
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return err
	}
	printInfo(cmd, "Created default config file: %s", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func runConfigEdit(_ *cobra.Command, _ []string) error {
	path, err := config.WriteDefault()
	if err != nil {
		return err
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}
	printVerbose("opening %s with %s", path, editor)

	c := exec.Command(editor, path)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}
