package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/picsweep/cmd/picsweep/tui"
	"github.com/jamesainslie/picsweep/pkg/picsweep/config"
	"github.com/jamesainslie/picsweep/pkg/picsweep/logging"
	"github.com/jamesainslie/picsweep/pkg/picsweep/session"
)

var (
	cfgFile   string
	verbose   bool
	quiet     bool
	appConfig *config.Config

	rootCmd = &cobra.Command{
		Use:   "picsweep [folder]",
		Short: "Review and clean duplicate chat image variants",
		Long: `picsweep reviews a chat app's image cache folder one picture at a time.

Chat clients store the same picture at several sizes, e.g. abc_0.jpg (full
resolution) and abc_720.jpg (preview). picsweep shows each picture once,
lets you keep or delete it, and deletes the smaller copies of every picture
you keep. Nothing changes on disk until you apply your decisions.

Examples:
  picsweep ~/Chat/Image                # Review a folder
  picsweep scan ~/Chat/Image --groups  # List images and their variants
  picsweep clean ~/Chat/Image --dry-run
  picsweep history                     # Past commits
  picsweep config show`,
		Args:               cobra.MaximumNArgs(1),
		PersistentPreRunE:  initializeLogging,
		PersistentPostRunE: closeLogging,
		RunE:               runReview,
		SilenceUsage:       true,
		SilenceErrors:      true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/picsweep/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug output on stderr")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().String("mode", "", "commit mode: backup, direct, or trash")
	rootCmd.PersistentFlags().String("backup-suffix", "", "backup folder suffix")
	rootCmd.PersistentFlags().String("audit-backend", "", "audit store: sqlite, badger, or memory")
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError("%v", err)
	}
	return err
}

// runReview opens the interactive review screen.
func runReview(_ *cobra.Command, args []string) error {
	folder, err := resolveFolder(args, appConfig.DefaultPath, "")
	if err != nil {
		return err
	}

	mode, err := appConfig.CommitMode()
	if err != nil {
		return err
	}

	if err := initTUILogging(); err != nil {
		return fmt.Errorf("failed to initialize TUI logging: %w", err)
	}
	logging.Get("cli").Info("opening review", "folder", folder, "mode", mode)

	return tui.Run(tui.Options{
		Folder:      folder,
		Mode:        mode,
		ShowWarning: appConfig.ShowWarning,
		Watch:       true,
		OpenSession: func(n session.Notifier) (*session.Session, error) {
			return openSession(appConfig, n)
		},
		DisableWarning: func() error {
			return config.SetShowWarning(false)
		},
	})
}

// printInfo prints a message unless quiet mode is enabled.
func printInfo(cmd *cobra.Command, format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
	}
}

// printVerbose prints a debug message on stderr in verbose mode.
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
