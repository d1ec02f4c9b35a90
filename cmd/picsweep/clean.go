package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/picsweep/pkg/picsweep/session"
	"github.com/jamesainslie/picsweep/pkg/picsweep/types"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [folder]",
	Short: "Keep every picture and delete its smaller copies",
	Long: `Keep the largest copy of every picture in a folder and delete the
other size variants, without opening the review screen.

The plan is printed first and confirmed on stdin unless --yes is given.
Use --mode to choose how files are removed:
  backup  move into <folder>-recycle next to the folder (default)
  direct  delete permanently
  trash   move to the system trash`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

var (
	cleanYes    bool
	cleanDryRun bool
)

func init() {
	cleanCmd.Flags().BoolVarP(&cleanYes, "yes", "y", false, "do not ask for confirmation")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "print the plan without changing files")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	folder, err := resolveFolder(args, appConfig.DefaultPath, ".")
	if err != nil {
		return err
	}
	mode, err := appConfig.CommitMode()
	if err != nil {
		return err
	}

	sess, err := openSession(appConfig, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := sess.Load(ctx, folder); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if sess.KeepAll() == 0 {
		printInfo(cmd, "No duplicate variants in %s.", sess.Dir())
		return nil
	}

	var reclaim int64
	for _, op := range sess.Operations() {
		if op.Action != types.ActionDelete {
			continue
		}
		if info, err := os.Lstat(op.Path); err == nil {
			reclaim += info.Size()
		}
		if !quiet {
			fmt.Fprintf(out, "  delete  %s\n", op.Path)
		}
	}

	summary, err := sess.RequestCommit()
	if err != nil {
		return err
	}
	printInfo(cmd, "%d to keep, %d to delete (%s), mode %s", summary.Keep, summary.Delete, types.FormatSize(reclaim), mode)
	if mode == types.ModeBackup {
		printInfo(cmd, "Backup folder: %s", sess.BackupDir())
	}

	if cleanDryRun {
		sess.Cancel()
		printInfo(cmd, "Dry run: no files changed.")
		return nil
	}

	if !cleanYes {
		ok, err := confirm(cmd.InOrStdin(), out, "Proceed? [y/N] ")
		if err != nil {
			return err
		}
		if !ok {
			sess.Cancel()
			printInfo(cmd, "Aborted.")
			return nil
		}
	}

	report, err := sess.Commit(mode)
	if err != nil {
		return err
	}
	printCommitReport(cmd, report)

	if n := len(report.Failures); n > 0 {
		return fmt.Errorf("%d files could not be processed", n)
	}
	return nil
}

// confirm asks prompt on w and reads a yes/no answer from r.
func confirm(r io.Reader, w io.Writer, prompt string) (bool, error) {
	fmt.Fprint(w, prompt)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func printCommitReport(cmd *cobra.Command, report session.CommitReport) {
	printInfo(cmd, "Applied %d operations: %d files removed from %s.", len(report.Executed), len(report.Deleted), report.Mode)
	if report.BackupDir != "" && len(report.Deleted) > 0 {
		printInfo(cmd, "Backups are in %s", report.BackupDir)
	}
	for _, f := range report.Failures {
		printError("%v", f)
	}
	for _, w := range report.Warnings {
		printError("warning: %s", w)
	}
	if report.ManifestID != "" {
		printInfo(cmd, "Recorded as %s (picsweep history show %s)", report.ManifestID, report.ManifestID)
	}
}
