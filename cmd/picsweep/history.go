package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/picsweep/pkg/picsweep/config"
	"github.com/jamesainslie/picsweep/pkg/picsweep/manifest"
	"github.com/jamesainslie/picsweep/pkg/picsweep/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View past commits",
	Long: `List commits recorded in the manifest directory, newest first.

Every applied review writes one entry with the files kept, deleted, and
any that failed.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the files of one commit",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove commits older than the retention period",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClean,
}

var historyAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List executed operations from the audit store",
	Long: `List every executed keep and delete recorded in the audit store.

The default store lives in memory for one run. Set audit.path (and
optionally audit.backend: sqlite or badger) to keep it across runs.`,
	Args: cobra.NoArgs,
	RunE: runHistoryAudit,
}

var (
	historyLimit int
	auditClear   bool
)

// showFileLimit caps the files printed by history show.
const showFileLimit = 50

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")
	historyAuditCmd.Flags().BoolVar(&auditClear, "clear", false, "remove every audit record")

	historyCmd.AddCommand(historyShowCmd, historyCleanCmd, historyAuditCmd)
	rootCmd.AddCommand(historyCmd)
}

func getManifest() (*manifest.Manifest, error) {
	m, err := manifest.New(appConfig.Manifest.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize manifest: %w", err)
	}
	return m, nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	m, err := getManifest()
	if err != nil {
		return err
	}

	entries, err := m.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo(cmd, "No commits recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tMODE\tKEPT\tDELETED\tFAILED\tFREED\tFOLDER")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			e.ID,
			humanize.Time(e.Timestamp),
			e.Mode,
			e.Summary.Kept,
			e.Summary.Deleted,
			e.Summary.Failed,
			types.FormatSize(e.Summary.TotalBytes),
			e.Folder,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	printInfo(cmd, "\nUse 'picsweep history show <id>' for the files of one commit.")
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	m, err := getManifest()
	if err != nil {
		return err
	}

	entry, err := m.Get(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:       %s\n", entry.ID)
	fmt.Fprintf(out, "When:     %s\n", entry.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Folder:   %s\n", entry.Folder)
	fmt.Fprintf(out, "Mode:     %s\n", entry.Mode)
	if entry.BackupDir != "" {
		fmt.Fprintf(out, "Backup:   %s\n", entry.BackupDir)
	}
	fmt.Fprintf(out, "Kept:     %d\n", entry.Summary.Kept)
	fmt.Fprintf(out, "Deleted:  %d (%s)\n", entry.Summary.Deleted, types.FormatSize(entry.Summary.TotalBytes))
	fmt.Fprintf(out, "Failed:   %d\n", entry.Summary.Failed)

	if len(entry.Files) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tSIZE\tPATH")
	for i, f := range entry.Files {
		if i == showFileLimit {
			break
		}
		line := fmt.Sprintf("%s\t%s\t%s", f.Status, types.FormatSize(f.Size), f.Path)
		if f.Error != "" {
			line += "  (" + f.Error + ")"
		}
		fmt.Fprintln(tw, line)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if n := len(entry.Files) - showFileLimit; n > 0 {
		fmt.Fprintf(out, "... and %d more files\n", n)
	}
	return nil
}

func runHistoryClean(cmd *cobra.Command, _ []string) error {
	m, err := getManifest()
	if err != nil {
		return err
	}

	days := appConfig.Manifest.RetentionDays
	if days <= 0 {
		days = config.DefaultRetentionDays
	}

	removed, err := m.Cleanup(days)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}
	printInfo(cmd, "Removed %d commits older than %d days.", removed, days)
	return nil
}

func runHistoryAudit(cmd *cobra.Command, _ []string) error {
	if appConfig.Audit.Path == "" {
		printInfo(cmd, "The audit store is in memory and only lasts one run.")
		printInfo(cmd, "Set audit.path in %s to keep it.", configPathOrDefault())
		return nil
	}

	sess, err := openSession(appConfig, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	if auditClear {
		if err := sess.ClearHistory(); err != nil {
			return fmt.Errorf("failed to clear audit store: %w", err)
		}
		printInfo(cmd, "Audit store cleared.")
		return nil
	}

	records, err := sess.History()
	if err != nil {
		return fmt.Errorf("failed to read audit store: %w", err)
	}
	if len(records) == 0 {
		printInfo(cmd, "No operations recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tACTION\tSESSION\tPATH")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			r.ID, r.Timestamp.Format("2006-01-02 15:04:05"), r.Action, shortID(r.Session), r.Path)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func configPathOrDefault() string {
	if appConfig != nil && appConfig.File != "" {
		return appConfig.File
	}
	if path, err := config.ConfigPath(); err == nil {
		return path
	}
	return "config.yaml"
}
