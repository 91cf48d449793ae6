package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/config"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/history"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/output"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View run history",
	Long: `View the history of sync, extract and watch runs.

Every run is recorded with its per-version sync outcome, the libraries
that failed to export and the result of each hook.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific run",
	Long:  `Display detailed information about a run by its ID, run ID or a unique ID prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than the retention period.`,
	RunE:  runHistoryClean,
}

var (
	historyLimit int
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getHistory returns the configured history, or the default location
// when the configuration cannot be loaded.
func getHistory() (*history.History, error) {
	if cfg == nil {
		return history.New(config.DefaultHistoryPath())
	}
	return history.New(cfg.History.Path)
}

// runHistory lists recent runs.
func runHistory(_ *cobra.Command, _ []string) error {
	h, err := getHistory()
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	entries, err := h.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'pbmirror run' to sync and extract.")
		return nil
	}

	fmt.Printf("\n%-44s  %-8s  %-8s  %-10s  %-8s  %s\n", "ID", "TYPE", "COPIED", "SIZE", "FAILED", "STATUS")
	fmt.Println(strings.Repeat("-", 96))

	for _, e := range entries {
		fmt.Printf("%-44s  %-8s  %-8d  %-10s  %-8d  %s\n",
			truncateString(e.ID, 44),
			e.Operation,
			e.Summary.FilesCopied,
			types.FormatSize(e.Summary.BytesCopied),
			e.Summary.Failures,
			entryStatus(&e),
		)
	}

	fmt.Println(strings.Repeat("-", 96))
	fmt.Printf("\nShowing %d entries. Use --limit to see more.\n", len(entries))
	fmt.Println("Use 'pbmirror history show <id>' for details on a specific entry.")

	return nil
}

// runHistoryShow displays details of a specific run.
func runHistoryShow(_ *cobra.Command, args []string) error {
	h, err := getHistory()
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	e, err := h.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	fmt.Println("\nRun Details")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("ID:         %s\n", e.ID)
	fmt.Printf("Run ID:     %s\n", e.RunID)
	fmt.Printf("Timestamp:  %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Operation:  %s\n", e.Operation)
	fmt.Printf("Duration:   %s\n", output.FormatDuration(e.Duration))
	fmt.Printf("Status:     %s\n", entryStatus(e))
	if e.Error != "" {
		fmt.Printf("Error:      %s\n", e.Error)
	}

	if len(e.Versions) > 0 {
		fmt.Println("\nVersions:")
		fmt.Println(strings.Repeat("-", 60))
		fmt.Printf("%-8s  %-8s  %-8s  %-10s  %-8s  %s\n", "VERSION", "STATUS", "COPIED", "SIZE", "PRUNED", "WARNINGS")
		for _, v := range e.Versions {
			status := "ok"
			switch {
			case v.Skipped:
				status = "skipped"
			case !v.Success:
				status = "failed"
			}
			fmt.Printf("%-8s  %-8s  %-8d  %-10s  %-8d  %d\n",
				v.Version, status, v.FilesCopied, types.FormatSize(v.BytesCopied), v.Pruned, v.Warnings)
		}
	}

	if e.Summary.Targets > 0 {
		fmt.Printf("\nLibraries:  %d exported, %d failed\n", e.Summary.Targets-e.Summary.Failures, e.Summary.Failures)
	}

	if len(e.Failures) > 0 {
		fmt.Println("\nFailures:")
		fmt.Println(strings.Repeat("-", 60))

		// Limit display to 50 libraries
		limit := min(len(e.Failures), 50)
		for _, f := range e.Failures[:limit] {
			fmt.Printf("[%s] %s\n", f.Version, f.Path)
		}
		if len(e.Failures) > limit {
			fmt.Printf("\n... and %d more\n", len(e.Failures)-limit)
		}
		if e.ReportPath != "" {
			fmt.Printf("\nFailure log: %s\n", e.ReportPath)
		}
	}

	if len(e.Hooks) > 0 {
		fmt.Println("\nHooks:")
		fmt.Println(strings.Repeat("-", 60))
		for _, hk := range e.Hooks {
			line := fmt.Sprintf("%-20s exit %d", hk.Name, hk.ExitCode)
			if hk.Error != "" {
				line += "  " + hk.Error
			}
			fmt.Println(line)
		}
	}

	return nil
}

// runHistoryClean removes old history entries.
func runHistoryClean(_ *cobra.Command, _ []string) error {
	c, err := requireConfig()
	if err != nil {
		return err
	}

	h, err := history.New(c.History.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	retentionDays := c.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)

	removed, err := h.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("Removed %d entries.", removed)
	return nil
}

func entryStatus(e *history.Entry) string {
	switch {
	case e.Summary.Interrupted:
		return "interrupted"
	case e.Failed():
		return "failed"
	default:
		return "ok"
	}
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
