package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/ledger"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Manage the extraction ledger",
	Long: `Commands for managing the extraction ledger.

The ledger remembers the size and modification time of every library at
its last successful export so unchanged libraries can be skipped. It is
stored in the XDG data directory (typically ~/.local/share/pbmirror/ledger).`,
}

var ledgerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ledger statistics",
	Long:  `Displays the ledger location and the number of recorded libraries per version.`,
	RunE:  runLedgerStats,
}

var ledgerPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop records for libraries no longer in the mirror",
	RunE:  runLedgerPrune,
}

var ledgerClearCmd = &cobra.Command{
	Use:   "clear [version]",
	Short: "Clear recorded exports",
	Long:  `Removes the records of one version, or of every version when none is given. The next extraction re-exports those libraries.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLedgerClear,
}

var ledgerPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show ledger location",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		fmt.Println(c.Ledger.Path)
		return nil
	},
}

func init() {
	ledgerCmd.AddCommand(ledgerStatsCmd)
	ledgerCmd.AddCommand(ledgerPruneCmd)
	ledgerCmd.AddCommand(ledgerClearCmd)
	ledgerCmd.AddCommand(ledgerPathCmd)
	rootCmd.AddCommand(ledgerCmd)
}

// openLedger opens the configured ledger. It reports false when there is
// no ledger on disk yet.
func openLedger() (*ledger.Ledger, bool, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, false, err
	}
	if _, err := os.Stat(c.Ledger.Path); os.IsNotExist(err) {
		return nil, false, nil
	}
	l, err := ledger.Open(c.Ledger.Path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open ledger: %w", err)
	}
	return l, true, nil
}

func runLedgerStats(_ *cobra.Command, _ []string) error {
	l, ok, err := openLedger()
	if err != nil {
		return err
	}
	fmt.Printf("Ledger location: %s\n", cfg.Ledger.Path)
	fmt.Printf("Enabled:         %t\n", cfg.Ledger.Enabled)
	if !ok {
		fmt.Println("Ledger: empty (no ledger on disk)")
		return nil
	}
	defer l.Close()

	total := 0
	for _, v := range cfg.VersionIDs() {
		n, err := l.Count(v)
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", v, err)
		}
		fmt.Printf("  %-6s %d libraries\n", v, n)
		total += n
	}
	fmt.Printf("Total:           %d libraries\n", total)
	return nil
}

func runLedgerPrune(_ *cobra.Command, _ []string) error {
	l, ok, err := openLedger()
	if err != nil {
		return err
	}
	if !ok {
		printInfo("Ledger is empty.")
		return nil
	}
	defer l.Close()

	n, err := l.Prune()
	if err != nil {
		return fmt.Errorf("failed to prune ledger: %w", err)
	}
	printInfo("Pruned %d records.", n)
	return nil
}

func runLedgerClear(_ *cobra.Command, args []string) error {
	l, ok, err := openLedger()
	if err != nil {
		return err
	}
	if !ok {
		printInfo("Ledger is already empty.")
		return nil
	}
	defer l.Close()

	if len(args) == 1 {
		if err := l.Clear(types.VersionID(args[0])); err != nil {
			return fmt.Errorf("failed to clear %s: %w", args[0], err)
		}
		printInfo("Ledger cleared for %s.", args[0])
		return nil
	}

	if err := l.ClearAll(); err != nil {
		return fmt.Errorf("failed to clear ledger: %w", err)
	}
	printInfo("Ledger cleared.")
	return nil
}
