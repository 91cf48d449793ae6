package main

import (
	"github.com/spf13/cobra"
)

var extractFull bool

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Export sources from every mirrored library",
	Long: `Scan the local mirror for libraries and run PblDump on each one, version
by version, with sources_root/<version>/<name> as the working directory.
Each invocation is killed after extractor.timeout.

When the ledger is enabled, libraries unchanged since their last
successful export are skipped; use --full to export everything.`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractFull, "full", false, "ignore the ledger and extract every library")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	s, err := openSession(sessionOptions{full: extractFull})
	if err != nil {
		return err
	}
	defer s.Close()

	out, err := s.pipeline.Extract(cmd.Context())
	return report(out, err)
}
