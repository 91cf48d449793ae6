package main

import (
	"github.com/spf13/cobra"
)

var runFull bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sync the mirror, extract sources and run hooks",
	Long: `Run the full pipeline: mirror every configured version from the remote,
rescan the mirror, export each library with PblDump and then run the
configured post-processing hooks in order.

An unreachable remote aborts the run before extraction. Libraries that
fail to export are listed in a failure log under logs_root; they do not
stop the hooks. The first hook that fails stops the hooks after it.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runFull, "full", false, "ignore the ledger and extract every library")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	s, err := openSession(sessionOptions{full: runFull})
	if err != nil {
		return err
	}
	defer s.Close()

	out, err := s.pipeline.Run(cmd.Context())
	return report(out, err)
}
