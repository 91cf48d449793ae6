package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/pipeline"
)

var watchExtract bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Resync versions when the remote changes",
	Long: `Watch each version folder on the remote and resync a version once its
changes have been quiet for watch.debounce. With --extract the version's
libraries are exported after every resync. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchExtract, "extract", false, "extract the version after each resync")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	printInfo("Watching %s (Ctrl-C to stop)...", s.cfg.RemoteRoot)

	return s.pipeline.Watch(cmd.Context(), watchExtract, func(out *pipeline.Outcome, err error) {
		if rerr := report(out, err); rerr != nil {
			printVerbose("resync finished: %v", rerr)
		}
	})
}
