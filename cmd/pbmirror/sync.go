package main

import (
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror the remote version folders",
	Long: `Make the local mirror an exact copy of each configured version folder on
the remote. Files missing locally or newer on the remote are copied and
local entries with no remote counterpart are removed. The remote is
never modified.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	out, err := s.pipeline.Sync(cmd.Context())
	return report(out, err)
}
