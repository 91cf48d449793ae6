package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/config"
)

// errFailed is returned by commands that ran to completion but recorded
// failures, so the process exits nonzero.
var errFailed = errors.New("finished with errors")

var (
	cfgFile string
	quiet   bool
	verbose bool

	// cfg is loaded by initializeLogging before any command runs. When the
	// configuration is invalid cfg is nil and cfgErr holds the reason.
	cfg    *config.Config
	cfgErr error
	vp     *viper.Viper

	rootCmd = &cobra.Command{
		Use:   "pbmirror",
		Short: "Mirror PowerBuilder libraries and extract their sources",
		Long: `pbmirror keeps a local mirror of the PowerBuilder library share and
exports the sources of every mirrored library with PblDump.

Each configured version (6.5, 7.0, ...) is a subtree of the remote root.
Syncing copies new and changed files and removes local entries that no
longer exist on the remote. Extraction runs PblDump on every .pbl in the
mirror and writes a failure log when any library could not be exported.

Examples:
  pbmirror run                       # Sync, extract and run hooks
  pbmirror sync                      # Mirror only
  pbmirror extract --full            # Re-export every library
  pbmirror catalog -o json           # List mirrored libraries
  pbmirror watch --extract           # Resync versions as they change
  pbmirror history                   # View past runs`,
		SilenceUsage:       true,
		PersistentPreRunE:  initializeLogging,
		PersistentPostRunE: finalizeLogging,
	}
)

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/pbmirror/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "minimal output, no progress bars")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().String("remote", "", "remote root holding the version folders")
	rootCmd.PersistentFlags().String("mirror", "", "local mirror root")
	rootCmd.PersistentFlags().String("sources", "", "root for extracted sources")
	rootCmd.PersistentFlags().StringSlice("versions", nil, "versions to process (default: all configured)")
}

// flagBindings maps persistent flags to their configuration keys.
var flagBindings = map[string]string{
	"remote":   "remote_root",
	"mirror":   "mirror_root",
	"sources":  "sources_root",
	"versions": "versions",
}

// loadConfig builds the configuration from file, environment and flags.
func loadConfig(cmd *cobra.Command) (*viper.Viper, *config.Config, error) {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	for flag, key := range flagBindings {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, nil, fmt.Errorf("binding --%s: %w", flag, err)
			}
		}
	}

	c, err := config.FromViper(v)
	return v, c, err
}

// requireConfig returns the loaded configuration or the reason it could
// not be loaded.
func requireConfig() (*config.Config, error) {
	if cfg == nil {
		if cfgErr == nil {
			cfgErr = errors.New("configuration not loaded")
		}
		return nil, fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	return cfg, nil
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context; an in-flight copy or extraction finishes before it stops.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}
