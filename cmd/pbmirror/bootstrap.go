package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/config"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/logging"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

// initializeLogging is the root PersistentPreRunE hook. It creates the
// application directories, loads the configuration and starts logging.
// An invalid configuration is not fatal here so that commands such as
// "config init" keep working; commands that need it call requireConfig.
func initializeLogging(cmd *cobra.Command, _ []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	for _, dir := range []string{config.DataDir(), config.StateDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	lc := config.LoggingConfig{Level: "info"}
	if cmd != nil {
		vp, cfg, cfgErr = loadConfig(cmd)
		if cfg != nil {
			lc = cfg.Logging
		}
	}

	if err := logging.Init(loggingConfig(lc, consoleLevel(quiet, verbose))); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}

	if cfgErr != nil {
		logging.Get("pbmirror").Debug("configuration not loaded", "error", cfgErr)
	}
	return nil
}

func finalizeLogging(_ *cobra.Command, _ []string) error {
	return logging.Close()
}

// loggingConfig converts the configured logging section.
func loggingConfig(lc config.LoggingConfig, console string) logging.Config {
	level := lc.Level
	if level == "" {
		level = "info"
	}
	if console == "debug" {
		level = "debug"
	}

	path := lc.Path
	if path == "" {
		path = config.DefaultLogPath()
	}

	return logging.Config{
		Level:        level,
		Path:         path,
		Rotation:     parseRotationConfig(lc.Rotation),
		Components:   lc.Components,
		ConsoleLevel: console,
	}
}

// consoleLevel picks the stderr log level from the -q and -v flags.
func consoleLevel(quiet, verbose bool) string {
	switch {
	case quiet:
		return "error"
	case verbose:
		return "debug"
	default:
		return "info"
	}
}

// parseRotationConfig converts the configured rotation, falling back to
// the default size when max_size is empty or malformed.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	out := logging.RotationConfig{
		MaxSize:    logging.DefaultRotationConfig().MaxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
	if rc.MaxSize != "" {
		if size, err := types.ParseSize(rc.MaxSize); err == nil && size > 0 {
			out.MaxSize = size
		}
	}
	return out
}
