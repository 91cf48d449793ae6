package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage pbmirror configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/pbmirror/config.yaml (if set)
  2. ~/.config/pbmirror/config.yaml

A .env file in the working directory is loaded first. Environment
variables override config file settings using the PBMIRROR_ prefix:
  PBMIRROR_REMOTE_ROOT=/mnt/share/pb
  PBMIRROR_EXTRACTOR_TIMEOUT=30s
  PBMIRROR_LEDGER_ENABLED=true`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, the config file, the environment and flags.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the effective configuration.
func runConfigShow(_ *cobra.Command, _ []string) error {
	if vp == nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}

	if configFile := vp.ConfigFileUsed(); configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fmt.Printf("Config file: %s\n\n", configFile)
		} else {
			fmt.Printf("Config file: (using defaults, no file found)\n\n")
		}
	} else {
		fmt.Printf("Config file: (using defaults, no file found)\n\n")
	}

	if cfgErr != nil {
		fmt.Printf("Configuration is invalid: %v\n\n", cfgErr)
	}

	data, err := yaml.Marshal(vp.AllSettings())
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Print(string(data))

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	overrides := envOverrides(os.Environ())
	if len(overrides) == 0 {
		fmt.Println("(none)")
	}
	for _, kv := range overrides {
		fmt.Println(kv)
	}

	if cfg != nil && cfg.RemoteRoot == "" {
		fmt.Println("\nNote: remote_root is not set; sync and run will refuse to start.")
	}
	return nil
}

// envOverrides returns the PBMIRROR_ variables present in environ.
func envOverrides(environ []string) []string {
	var out []string
	for _, kv := range environ {
		if strings.HasPrefix(kv, config.EnvPrefix+"_") {
			out = append(out, kv)
		}
	}
	return out
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(_ *cobra.Command, _ []string) error {
	configPath, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(_ *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'pbmirror config edit' to modify it.")
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	printInfo("Set remote_root before running 'pbmirror run'.")
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(_ *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if cfgFile != "" {
		configPath = cfgFile
	}

	fmt.Println(configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}
	return nil
}
