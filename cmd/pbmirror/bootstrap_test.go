package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/config"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/history"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/logging"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/pipeline"
)

func TestParseRotationConfig(t *testing.T) {
	tests := []struct {
		name     string
		input    config.RotationConfig
		expected logging.RotationConfig
	}{
		{
			name: "default values",
			input: config.RotationConfig{
				MaxSize:    "5MB",
				MaxAge:     14,
				MaxBackups: 7,
				Daily:      true,
			},
			expected: logging.RotationConfig{
				MaxSize:    5 * 1024 * 1024, // 5MB
				MaxAge:     14,
				MaxBackups: 7,
				Daily:      true,
			},
		},
		{
			name: "custom size in gigabytes",
			input: config.RotationConfig{
				MaxSize:    "1G",
				MaxAge:     7,
				MaxBackups: 3,
				Daily:      false,
			},
			expected: logging.RotationConfig{
				MaxSize:    1024 * 1024 * 1024, // 1GB
				MaxAge:     7,
				MaxBackups: 3,
				Daily:      false,
			},
		},
		{
			name: "empty max_size uses default",
			input: config.RotationConfig{
				MaxAge:     14,
				MaxBackups: 2,
				Daily:      true,
			},
			expected: logging.RotationConfig{
				MaxSize:    5 * 1024 * 1024,
				MaxAge:     14,
				MaxBackups: 2,
				Daily:      true,
			},
		},
		{
			name: "invalid max_size uses default",
			input: config.RotationConfig{
				MaxSize:    "invalid",
				MaxAge:     21,
				MaxBackups: 4,
			},
			expected: logging.RotationConfig{
				MaxSize:    5 * 1024 * 1024,
				MaxAge:     21,
				MaxBackups: 4,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseRotationConfig(tt.input)
			if result != tt.expected {
				t.Errorf("parseRotationConfig() = %+v, want %+v", result, tt.expected)
			}
		})
	}
}

func TestConsoleLevel(t *testing.T) {
	tests := []struct {
		quiet, verbose bool
		want           string
	}{
		{false, false, "info"},
		{false, true, "debug"},
		{true, false, "error"},
		{true, true, "error"},
	}
	for _, tt := range tests {
		if got := consoleLevel(tt.quiet, tt.verbose); got != tt.want {
			t.Errorf("consoleLevel(%v, %v) = %q, want %q", tt.quiet, tt.verbose, got, tt.want)
		}
	}
}

func TestLoggingConfig(t *testing.T) {
	lc := config.LoggingConfig{
		Level:      "warn",
		Components: map[string]string{"mirror": "error"},
	}

	got := loggingConfig(lc, "info")
	if got.Level != "warn" {
		t.Errorf("Level = %q, want warn", got.Level)
	}
	if got.Path != config.DefaultLogPath() {
		t.Errorf("Path = %q, want default %q", got.Path, config.DefaultLogPath())
	}
	if got.ConsoleLevel != "info" {
		t.Errorf("ConsoleLevel = %q, want info", got.ConsoleLevel)
	}
	if got.Components["mirror"] != "error" {
		t.Errorf("Components not carried over: %v", got.Components)
	}

	if got := loggingConfig(lc, "debug"); got.Level != "debug" {
		t.Errorf("verbose should force debug file level, got %q", got.Level)
	}
	if got := loggingConfig(config.LoggingConfig{}, "info"); got.Level != "info" {
		t.Errorf("empty level should default to info, got %q", got.Level)
	}
}

func TestInitializeLoggingEnsuresDirectories(t *testing.T) {
	// XDG paths are cached at package init time, so the directories are
	// checked at their real locations.
	if err := initializeLogging(nil, nil); err != nil {
		t.Fatalf("initializeLogging() returned error: %v", err)
	}
	defer func() { _ = logging.Close() }()

	configDir, err := config.ConfigDir()
	if err != nil {
		t.Fatalf("failed to get config dir: %v", err)
	}
	for _, dir := range []string{configDir, config.DataDir(), config.StateDir()} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Errorf("directory was not created: %s", dir)
		}
	}
}

func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("remote", "", "")
	cmd.Flags().String("mirror", "", "")
	cmd.Flags().String("sources", "", "")
	cmd.Flags().StringSlice("versions", nil, "")
	return cmd
}

func TestLoadConfigFlagsOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Chdir(dir)

	file := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(file, []byte("remote_root: /from/file\nversions: [\"6.5\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	old := cfgFile
	cfgFile = file
	defer func() { cfgFile = old }()

	cmd := newFlagCommand()
	if err := cmd.Flags().Set("remote", "/from/flag"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("versions", "7.0,9.0"); err != nil {
		t.Fatal(err)
	}

	_, c, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if c.RemoteRoot != "/from/flag" {
		t.Errorf("RemoteRoot = %q, want /from/flag", c.RemoteRoot)
	}
	if !reflect.DeepEqual(c.Versions, []string{"7.0", "9.0"}) {
		t.Errorf("Versions = %v, want [7.0 9.0]", c.Versions)
	}
}

func TestLoadConfigFileWithoutFlags(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Chdir(dir)

	file := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(file, []byte("remote_root: /from/file\nversions: [\"6.5\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	old := cfgFile
	cfgFile = file
	defer func() { cfgFile = old }()

	_, c, err := loadConfig(newFlagCommand())
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if c.RemoteRoot != "/from/file" {
		t.Errorf("RemoteRoot = %q, want /from/file", c.RemoteRoot)
	}
	if !reflect.DeepEqual(c.Versions, []string{"6.5"}) {
		t.Errorf("Versions = %v, want [6.5]", c.Versions)
	}
}

func TestRequireConfig(t *testing.T) {
	oldCfg, oldErr := cfg, cfgErr
	defer func() { cfg, cfgErr = oldCfg, oldErr }()

	cfg, cfgErr = nil, config.ErrInvalid
	if _, err := requireConfig(); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("requireConfig() error = %v, want ErrInvalid", err)
	}

	cfg, cfgErr = &config.Config{}, nil
	if c, err := requireConfig(); err != nil || c != cfg {
		t.Errorf("requireConfig() = %v, %v", c, err)
	}
}

func TestReport(t *testing.T) {
	old := quiet
	quiet = true
	defer func() { quiet = old }()

	ok := &pipeline.Outcome{Entry: &history.Entry{}}
	if err := report(ok, nil); err != nil {
		t.Errorf("report(ok) = %v, want nil", err)
	}

	failed := &pipeline.Outcome{Entry: &history.Entry{Summary: history.Summary{Failures: 1}}}
	if err := report(failed, nil); !errors.Is(err, errFailed) {
		t.Errorf("report(failed) = %v, want errFailed", err)
	}

	if err := report(ok, context.Canceled); !errors.Is(err, context.Canceled) {
		t.Errorf("report(cancelled) = %v, want context.Canceled", err)
	}
}

func TestReport_CountsProblemsPerRun(t *testing.T) {
	old := quiet
	quiet = true
	defer func() { quiet = old }()

	problems := logging.Problems()
	problems.Clear()
	problems.Add(logging.Entry{Level: logging.LevelWarn, Message: "copy failed"})
	problems.Add(logging.Entry{Level: logging.LevelError, Message: "version failed"})

	ok := &pipeline.Outcome{Entry: &history.Entry{}}
	if err := report(ok, nil); err != nil {
		t.Fatalf("report() = %v, want nil", err)
	}
	if n := problems.Count(logging.LevelWarn); n != 0 {
		t.Errorf("problems after report = %d, want 0", n)
	}

	problems.Add(logging.Entry{Level: logging.LevelWarn, Message: "copy failed"})
	if n := takeProblems(); n != 1 {
		t.Errorf("takeProblems() = %d, want 1 for the second run", n)
	}
}

func TestEnvOverrides(t *testing.T) {
	got := envOverrides([]string{"HOME=/root", "PBMIRROR_REMOTE_ROOT=/mnt/pb", "PBMIRRORX=1", "PBMIRROR_LEDGER_ENABLED=true"})
	want := []string{"PBMIRROR_REMOTE_ROOT=/mnt/pb", "PBMIRROR_LEDGER_ENABLED=true"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("envOverrides() = %v, want %v", got, want)
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"run-2024-03-09T14-30-05-abcdef12", 12, "run-2024-..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestBuildFilter(t *testing.T) {
	reset := func() {
		limit, minSize, olderThan, newerThan, sortBy, reverse = 0, "", "", "", "catalog", false
		include, exclude = nil, nil
	}
	t.Cleanup(reset)

	tests := []struct {
		name    string
		set     func()
		wantErr bool
	}{
		{name: "defaults", set: func() {}},
		{name: "all flags", set: func() {
			limit, minSize, olderThan, newerThan = 5, "1M", "30d", "1y"
			include, exclude = []string{"w_*"}, []string{"**/old/**"}
			sortBy, reverse = "size", true
		}},
		{name: "bad size", set: func() { minSize = "huge" }, wantErr: true},
		{name: "bad age", set: func() { olderThan = "soon" }, wantErr: true},
		{name: "bad sort", set: func() { sortBy = "owner" }, wantErr: true},
		{name: "bad pattern", set: func() { include = []string{"[abc"} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reset()
			tt.set()
			f, err := buildFilter()
			if (err != nil) != tt.wantErr {
				t.Fatalf("buildFilter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && f == nil {
				t.Fatal("buildFilter() returned nil filter")
			}
		})
	}
}
