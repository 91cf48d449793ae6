package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

// isolate points HOME and XDG_CONFIG_HOME at a fresh directory and runs the
// test from it so no real config or .env is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Chdir(tempDir)
	return tempDir
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.RemoteRoot != "" {
		t.Errorf("RemoteRoot = %q, want empty", cfg.RemoteRoot)
	}
	if !reflect.DeepEqual(cfg.Versions, DefaultVersions) {
		t.Errorf("Versions = %v, want %v", cfg.Versions, DefaultVersions)
	}
	if cfg.Extension != DefaultExtension {
		t.Errorf("Extension = %q, want %q", cfg.Extension, DefaultExtension)
	}
	if cfg.Extractor.Path != DefaultExtractorPath {
		t.Errorf("Extractor.Path = %q, want %q", cfg.Extractor.Path, DefaultExtractorPath)
	}
	if cfg.Extractor.Flag != "-esu" || cfg.Extractor.Selector != "*.*" {
		t.Errorf("Extractor = %q %q, want -esu *.*", cfg.Extractor.Flag, cfg.Extractor.Selector)
	}
	if cfg.Extractor.Timeout != 10*time.Second {
		t.Errorf("Extractor.Timeout = %v, want 10s", cfg.Extractor.Timeout)
	}
	if cfg.Ledger.Enabled {
		t.Error("Ledger.Enabled = true, want false")
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true")
	}
	if cfg.History.RetentionDays != DefaultRetentionDays {
		t.Errorf("History.RetentionDays = %d, want %d", cfg.History.RetentionDays, DefaultRetentionDays)
	}
	if len(cfg.Hooks) != 0 {
		t.Errorf("len(Hooks) = %d, want 0", len(cfg.Hooks))
	}
	if cfg.Watch.Debounce != DefaultWatchDebounce {
		t.Errorf("Watch.Debounce = %v, want %v", cfg.Watch.Debounce, DefaultWatchDebounce)
	}
	if !strings.HasSuffix(cfg.MirrorRoot, filepath.Join(AppName, "mirror")) {
		t.Errorf("MirrorRoot = %q, want suffix %q", cfg.MirrorRoot, filepath.Join(AppName, "mirror"))
	}
	if !strings.HasSuffix(cfg.LogsRoot, filepath.Join(AppName, "reports")) {
		t.Errorf("LogsRoot = %q, want suffix %q", cfg.LogsRoot, filepath.Join(AppName, "reports"))
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := isolate(t)
	writeConfig(t, filepath.Join(tempDir, ".config", AppName), `
remote_root: /mnt/share/pb
mirror_root: ~/mirror
sources_root: /srv/sources
versions:
  - "7.0"
  - "12.5"
extension: .PBL
extractor:
  path: /opt/pbdump/PblDump
  timeout: 30s
hooks:
  - name: import
    path: /usr/local/bin/import
    args: ["--all"]
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.RemoteRoot != "/mnt/share/pb" {
		t.Errorf("RemoteRoot = %q, want /mnt/share/pb", cfg.RemoteRoot)
	}
	if cfg.MirrorRoot != filepath.Join(tempDir, "mirror") {
		t.Errorf("MirrorRoot = %q, want %q", cfg.MirrorRoot, filepath.Join(tempDir, "mirror"))
	}
	want := []types.VersionID{"7.0", "12.5"}
	if got := cfg.VersionIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("VersionIDs() = %v, want %v", got, want)
	}
	if cfg.Extension != ".PBL" {
		t.Errorf("Extension = %q, want .PBL", cfg.Extension)
	}
	if cfg.Extractor.Timeout != 30*time.Second {
		t.Errorf("Extractor.Timeout = %v, want 30s", cfg.Extractor.Timeout)
	}
	// Unset nested keys keep their defaults.
	if cfg.Extractor.Flag != DefaultExtractorFlag {
		t.Errorf("Extractor.Flag = %q, want %q", cfg.Extractor.Flag, DefaultExtractorFlag)
	}
	if len(cfg.Hooks) != 1 || cfg.Hooks[0].Name != "import" || !reflect.DeepEqual(cfg.Hooks[0].Args, []string{"--all"}) {
		t.Errorf("Hooks = %+v, want one import hook with --all", cfg.Hooks)
	}
}

func TestNewViper_ExplicitFile(t *testing.T) {
	tempDir := isolate(t)
	path := writeConfig(t, filepath.Join(tempDir, "elsewhere"), "remote_root: /explicit\n")

	v, err := NewViper(path)
	if err != nil {
		t.Fatalf("NewViper() error = %v", err)
	}
	cfg, err := FromViper(v)
	if err != nil {
		t.Fatalf("FromViper() error = %v", err)
	}
	if cfg.RemoteRoot != "/explicit" {
		t.Errorf("RemoteRoot = %q, want /explicit", cfg.RemoteRoot)
	}
}

func TestNewViper_ExplicitFileMissing(t *testing.T) {
	tempDir := isolate(t)

	if _, err := NewViper(filepath.Join(tempDir, "missing.yaml")); err == nil {
		t.Error("NewViper() error = nil, want error for missing explicit file")
	}
}

func TestLoad_XDGConfigHome(t *testing.T) {
	tempDir := isolate(t)
	xdgDir := filepath.Join(tempDir, "xdg")
	t.Setenv("XDG_CONFIG_HOME", xdgDir)
	writeConfig(t, filepath.Join(xdgDir, AppName), "remote_root: /from/xdg\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RemoteRoot != "/from/xdg" {
		t.Errorf("RemoteRoot = %q, want /from/xdg", cfg.RemoteRoot)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("PBMIRROR_REMOTE_ROOT", "/from/env")
	t.Setenv("PBMIRROR_EXTRACTOR_TIMEOUT", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RemoteRoot != "/from/env" {
		t.Errorf("RemoteRoot = %q, want /from/env", cfg.RemoteRoot)
	}
	if cfg.Extractor.Timeout != 3*time.Second {
		t.Errorf("Extractor.Timeout = %v, want 3s", cfg.Extractor.Timeout)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	tempDir := isolate(t)
	if err := os.WriteFile(filepath.Join(tempDir, DefaultEnvFile), []byte("PBMIRROR_REMOTE_ROOT=/from/dotenv\n"), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	// godotenv sets the variable for the process; restore it afterwards.
	t.Setenv("PBMIRROR_REMOTE_ROOT", "")
	os.Unsetenv("PBMIRROR_REMOTE_ROOT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RemoteRoot != "/from/dotenv" {
		t.Errorf("RemoteRoot = %q, want /from/dotenv", cfg.RemoteRoot)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty versions", "versions: []\n"},
		{"extension without dot", "extension: pbl\n"},
		{"zero timeout", "extractor:\n  timeout: 0s\n"},
		{"hook without path", "hooks:\n  - name: broken\n"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"negative mirror workers", "mirror:\n  workers: -1\n"},
		{"parent version", "versions: [\"..\"]\n"},
		{"current version", "versions: [\".\"]\n"},
		{"version with separators", "versions: [\"7.0/../..\"]\n"},
		{"version with backslash", "versions: ['7.0\\x']\n"},
		{"duplicate versions", "versions: [\"7.0\", \"7.0\"]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := isolate(t)
			writeConfig(t, filepath.Join(tempDir, ".config", AppName), tt.content)

			_, err := Load()
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Load() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("uses XDG_CONFIG_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")

		dir, err := ConfigDir()
		if err != nil {
			t.Fatalf("ConfigDir() error = %v", err)
		}
		if want := filepath.Join("/custom/config", AppName); dir != want {
			t.Errorf("ConfigDir() = %q, want %q", dir, want)
		}
	})

	t.Run("falls back to HOME/.config", func(t *testing.T) {
		tempDir := t.TempDir()
		t.Setenv("HOME", tempDir)
		t.Setenv("XDG_CONFIG_HOME", "")

		dir, err := ConfigDir()
		if err != nil {
			t.Fatalf("ConfigDir() error = %v", err)
		}
		if want := filepath.Join(tempDir, ".config", AppName); dir != want {
			t.Errorf("ConfigDir() = %q, want %q", dir, want)
		}
	})
}

func TestWriteDefault(t *testing.T) {
	isolate(t)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	for _, want := range []string{"remote_root:", "versions:", `"12.5"`, "flag: -esu", `selector: "*.*"`, "timeout: 10s"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("default config missing %q", want)
		}
	}

	// The template must load cleanly.
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() after WriteDefault() error = %v", err)
	}
	if !reflect.DeepEqual(cfg.Versions, DefaultVersions) {
		t.Errorf("Versions = %v, want %v", cfg.Versions, DefaultVersions)
	}

	// A second call leaves the existing file alone.
	if err := os.WriteFile(path, []byte("remote_root: /kept\n"), 0o644); err != nil {
		t.Fatalf("failed to overwrite config: %v", err)
	}
	if _, err := WriteDefault(); err != nil {
		t.Fatalf("second WriteDefault() error = %v", err)
	}
	content, _ = os.ReadFile(path)
	if string(content) != "remote_root: /kept\n" {
		t.Errorf("WriteDefault() overwrote existing config: %q", content)
	}
}

func TestExpandPath(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	tests := []struct {
		name string
		path string
		want string
	}{
		{"tilde prefix", "~/mirror", filepath.Join(tempDir, "mirror")},
		{"tilde only", "~", tempDir},
		{"absolute path", "/srv/mirror", "/srv/mirror"},
		{"relative path", "mirror", "mirror"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.path)
			if err != nil {
				t.Fatalf("ExpandPath(%q) error = %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestDefaultPaths(t *testing.T) {
	tests := []struct {
		name   string
		got    string
		suffix string
	}{
		{"DataDir", DataDir(), AppName},
		{"StateDir", StateDir(), AppName},
		{"DefaultLedgerPath", DefaultLedgerPath(), filepath.Join(AppName, "ledger")},
		{"DefaultHistoryPath", DefaultHistoryPath(), filepath.Join(AppName, "history")},
		{"DefaultLogPath", DefaultLogPath(), filepath.Join(AppName, "pbmirror.log")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.HasSuffix(tt.got, tt.suffix) {
				t.Errorf("%s() = %q, want suffix %q", tt.name, tt.got, tt.suffix)
			}
		})
	}
}
