package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

// AppName names the configuration, data and state directories.
const AppName = "pbmirror"

// EnvPrefix is prepended to every environment override (PBMIRROR_MIRROR_ROOT).
const EnvPrefix = "PBMIRROR"

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// ExtractorConfig describes how the extraction tool is invoked.
type ExtractorConfig struct {
	Path     string        `mapstructure:"path" validate:"required"`
	Flag     string        `mapstructure:"flag" validate:"required"`
	Selector string        `mapstructure:"selector" validate:"required"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// LedgerConfig configures the incremental extraction ledger.
type LedgerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

// HistoryConfig configures run history records.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path" validate:"required_if=Enabled true"`
	RetentionDays int    `mapstructure:"retention_days" validate:"gte=0"`
}

// HookConfig is one post-processing step run after extraction.
type HookConfig struct {
	Name string   `mapstructure:"name" yaml:"name" validate:"required"`
	Path string   `mapstructure:"path" yaml:"path" validate:"required"`
	Args []string `mapstructure:"args" yaml:"args,omitempty"`
	Dir  string   `mapstructure:"dir" yaml:"dir,omitempty"`
}

// MirrorConfig configures the mirror synchronizer.
type MirrorConfig struct {
	// Workers is the number of parallel directory walkers; 0 sizes it
	// from the detected CPU and memory.
	Workers int `mapstructure:"workers" validate:"gte=0"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" validate:"gt=0"`
}

// Config represents the application configuration.
type Config struct {
	RemoteRoot  string          `mapstructure:"remote_root"`
	MirrorRoot  string          `mapstructure:"mirror_root" validate:"required"`
	SourcesRoot string          `mapstructure:"sources_root" validate:"required"`
	LogsRoot    string          `mapstructure:"logs_root" validate:"required"`
	Versions    []string        `mapstructure:"versions" validate:"min=1,unique,dive,required,version"`
	Extension   string          `mapstructure:"extension" validate:"required,startswith=."`
	Mirror      MirrorConfig    `mapstructure:"mirror"`
	Extractor   ExtractorConfig `mapstructure:"extractor"`
	Ledger      LedgerConfig    `mapstructure:"ledger"`
	History     HistoryConfig   `mapstructure:"history"`
	Hooks       []HookConfig    `mapstructure:"hooks" validate:"dive"`
	Watch       WatchConfig     `mapstructure:"watch"`
	Logging     LoggingConfig   `mapstructure:"logging"`
}

// VersionIDs returns the configured versions in order.
func (c *Config) VersionIDs() []types.VersionID {
	ids := make([]types.VersionID, 0, len(c.Versions))
	for _, v := range c.Versions {
		ids = append(ids, types.VersionID(v))
	}
	return ids
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// newValidator returns a validator with the "version" rule registered.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("version", func(fl validator.FieldLevel) bool {
		return types.VersionID(fl.Field().String()).Validate() == nil
	})
	return v
}

// Load loads configuration from the default file locations and environment.
func Load() (*Config, error) {
	v, err := NewViper("")
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// NewViper builds a viper instance with defaults, the config file and
// environment bindings applied. When file is empty the config is searched
// for in (in order of precedence):
//   - $XDG_CONFIG_HOME/pbmirror/config.yaml
//   - $HOME/.config/pbmirror/config.yaml
//
// A .env file in the working directory is loaded into the environment
// first. Environment variables are prefixed with PBMIRROR_ (e.g.
// PBMIRROR_REMOTE_ROOT, PBMIRROR_EXTRACTOR_TIMEOUT).
func NewViper(file string) (*viper.Viper, error) {
	if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", DefaultEnvFile, err)
	}

	v := viper.New()
	v.SetConfigType("yaml")

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, AppName))
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(homeDir, ".config", AppName))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("remote_root", "")
	v.SetDefault("mirror_root", filepath.Join(DataDir(), "mirror"))
	v.SetDefault("sources_root", filepath.Join(DataDir(), "sources"))
	v.SetDefault("logs_root", filepath.Join(StateDir(), "reports"))
	v.SetDefault("versions", DefaultVersions)
	v.SetDefault("extension", DefaultExtension)

	v.SetDefault("mirror.workers", 0)

	v.SetDefault("extractor.path", DefaultExtractorPath)
	v.SetDefault("extractor.flag", DefaultExtractorFlag)
	v.SetDefault("extractor.selector", DefaultExtractorSelector)
	v.SetDefault("extractor.timeout", DefaultExtractorTimeout)

	v.SetDefault("ledger.enabled", false)
	v.SetDefault("ledger.path", DefaultLedgerPath())

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", DefaultHistoryPath())
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("hooks", []HookConfig{})
	v.SetDefault("watch.debounce", DefaultWatchDebounce)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "5MB")
	v.SetDefault("logging.rotation.max_age", 14)
	v.SetDefault("logging.rotation.max_backups", 7)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"mirror":   "info",
		"catalog":  "info",
		"extract":  "info",
		"pipeline": "info",
		"watcher":  "warn",
	})
}

// FromViper decodes, expands and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{
		&cfg.RemoteRoot, &cfg.MirrorRoot, &cfg.SourcesRoot, &cfg.LogsRoot,
		&cfg.Ledger.Path, &cfg.History.Path, &cfg.Logging.Path,
	} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", AppName), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}

	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	versions := make([]string, 0, len(DefaultVersions))
	for _, v := range DefaultVersions {
		versions = append(versions, fmt.Sprintf("  - %q", v))
	}

	defaultConfig := fmt.Sprintf(`# pbmirror configuration

# Network share holding one subtree per version (required)
remote_root: ""

# Local mirror of the remote, one subtree per version
mirror_root: %s

# Extracted sources, laid out as <version>/<library>/
sources_root: %s

# Failure logs written after each extraction batch
logs_root: %s

# Versions to mirror and extract, in processing order
versions:
%s

# Library file extension (matched case-insensitively)
extension: %s

# Parallel directory walkers for the mirror (0 = sized from CPU and memory)
mirror:
  workers: 0

# Extraction tool invocation: <path> <flag> <library> <selector>
extractor:
  path: %s
  flag: %s
  selector: %q
  timeout: %s

# Skip libraries unchanged since their last successful extraction
ledger:
  enabled: false
  path: %s

# Run history
history:
  enabled: true
  path: %s
  retention_days: %d

# Post-processing steps run in order after extraction
hooks: []
#  - name: import
#    path: /usr/local/bin/import-sources
#    args: ["--all"]
#    dir: ""

# Watch mode
watch:
  debounce: %s

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/pbmirror/pbmirror.log)
  path: ""
  rotation:
    max_size: 5MB
    max_age: 14       # days
    max_backups: 7
    daily: true
  components:
    mirror: info
    catalog: info
    extract: info
    pipeline: info
    watcher: warn
`,
		filepath.Join(DataDir(), "mirror"),
		filepath.Join(DataDir(), "sources"),
		filepath.Join(StateDir(), "reports"),
		strings.Join(versions, "\n"),
		DefaultExtension,
		DefaultExtractorPath, DefaultExtractorFlag, DefaultExtractorSelector, DefaultExtractorTimeout,
		DefaultLedgerPath(),
		DefaultHistoryPath(), DefaultRetentionDays,
		DefaultWatchDebounce,
	)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/pbmirror/ for the mirror, sources, ledger and history.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// StateDir returns $XDG_STATE_HOME/pbmirror/ for log files and failure reports.
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// DefaultLedgerPath returns the default ledger database directory.
func DefaultLedgerPath() string {
	return filepath.Join(DataDir(), "ledger")
}

// DefaultHistoryPath returns the default run history directory.
func DefaultHistoryPath() string {
	return filepath.Join(DataDir(), "history")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), AppName+".log")
}
