// Package logging provides component loggers for pbmirror backed by
// charmbracelet/log. Every logger writes to a rotating file; console output
// on stderr is enabled per run from the CLI verbosity flags.
//
// Basic usage:
//
//	cfg := logging.Config{
//	    Level:        "info",
//	    ConsoleLevel: "info",
//	}
//	if err := logging.Init(cfg); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Close()
//
//	logger := logging.Get("mirror")
//	logger.Info("sync started", "version", "10.5")
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level represents a logging level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

func (l Level) toCharmLevel() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a string into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default file log level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty uses DefaultLogPath().
	Path string

	// Rotation configures log file rotation.
	Rotation RotationConfig

	// Components maps component names to their log levels.
	Components map[string]string

	// ConsoleLevel enables stderr output at the given level.
	// Empty disables console output.
	ConsoleLevel string

	// Console overrides the console writer. Nil means os.Stderr.
	Console io.Writer

	// ProblemBufferSize is the number of warnings and errors kept in
	// memory for the end-of-run summary. Zero uses DefaultBufferSize.
	ProblemBufferSize int
}

// Entry is a single recorded warning or error.
type Entry struct {
	Time      time.Time
	Level     Level
	Component string
	Message   string
}

// Logger wraps charmbracelet/log with component identification.
type Logger struct {
	file      *log.Logger
	console   *log.Logger
	component string
	lead      int
	trail     int
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, msg, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(LevelError, msg, args...)
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	logTo(l.file, level, msg, args...)

	if l.console != nil {
		Blank(l.lead)
		globalState.consoleMu.Lock()
		logTo(l.console, level, msg, args...)
		globalState.consoleMu.Unlock()
		Blank(l.trail)
	}

	if level >= LevelWarn {
		globalState.record(Entry{
			Time:      time.Now(),
			Level:     level,
			Component: l.component,
			Message:   msg,
		})
	}
}

func logTo(logger *log.Logger, level Level, msg string, args ...interface{}) {
	switch level {
	case LevelDebug:
		logger.Debug(msg, args...)
	case LevelInfo:
		logger.Info(msg, args...)
	case LevelWarn:
		logger.Warn(msg, args...)
	case LevelError:
		logger.Error(msg, args...)
	}
}

// With returns a new logger with additional context.
func (l *Logger) With(args ...interface{}) *Logger {
	newLogger := &Logger{
		file:      l.file.With(args...),
		component: l.component,
	}
	if l.console != nil {
		newLogger.console = l.console.With(args...)
	}
	return newLogger
}

// Spaced returns a copy of the logger whose console records are preceded by
// lead blank lines and followed by trail blank lines. The file log is unchanged.
func (l *Logger) Spaced(lead, trail int) *Logger {
	spaced := *l
	spaced.lead = lead
	spaced.trail = trail
	return &spaced
}

// Blank writes n empty lines to the console when console output is enabled.
func Blank(n int) {
	if n <= 0 {
		return
	}
	globalState.mu.RLock()
	w := globalState.consoleWriter
	enabled := globalState.consoleEnabled
	globalState.mu.RUnlock()
	if !enabled {
		return
	}

	globalState.consoleMu.Lock()
	defer globalState.consoleMu.Unlock()
	_, _ = io.WriteString(w, strings.Repeat("\n", n))
}

// ConsoleWriter returns the writer console records go to, or io.Discard when
// console output is disabled. Progress bars share it so their carriage-return
// lines interleave with log records.
func ConsoleWriter() io.Writer {
	globalState.mu.RLock()
	defer globalState.mu.RUnlock()
	if !globalState.consoleEnabled {
		return io.Discard
	}
	return lockedWriter{w: globalState.consoleWriter, mu: &globalState.consoleMu}
}

type lockedWriter struct {
	w  io.Writer
	mu *sync.Mutex
}

func (lw lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

type state struct {
	mu          sync.RWMutex
	initialized bool
	writer      *RotatingWriter
	level       Level
	components  map[string]Level
	loggers     map[string]*Logger

	consoleEnabled bool
	consoleLevel   Level
	consoleWriter  io.Writer
	consoleMu      sync.Mutex

	problems *LogBuffer
}

var globalState = &state{
	loggers:    make(map[string]*Logger),
	components: make(map[string]Level),
	problems:   NewLogBuffer(DefaultBufferSize),
}

// Init initializes the logging system with the given configuration.
// Before Init is called, all loggers write to io.Discard.
func Init(cfg Config) error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if globalState.initialized {
		if globalState.writer != nil {
			if err := globalState.writer.Close(); err != nil {
				return fmt.Errorf("closing existing writer: %w", err)
			}
		}
		globalState.loggers = make(map[string]*Logger)
		globalState.components = make(map[string]Level)
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	globalState.level = level

	for comp, lvl := range cfg.Components {
		parsedLevel, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		globalState.components[comp] = parsedLevel
	}

	globalState.consoleEnabled = false
	if cfg.ConsoleLevel != "" {
		consoleLevel, err := ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		globalState.consoleLevel = consoleLevel
		globalState.consoleEnabled = true
	}
	globalState.consoleWriter = cfg.Console
	if globalState.consoleWriter == nil {
		globalState.consoleWriter = os.Stderr
	}

	globalState.problems = NewLogBuffer(cfg.ProblemBufferSize)

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}

	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}
	globalState.writer = writer
	globalState.initialized = true

	for component := range globalState.loggers {
		globalState.loggers[component] = createLogger(component)
	}

	return nil
}

// Get returns the logger for the given component, creating it on first use.
// A component level override from the config takes precedence over the
// default level.
func Get(component string) *Logger {
	globalState.mu.RLock()
	if logger, ok := globalState.loggers[component]; ok {
		globalState.mu.RUnlock()
		return logger
	}
	globalState.mu.RUnlock()

	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if logger, ok := globalState.loggers[component]; ok {
		return logger
	}

	logger := createLogger(component)
	globalState.loggers[component] = logger
	return logger
}

// createLogger must be called with globalState.mu held.
func createLogger(component string) *Logger {
	level := globalState.level
	if compLevel, ok := globalState.components[component]; ok {
		level = compLevel
	}

	if !globalState.initialized {
		return &Logger{
			file: log.NewWithOptions(io.Discard, log.Options{
				Level:  level.toCharmLevel(),
				Prefix: component,
			}),
			component: component,
		}
	}

	logger := &Logger{
		file: log.NewWithOptions(globalState.writer, log.Options{
			Level:           level.toCharmLevel(),
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		}),
		component: component,
	}

	if globalState.consoleEnabled {
		logger.console = log.NewWithOptions(globalState.consoleWriter, log.Options{
			Level:           globalState.consoleLevel.toCharmLevel(),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          component,
		})
	}

	return logger
}

// Close flushes and closes the log file.
func Close() error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if !globalState.initialized {
		return nil
	}

	if globalState.writer != nil {
		if err := globalState.writer.Close(); err != nil {
			return fmt.Errorf("closing log writer: %w", err)
		}
		globalState.writer = nil
	}

	globalState.initialized = false
	globalState.consoleEnabled = false
	globalState.loggers = make(map[string]*Logger)
	globalState.components = make(map[string]Level)

	return nil
}

func (s *state) record(entry Entry) {
	s.mu.RLock()
	buf := s.problems
	s.mu.RUnlock()
	buf.Add(entry)
}

// Problems returns the buffer of warnings and errors recorded since Init.
func Problems() *LogBuffer {
	globalState.mu.RLock()
	defer globalState.mu.RUnlock()
	return globalState.problems
}

// DefaultLogPath returns $XDG_STATE_HOME/pbmirror/pbmirror.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "pbmirror", "pbmirror.log")
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:        "info",
		Path:         DefaultLogPath(),
		Rotation:     DefaultRotationConfig(),
		ConsoleLevel: "info",
	}
}
