package logging_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/logging"
)

// Tests in this file share the package-level logging state and must not run in parallel.

func initLogging(t *testing.T, cfg logging.Config) string {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "pbmirror.log")
	}
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	require.NoError(t, logging.Init(cfg))
	t.Cleanup(func() {
		assert.NoError(t, logging.Close())
	})
	return cfg.Path
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestInit_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  logging.Config
	}{
		{
			name: "invalid level",
			cfg:  logging.Config{Level: "loud", Path: filepath.Join(dir, "a.log")},
		},
		{
			name: "invalid component level",
			cfg: logging.Config{
				Level:      "info",
				Path:       filepath.Join(dir, "b.log"),
				Components: map[string]string{"mirror": "chatty"},
			},
		},
		{
			name: "invalid console level",
			cfg:  logging.Config{Level: "info", Path: filepath.Join(dir, "c.log"), ConsoleLevel: "nope"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := logging.Init(tt.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, logging.ErrInvalidLevel)
		})
	}
}

func TestLogger_WritesToFile(t *testing.T) {
	path := initLogging(t, logging.Config{})

	logging.Get("mirror").Info("sync started", "version", "10.5")

	content := readLog(t, path)
	assert.Contains(t, content, "mirror")
	assert.Contains(t, content, "sync started")
	assert.Contains(t, content, "version=10.5")
}

func TestLogger_ComponentLevelOverride(t *testing.T) {
	path := initLogging(t, logging.Config{
		Level:      "info",
		Components: map[string]string{"extract": "debug", "catalog": "error"},
	})

	logging.Get("extract").Debug("extract debug visible")
	logging.Get("catalog").Warn("catalog warn hidden")
	logging.Get("mirror").Debug("mirror debug hidden")

	content := readLog(t, path)
	assert.Contains(t, content, "extract debug visible")
	assert.NotContains(t, content, "catalog warn hidden")
	assert.NotContains(t, content, "mirror debug hidden")
}

func TestLogger_ConsoleAndSpaced(t *testing.T) {
	var console bytes.Buffer
	path := initLogging(t, logging.Config{ConsoleLevel: "info", Console: &console})

	logger := logging.Get("pipeline")
	logger.Info("plain line")
	logger.Spaced(1, 2).Info("padded line")

	out := console.String()
	assert.Contains(t, out, "plain line")
	idx := strings.Index(out, "padded line")
	require.Positive(t, idx)
	assert.Contains(t, out[:idx], "\n\n", "expected a blank line before padded record")
	assert.True(t, strings.HasSuffix(out, "\n\n\n"), "expected two blank lines after padded record: %q", out)

	assert.NotContains(t, readLog(t, path), "\n\n", "file log must not receive blank lines")
}

func TestLogger_ConsoleDisabled(t *testing.T) {
	var console bytes.Buffer
	initLogging(t, logging.Config{Console: &console})

	logging.Get("pipeline").Info("quiet")
	logging.Blank(3)

	assert.Empty(t, console.String())
}

func TestProblems_RecordsWarningsAndErrors(t *testing.T) {
	initLogging(t, logging.Config{ProblemBufferSize: 10})

	logger := logging.Get("mirror")
	logger.Info("not a problem")
	logger.Warn("copy failed")
	logger.Error("version failed")

	problems := logging.Problems()
	require.Equal(t, 2, problems.Count(logging.LevelDebug))
	assert.Equal(t, 2, problems.Count(logging.LevelWarn))
	assert.Equal(t, 1, problems.Count(logging.LevelError))
}

func TestLogger_ConcurrentWrites(t *testing.T) {
	path := initLogging(t, logging.Config{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger := logging.Get("worker")
			for j := 0; j < 50; j++ {
				logger.Info("tick")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, strings.Count(readLog(t, path), "tick"))
}

func TestDefaultLogPath(t *testing.T) {
	path := logging.DefaultLogPath()
	assert.Equal(t, "pbmirror.log", filepath.Base(path))
	assert.Equal(t, "pbmirror", filepath.Base(filepath.Dir(path)))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logging.Level
		wantErr bool
	}{
		{in: "debug", want: logging.LevelDebug},
		{in: "INFO", want: logging.LevelInfo},
		{in: "warning", want: logging.LevelWarn},
		{in: "warn", want: logging.LevelWarn},
		{in: "error", want: logging.LevelError},
		{in: "verbose", want: logging.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, logging.ErrInvalidLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, strings.TrimSuffix(strings.ToLower(tt.in), "ing"), got.String())
		})
	}
}
