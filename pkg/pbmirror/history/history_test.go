package history

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

// setupTestHistory returns a History whose clock advances one minute per entry.
func setupTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var mu sync.Mutex
	clock := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	h.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Minute)
		return clock
	}
	return h
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("creates history with valid directory", func(t *testing.T) {
		t.Parallel()

		h, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New() error = %v, want nil", err)
		}
		if h == nil {
			t.Fatal("New() returned nil")
		}
	})

	t.Run("returns error for empty directory", func(t *testing.T) {
		t.Parallel()

		if _, err := New(""); err == nil {
			t.Fatal("New() error = nil, want error for empty directory")
		}
	})
}

func TestHistory_EnsureDir(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "nested", "history")

	h, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := h.EnsureDir(); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("directory not created: %v", err)
	}
}

func TestHistory_NewEntry(t *testing.T) {
	t.Parallel()
	h := setupTestHistory(t)

	e := h.NewEntry(OpExtract)

	if !strings.HasPrefix(e.ID, "extract-2024-06-15T10-31-00-") {
		t.Errorf("ID = %q, want extract-2024-06-15T10-31-00-<suffix>", e.ID)
	}
	if _, err := uuid.Parse(e.RunID); err != nil {
		t.Errorf("RunID %q is not a UUID: %v", e.RunID, err)
	}
	if !strings.HasSuffix(e.ID, e.RunID[:8]) {
		t.Errorf("ID %q does not end with the run ID prefix %q", e.ID, e.RunID[:8])
	}
	if e.Operation != OpExtract {
		t.Errorf("Operation = %q, want %q", e.Operation, OpExtract)
	}
}

func TestHistory_RecordAndGet(t *testing.T) {
	t.Parallel()
	h := setupTestHistory(t)
	if err := h.EnsureDir(); err != nil {
		t.Fatal(err)
	}

	e := h.NewEntry(OpRun)
	e.AddSync([]types.SyncResult{
		{Version: "7.0", Success: true, FilesCopied: 3, BytesCopied: 300, EntriesPruned: 1},
		{Version: "9.0", Skipped: true},
	})
	report := &types.FailureReport{}
	report.Add(types.ExtractionResult{Target: types.TargetInfo{Version: "7.0", FullPath: "/m/7.0/x.pbl"}})
	report.Add(types.ExtractionResult{Succeeded: true})
	e.AddReport(report, "/logs/log_1.log")

	if err := h.Record(e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	for _, id := range []string{e.ID, e.RunID, e.RunID[:6]} {
		got, err := h.Get(id)
		if err != nil {
			t.Fatalf("Get(%q) error = %v", id, err)
		}
		if got.ID != e.ID {
			t.Errorf("Get(%q).ID = %q, want %q", id, got.ID, e.ID)
		}
		if got.Summary.FilesCopied != 3 || got.Summary.Pruned != 1 {
			t.Errorf("Summary = %+v, want 3 copied and 1 pruned", got.Summary)
		}
		if got.Summary.Targets != 2 || got.Summary.Failures != 1 {
			t.Errorf("Summary = %+v, want 2 targets and 1 failure", got.Summary)
		}
		if len(got.Failures) != 1 || got.Failures[0].Path != "/m/7.0/x.pbl" {
			t.Errorf("Failures = %+v", got.Failures)
		}
		if got.ReportPath != "/logs/log_1.log" {
			t.Errorf("ReportPath = %q", got.ReportPath)
		}
	}
}

func TestHistory_GetNotFound(t *testing.T) {
	t.Parallel()
	h := setupTestHistory(t)

	if _, err := h.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if _, err := h.Get(""); err == nil {
		t.Error("Get(\"\") error = nil, want error")
	}
}

func TestHistory_List(t *testing.T) {
	t.Parallel()
	h := setupTestHistory(t)
	if err := h.EnsureDir(); err != nil {
		t.Fatal(err)
	}

	var ids []string
	for _, op := range []OperationType{OpSync, OpExtract, OpRun} {
		e := h.NewEntry(op)
		if err := h.Record(e); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, e.ID)
	}

	// Unparseable files are skipped.
	if err := os.WriteFile(filepath.Join(h.Dir(), "garbage.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	all, err := h.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List(0) returned %d entries, want 3", len(all))
	}
	if all[0].ID != ids[2] || all[2].ID != ids[0] {
		t.Errorf("List() not sorted newest first: %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}

	limited, err := h.List(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("List(2) returned %d entries, want 2", len(limited))
	}
}

func TestHistory_ListMissingDir(t *testing.T) {
	t.Parallel()
	h, _ := New(filepath.Join(t.TempDir(), "absent"))

	entries, err := h.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("List() = %v, want empty slice", entries)
	}
}

func TestHistory_Cleanup(t *testing.T) {
	t.Parallel()
	h := setupTestHistory(t)
	if err := h.EnsureDir(); err != nil {
		t.Fatal(err)
	}

	old := h.NewEntry(OpSync)
	old.Timestamp = old.Timestamp.AddDate(0, 0, -40)
	recent := h.NewEntry(OpSync)
	for _, e := range []*Entry{old, recent} {
		if err := h.Record(e); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := h.Cleanup(30)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Cleanup() removed %d, want 1", removed)
	}

	entries, _ := h.List(0)
	if len(entries) != 1 || entries[0].ID != recent.ID {
		t.Errorf("remaining entries = %+v, want only %s", entries, recent.ID)
	}
}

func TestHistory_ConcurrentRecords(t *testing.T) {
	t.Parallel()
	h := setupTestHistory(t)
	if err := h.EnsureDir(); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.Record(h.NewEntry(OpWatch)); err != nil {
				t.Errorf("Record() error = %v", err)
			}
		}()
	}
	wg.Wait()

	entries, err := h.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 10 {
		t.Errorf("List() returned %d entries, want 10", len(entries))
	}
}

func TestEntry_Failed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry Entry
		want  bool
	}{
		{"clean", Entry{Versions: []VersionRecord{{Success: true}, {Skipped: true}}}, false},
		{"failed version", Entry{Versions: []VersionRecord{{Success: false}}}, true},
		{"extraction failures", Entry{Summary: Summary{Failures: 2}}, true},
		{"failed hook", Entry{Hooks: []HookRecord{{Name: "import", ExitCode: 1}}}, true},
		{"run error", Entry{Error: "remote root unreachable"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Failed(); got != tt.want {
				t.Errorf("Failed() = %v, want %v", got, tt.want)
			}
		})
	}
}
