package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no entry matches an ID.
var ErrNotFound = errors.New("history entry not found")

// History manages run records on the filesystem, one JSON file per run.
type History struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// New creates a History rooted at dir.
// The directory is not created until EnsureDir is called.
func New(dir string) (*History, error) {
	if dir == "" {
		return nil, errors.New("history directory cannot be empty")
	}
	return &History{dir: dir, now: time.Now}, nil
}

// Dir returns the history directory.
func (h *History) Dir() string {
	return h.dir
}

// EnsureDir creates the history directory if it does not exist.
func (h *History) EnsureDir() error {
	return os.MkdirAll(h.dir, 0o755)
}

// NewEntry starts an entry for op with a fresh run ID and the current time.
func (h *History) NewEntry(op OperationType) *Entry {
	runID := uuid.New()
	now := h.now().UTC()
	return &Entry{
		ID:        fmt.Sprintf("%s-%s-%s", op, now.Format("2006-01-02T15-04-05"), runID.String()[:8]),
		RunID:     runID.String(),
		Timestamp: now,
		Operation: op,
	}
}

// Record persists entry.
func (h *History) Record(entry *Entry) error {
	if entry == nil || entry.ID == "" {
		return errors.New("history entry must have an ID")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.writeEntry(entry); err != nil {
		return fmt.Errorf("failed to write history entry: %w", err)
	}
	return nil
}

// writeEntry writes an entry to a JSON file in the history directory.
func (h *History) writeEntry(entry *Entry) error {
	filePath := filepath.Join(h.dir, entry.ID+".json")

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// List returns entries sorted by timestamp descending (newest first).
// If limit is 0 or negative, all entries are returned.
func (h *History) List(limit int) ([]Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.readAll()
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get retrieves an entry by its ID, its run ID, or a unique prefix of either.
func (h *History) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.readAll()
	if err != nil {
		return nil, err
	}

	var match *Entry
	for i := range entries {
		e := &entries[i]
		if e.ID == id || e.RunID == id {
			return e, nil
		}
		if strings.HasPrefix(e.ID, id) || strings.HasPrefix(e.RunID, id) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous entry ID: %s", id)
			}
			match = e
		}
	}

	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return match, nil
}

// Cleanup removes entries older than retentionDays and returns how many
// were removed. Unparseable files are aged by their modification time.
func (h *History) Cleanup(retentionDays int) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := h.now().AddDate(0, 0, -retentionDays)

	files, err := os.ReadDir(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read history directory: %w", err)
	}

	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		var stamp time.Time
		if entry, err := h.readEntryFile(f.Name()); err == nil {
			stamp = entry.Timestamp
		} else if info, err := f.Info(); err == nil {
			stamp = info.ModTime()
		} else {
			continue
		}

		if stamp.Before(cutoff) {
			if err := os.Remove(filepath.Join(h.dir, f.Name())); err != nil {
				continue
			}
			removed++
		}
	}

	return removed, nil
}

func (h *History) readAll() ([]Entry, error) {
	files, err := os.ReadDir(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		entry, err := h.readEntryFile(f.Name())
		if err != nil {
			// Skip files that can't be parsed
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// readEntryFile reads and parses an entry from a JSON file.
func (h *History) readEntryFile(filename string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(h.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}

	return &entry, nil
}
