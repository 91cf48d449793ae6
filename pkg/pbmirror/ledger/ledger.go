// Package ledger records successful extractions so unchanged libraries can
// be skipped on later runs.
package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

// Ledger provides high-level ledger operations keyed by target.
type Ledger struct {
	store *Store
	now   func() time.Time
}

// Open opens or creates a ledger at the given directory.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	store, err := OpenStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	return &Ledger{store: store, now: time.Now}, nil
}

// Close closes the ledger.
func (l *Ledger) Close() error {
	return l.store.Close()
}

// Unchanged reports whether the target's library has the size and
// modification time recorded at its last successful extraction, and that
// extraction wrote to outputDir, which still exists.
func (l *Ledger) Unchanged(t types.TargetInfo, outputDir string) (bool, error) {
	info, err := os.Stat(t.FullPath)
	if err != nil {
		return false, err
	}

	rec, err := l.store.Get(string(t.Version), t.FullPath)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !rec.Matches(info.Size(), info.ModTime()) {
		return false, nil
	}
	if filepath.Clean(rec.OutputDir) != filepath.Clean(outputDir) {
		return false, nil
	}

	out, err := os.Stat(outputDir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return out.IsDir(), nil
}

// Record stores a successful extraction of the target into outputDir.
func (l *Ledger) Record(t types.TargetInfo, outputDir string) error {
	info, err := os.Stat(t.FullPath)
	if err != nil {
		return err
	}

	return l.store.Put(string(t.Version), t.FullPath, &Record{
		Format:      FormatVersion,
		Size:        info.Size(),
		Mtime:       info.ModTime().UnixNano(),
		ExtractedAt: l.now().UnixNano(),
		OutputDir:   outputDir,
	})
}

// Forget drops the record of a target so it is extracted on the next run.
func (l *Ledger) Forget(t types.TargetInfo) error {
	return l.store.Delete(string(t.Version), t.FullPath)
}

// Prune removes records whose library no longer exists and returns how
// many were removed.
func (l *Ledger) Prune() (int, error) {
	keys, err := l.store.Keys("")
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		version, path := ParseKey(key)
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := l.store.Delete(version, path); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Count returns the number of records for a version, or all records when
// version is empty.
func (l *Ledger) Count(version types.VersionID) (int, error) {
	keys, err := l.store.Keys(string(version))
	return len(keys), err
}

// Clear removes all records of a version.
func (l *Ledger) Clear(version types.VersionID) error {
	return l.store.DeletePrefix(string(version))
}

// ClearAll removes all records.
func (l *Ledger) ClearAll() error {
	return l.store.DeletePrefix("")
}
