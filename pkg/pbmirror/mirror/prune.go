package mirror

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"syscall"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

func (s *Synchronizer) walkConfig() *fastwalk.Config {
	return &fastwalk.Config{
		Follow:     false,
		ToSlash:    false,
		NumWorkers: s.opts.Workers,
	}
}

// enumerate lists every entry below root, excluding root itself. Unreadable
// subdirectories are reported through onErr and skipped; an unreadable root
// is returned as an error.
func (s *Synchronizer) enumerate(root string, onErr func(path string, err error)) ([]types.MirrorEntry, error) {
	root = filepath.Clean(root)

	var (
		mu      sync.Mutex
		entries []types.MirrorEntry
	)

	err := fastwalk.Walk(s.walkConfig(), root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if filepath.Clean(path) == root {
				return err
			}
			mu.Lock()
			onErr(path, err)
			mu.Unlock()
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}

		kind := types.KindFile
		if d.IsDir() {
			kind = types.KindDir
		}

		mu.Lock()
		entries = append(entries, types.MirrorEntry{RelPath: rel, Kind: kind})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: enumerating %s: %w", ErrDirectory, root, err)
	}
	return entries, nil
}

// sortDeepestFirst orders entries by path depth, deepest first, breaking
// ties lexically so the order does not depend on enumeration order.
func sortDeepestFirst(entries []types.MirrorEntry) {
	sort.Slice(entries, func(i, j int) bool {
		di, dj := entries[i].Depth(), entries[j].Depth()
		if di != dj {
			return di > dj
		}
		return entries[i].RelPath < entries[j].RelPath
	})
}

// isStale reports whether a local entry has no remote counterpart of the
// same kind. ENOTDIR means an ancestor on the remote is now a file. Any
// other stat failure is returned and the entry is kept.
func isStale(remote string, e types.MirrorEntry) (bool, error) {
	info, err := os.Stat(filepath.Join(remote, e.RelPath))
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir() != (e.Kind == types.KindDir), nil
}

// prune removes local entries that are missing on the remote or whose kind
// differs, processing the deepest entries first.
func (s *Synchronizer) prune(ctx context.Context, remote, local string, res *types.SyncResult) error {
	entries, err := s.enumerate(local, func(path string, err error) {
		s.warn(res, "read local directory", path, err)
	})
	if err != nil {
		return err
	}

	sortDeepestFirst(entries)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		stale, err := isStale(remote, e)
		if err != nil {
			s.warn(res, "stat remote", e.RelPath, err)
			continue
		}
		if !stale {
			continue
		}

		path := filepath.Join(local, e.RelPath)
		if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if e.Kind == types.KindDir {
			err = os.RemoveAll(path)
		} else {
			err = os.Remove(path)
		}
		if err != nil {
			s.warn(res, "prune", e.RelPath, err)
			continue
		}

		res.EntriesPruned++
		s.log.Debug("pruned stale entry", "version", res.Version, "path", e.RelPath, "kind", e.Kind)
	}

	return nil
}

// measure counts the regular files below root and their total size.
func (s *Synchronizer) measure(root string) (files, bytes int64, err error) {
	root = filepath.Clean(root)

	var mu sync.Mutex
	walkErr := fastwalk.Walk(s.walkConfig(), root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if filepath.Clean(path) == root {
				return err
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		mu.Lock()
		files++
		bytes += info.Size()
		mu.Unlock()
		return nil
	})
	if walkErr != nil {
		return 0, 0, fmt.Errorf("%w: measuring %s: %w", ErrDirectory, root, walkErr)
	}
	return files, bytes, nil
}
