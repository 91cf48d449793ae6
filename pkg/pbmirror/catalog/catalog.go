// Package catalog discovers extractable libraries in the local mirror.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/logging"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

// ErrMirrorRoot is returned when the mirror root cannot be read.
var ErrMirrorRoot = errors.New("mirror root unreadable")

// Scan walks mirrorRoot/<version> for every version in order and returns
// one target per regular file whose extension matches ext, ignoring case.
// Versions without a subtree are skipped. Within a version, targets are
// returned in lexical walk order. Unreadable entries are logged and skipped.
// Versions must be distinct single directory names.
func Scan(mirrorRoot string, versions []types.VersionID, ext string) ([]types.TargetInfo, error) {
	log := logging.Get("catalog")

	if err := types.ValidateVersions(versions); err != nil {
		return nil, err
	}

	info, err := os.Stat(mirrorRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMirrorRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrMirrorRoot, mirrorRoot)
	}

	var targets []types.TargetInfo
	for _, v := range versions {
		root := filepath.Join(mirrorRoot, string(v))
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			log.Debug("version not mirrored", "version", v, "path", root)
			continue
		}

		found := 0
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Warn("cannot read entry", "version", v, "path", path, "error", err)
				if d != nil && d.IsDir() && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !Matches(d.Name(), ext) {
				return nil
			}

			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			targets = append(targets, types.TargetInfo{
				Version:  v,
				Name:     strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())),
				FullPath: abs,
			})
			found++
			return nil
		})
		if err != nil {
			log.Warn("scan of version stopped", "version", v, "error", err)
		}
		log.Info("version scanned", "version", v, "targets", found)
	}

	return targets, nil
}

// Matches reports whether name has extension ext, ignoring case.
func Matches(name, ext string) bool {
	return ext != "" && strings.EqualFold(filepath.Ext(name), ext)
}

// Group is the targets of one version in discovery order.
type Group struct {
	Version types.VersionID
	Targets []types.TargetInfo
}

// GroupByVersion splits targets by version, following the order of versions.
// Versions with no targets are omitted. Targets whose version is not listed
// are appended after the listed versions in first-seen order.
func GroupByVersion(targets []types.TargetInfo, versions []types.VersionID) []Group {
	index := make(map[types.VersionID]int, len(versions))
	groups := make([]Group, 0, len(versions))
	for _, v := range versions {
		if _, ok := index[v]; ok {
			continue
		}
		index[v] = len(groups)
		groups = append(groups, Group{Version: v})
	}

	for _, t := range targets {
		i, ok := index[t.Version]
		if !ok {
			i = len(groups)
			index[t.Version] = i
			groups = append(groups, Group{Version: t.Version})
		}
		groups[i].Targets = append(groups[i].Targets, t)
	}

	out := groups[:0]
	for _, g := range groups {
		if len(g.Targets) > 0 {
			out = append(out, g)
		}
	}
	return out
}
