// Package types provides core data types for pbmirror.
// It includes the catalog and extraction records shared between the mirror,
// catalog and extraction packages, along with utility functions for parsing
// and formatting byte sizes.
package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// VersionID identifies one supported library version, e.g. "10.5".
// The set of versions is fixed by configuration at startup.
type VersionID string

// ErrInvalidVersion is returned for a version that cannot name a single
// directory directly below the remote and mirror roots.
var ErrInvalidVersion = errors.New("invalid version")

// Validate reports whether v names exactly one directory level: it must be
// non-empty, not "." or "..", and free of path separators and volume names.
func (v VersionID) Validate() error {
	s := string(v)
	switch {
	case s == "":
		return fmt.Errorf("%w: empty", ErrInvalidVersion)
	case s == "." || s == "..":
		return fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	case strings.ContainsAny(s, `/\`), filepath.VolumeName(s) != "", filepath.Base(s) != s:
		return fmt.Errorf("%w: %q is not a single directory name", ErrInvalidVersion, s)
	}
	return nil
}

// ValidateVersions checks every version and rejects duplicates.
func ValidateVersions(versions []VersionID) error {
	seen := make(map[VersionID]bool, len(versions))
	for _, v := range versions {
		if err := v.Validate(); err != nil {
			return err
		}
		if seen[v] {
			return fmt.Errorf("%w: %q listed more than once", ErrInvalidVersion, v)
		}
		seen[v] = true
	}
	return nil
}

// EntryKind distinguishes files from directories in a mirror pass.
type EntryKind int

const (
	// KindFile is a regular file.
	KindFile EntryKind = iota
	// KindDir is a directory.
	KindDir
)

// String returns the kind name.
func (k EntryKind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// MirrorEntry is a filesystem node discovered during a sync pass.
// Entries are recomputed on every pass and never persisted.
type MirrorEntry struct {
	// RelPath is the path relative to the root being enumerated.
	RelPath string

	// Kind is file or directory.
	Kind EntryKind

	// ModTime is the last modification time.
	ModTime time.Time

	// Size is the file size in bytes (0 for directories).
	Size int64
}

// Depth returns the number of path segments in RelPath.
func (e MirrorEntry) Depth() int {
	return PathDepth(e.RelPath)
}

// PathDepth counts the segments of a slash or separator delimited relative path.
func PathDepth(rel string) int {
	rel = strings.Trim(strings.ReplaceAll(rel, "\\", "/"), "/")
	if rel == "" || rel == "." {
		return 0
	}
	return strings.Count(rel, "/") + 1
}

// TargetInfo describes one extractable library found in the local mirror.
type TargetInfo struct {
	// Version is the version subtree the library was found in.
	Version VersionID `json:"version" yaml:"version"`

	// Name is the library base name without extension.
	Name string `json:"name" yaml:"name"`

	// FullPath is the absolute path of the library inside the mirror.
	FullPath string `json:"full_path" yaml:"full_path"`
}

// ExtractionResult is the outcome of running the extraction tool on one target.
type ExtractionResult struct {
	Target TargetInfo

	// Succeeded is true when the tool exited with code 0 (or the target was skipped).
	Succeeded bool

	// ExitCode is the process exit code, -1 when the process never exited normally.
	ExitCode int

	// TimedOut is set when the process was terminated after the timeout.
	TimedOut bool

	// Skipped is set when the ledger showed the target unchanged since its last success.
	Skipped bool

	// Err is a launch failure, if any.
	Err error

	// Duration is the wall-clock time spent on the target.
	Duration time.Duration
}

// Reason returns a short description of why the extraction failed.
func (r ExtractionResult) Reason() string {
	switch {
	case r.Succeeded:
		return "ok"
	case r.TimedOut:
		return "timeout"
	case r.Err != nil:
		return r.Err.Error()
	default:
		return fmt.Sprintf("exit code %d", r.ExitCode)
	}
}

// FailureEntry records one failed target.
type FailureEntry struct {
	Version VersionID `json:"version"`
	Path    string    `json:"path"`
}

// FailureReport aggregates failed targets of one batch.
// Count always equals len(Entries).
type FailureReport struct {
	Count   int            `json:"count"`
	Entries []FailureEntry `json:"entries"`

	// Total is the number of targets processed in the batch.
	Total int `json:"total"`

	// Interrupted is set when the batch stopped before every target was processed.
	Interrupted bool `json:"interrupted,omitempty"`
}

// Add folds an extraction result into the report.
func (r *FailureReport) Add(res ExtractionResult) {
	r.Total++
	if res.Succeeded {
		return
	}
	r.Entries = append(r.Entries, FailureEntry{
		Version: res.Target.Version,
		Path:    res.Target.FullPath,
	})
	r.Count = len(r.Entries)
}

// EntryError is a non-fatal failure on a single mirror entry.
type EntryError struct {
	Path string
	Op   string
	Err  error
}

// Error implements the error interface.
func (e EntryError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e EntryError) Unwrap() error {
	return e.Err
}

// SyncResult summarizes the synchronization of one version subtree.
type SyncResult struct {
	Version VersionID

	// Success is false when the version hit a fatal-to-version error.
	Success bool

	// Skipped is set when the version subtree is missing on the remote.
	Skipped bool

	// FilesConsidered is the number of remote files visited by the propagation pass.
	FilesConsidered int64

	// FilesCopied is the number of files actually copied.
	FilesCopied int64

	// BytesCopied is the sum of the sizes of copied files.
	BytesCopied int64

	// TotalFiles and TotalBytes are measured on the remote before propagation.
	TotalFiles int64
	TotalBytes int64

	// DirsCreated counts directories created in the mirror.
	DirsCreated int64

	// EntriesPruned counts stale entries removed from the mirror.
	EntriesPruned int64

	// Warnings are per-entry failures that did not abort the version.
	Warnings []EntryError

	// Err is the fatal-to-version error when Success is false.
	Err error

	Elapsed time.Duration
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string and returns the size in bytes.
// It supports plain bytes ("1024") and K, M, G, T suffixes with optional
// "B" or "iB" ("100K", "50MB", "2GiB"). All units are binary.
//
// Decimal values are supported and truncated to the nearest byte.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string
// using binary (IEC) units.
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}
