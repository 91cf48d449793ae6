// Package mirror keeps a local, version-partitioned copy of the remote
// library tree. Each version subtree is synchronized in three passes:
// stale local entries are pruned deepest first, the remote is measured for
// progress scaling, and new or newer remote files are propagated.
package mirror

import (
	"time"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/progress"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

// Progress is a snapshot of a running propagation pass.
type Progress struct {
	Version         types.VersionID
	FilesConsidered int64
	TotalFiles      int64
	FilesCopied     int64
	BytesCopied     int64
	Elapsed         time.Duration
}

// MBps returns the copy throughput in MiB per second.
func (p Progress) MBps() float64 {
	secs := p.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(p.BytesCopied) / float64(types.MiB) / secs
}

// Options configures a Synchronizer.
type Options struct {
	// Workers is the number of parallel enumeration workers used by the
	// prune and measure passes. Zero uses the fastwalk default.
	Workers int

	// Bar draws propagation progress. Nil disables rendering.
	Bar *progress.Bar

	// ProgressInterval is the minimum delay between two renders.
	ProgressInterval time.Duration

	// OnProgress, when set, receives the same throttled snapshots as Bar.
	OnProgress func(Progress)
}

// DefaultOptions returns options with progress rendering disabled.
func DefaultOptions() Options {
	return Options{
		ProgressInterval: progress.DefaultInterval,
	}
}
