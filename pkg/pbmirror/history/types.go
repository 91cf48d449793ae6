// Package history keeps a JSON record of every sync and extraction run.
package history

import (
	"time"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

// OperationType represents the kind of run recorded.
type OperationType string

const (
	// OpSync is a mirror-only run.
	OpSync OperationType = "sync"
	// OpExtract is an extraction-only run over the existing mirror.
	OpExtract OperationType = "extract"
	// OpRun is the full pipeline: sync, extract and hooks.
	OpRun OperationType = "run"
	// OpWatch is a sync triggered by a remote change.
	OpWatch OperationType = "watch"
)

// Entry represents a single run.
type Entry struct {
	ID         string               `json:"id"`
	RunID      string               `json:"run_id"`
	Timestamp  time.Time            `json:"timestamp"`
	Operation  OperationType        `json:"operation"`
	Duration   time.Duration        `json:"duration"`
	Versions   []VersionRecord      `json:"versions,omitempty"`
	Failures   []types.FailureEntry `json:"failures,omitempty"`
	Hooks      []HookRecord         `json:"hooks,omitempty"`
	ReportPath string               `json:"report_path,omitempty"`
	Error      string               `json:"error,omitempty"`
	Summary    Summary              `json:"summary"`
}

// VersionRecord is the sync outcome of one version.
type VersionRecord struct {
	Version     types.VersionID `json:"version"`
	Success     bool            `json:"success"`
	Skipped     bool            `json:"skipped,omitempty"`
	FilesCopied int64           `json:"files_copied"`
	BytesCopied int64           `json:"bytes_copied"`
	Pruned      int64           `json:"pruned"`
	Warnings    int             `json:"warnings"`
	Error       string          `json:"error,omitempty"`
}

// HookRecord is the outcome of one post-processing hook.
type HookRecord struct {
	Name     string `json:"name"`
	ExitCode int    `json:"exit_code"`
	Error    string `json:"error,omitempty"`
}

// Summary contains run totals.
type Summary struct {
	FilesCopied int64 `json:"files_copied"`
	BytesCopied int64 `json:"bytes_copied"`
	Pruned      int64 `json:"pruned"`
	Warnings    int   `json:"warnings"`
	Targets     int   `json:"targets"`
	Failures    int   `json:"failures"`
	Interrupted bool  `json:"interrupted,omitempty"`
}

// AddSync folds sync results into the entry.
func (e *Entry) AddSync(results []types.SyncResult) {
	for _, r := range results {
		rec := VersionRecord{
			Version:     r.Version,
			Success:     r.Success,
			Skipped:     r.Skipped,
			FilesCopied: r.FilesCopied,
			BytesCopied: r.BytesCopied,
			Pruned:      r.EntriesPruned,
			Warnings:    len(r.Warnings),
		}
		if r.Err != nil {
			rec.Error = r.Err.Error()
		}
		e.Versions = append(e.Versions, rec)

		e.Summary.FilesCopied += r.FilesCopied
		e.Summary.BytesCopied += r.BytesCopied
		e.Summary.Pruned += r.EntriesPruned
		e.Summary.Warnings += len(r.Warnings)
	}
}

// AddReport folds an extraction failure report into the entry.
func (e *Entry) AddReport(report *types.FailureReport, path string) {
	if report == nil {
		return
	}
	e.Failures = append(e.Failures, report.Entries...)
	e.Summary.Targets += report.Total
	e.Summary.Failures += report.Count
	e.Summary.Interrupted = e.Summary.Interrupted || report.Interrupted
	e.ReportPath = path
}

// Failed reports whether anything in the run went wrong.
func (e *Entry) Failed() bool {
	if e.Error != "" || e.Summary.Failures > 0 {
		return true
	}
	for _, v := range e.Versions {
		if !v.Success && !v.Skipped {
			return true
		}
	}
	for _, h := range e.Hooks {
		if h.ExitCode != 0 || h.Error != "" {
			return true
		}
	}
	return false
}
