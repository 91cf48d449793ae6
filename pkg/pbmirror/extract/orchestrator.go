// Package extract runs the library extraction tool over a batch of targets,
// one process at a time, and aggregates the failures.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/catalog"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/logging"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/progress"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

// Default tool invocation: <tool> -esu <library> *.*
const (
	DefaultTool     = "PblDump"
	DefaultFlag     = "-esu"
	DefaultSelector = "*.*"
	DefaultTimeout  = 10 * time.Second
)

// Ledger remembers successful extractions.
type Ledger interface {
	Unchanged(t types.TargetInfo, outputDir string) (bool, error)
	Record(t types.TargetInfo, outputDir string) error
}

// Options configures an Orchestrator.
type Options struct {
	// Runner executes the tool. Nil means ExecRunner.
	Runner Runner

	Tool     string
	Flag     string
	Selector string
	Timeout  time.Duration

	// SourcesRoot receives one <version>/<name> output directory per target.
	SourcesRoot string

	// Versions orders the batch. Targets of unlisted versions run last.
	Versions []types.VersionID

	// Bar, when set, shows per-version progress.
	Bar *progress.Bar

	// Ledger, when set, skips targets unchanged since their last success
	// and records new successes.
	Ledger Ledger

	// OnResult is called after each target.
	OnResult func(types.ExtractionResult)
}

// DefaultOptions returns options for the stock extraction tool.
func DefaultOptions() Options {
	return Options{
		Tool:     DefaultTool,
		Flag:     DefaultFlag,
		Selector: DefaultSelector,
		Timeout:  DefaultTimeout,
	}
}

// Orchestrator runs the extraction tool over targets sequentially.
type Orchestrator struct {
	opts Options
	log  *logging.Logger
}

// New returns an Orchestrator, filling unset options with defaults.
func New(opts Options) *Orchestrator {
	def := DefaultOptions()
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.Tool == "" {
		opts.Tool = def.Tool
	}
	if opts.Flag == "" {
		opts.Flag = def.Flag
	}
	if opts.Selector == "" {
		opts.Selector = def.Selector
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}

	return &Orchestrator{
		opts: opts,
		log:  logging.Get("extract"),
	}
}

// OutputDir returns the directory the tool writes a target's sources to.
func (o *Orchestrator) OutputDir(t types.TargetInfo) string {
	return filepath.Join(o.opts.SourcesRoot, string(t.Version), t.Name)
}

// Command returns the tool invocation for a target.
func (o *Orchestrator) Command(tool string, t types.TargetInfo) Command {
	return Command{
		Path:    tool,
		Args:    []string{o.opts.Flag, t.FullPath, o.opts.Selector},
		Dir:     o.OutputDir(t),
		Timeout: o.opts.Timeout,
	}
}

// RunBatch extracts every target, grouped by version, and returns the
// failures. A failed target never stops the batch. When ctx is cancelled
// the batch stops before the next target and the partial report is
// returned with Interrupted set.
func (o *Orchestrator) RunBatch(ctx context.Context, targets []types.TargetInfo) *types.FailureReport {
	report := &types.FailureReport{}

	tool, toolErr := o.resolveTool()
	if toolErr != nil {
		o.log.Error("extraction tool unavailable, every target will fail", "tool", o.opts.Tool, "error", toolErr)
	}

	for _, g := range catalog.GroupByVersion(targets, o.opts.Versions) {
		label := fmt.Sprintf("[EXPORT %s]", g.Version)
		total := int64(len(g.Targets))
		o.log.Info("exporting version", "version", g.Version, "targets", total)

		for i, t := range g.Targets {
			if ctx.Err() != nil {
				report.Interrupted = true
				o.log.Warn("export interrupted", "processed", report.Total, "total", len(targets))
				return report
			}

			var res types.ExtractionResult
			if toolErr != nil {
				res = types.ExtractionResult{Target: t, ExitCode: -1, Err: toolErr}
			} else {
				res = o.Extract(ctx, tool, t)
			}

			report.Add(res)
			if !res.Succeeded {
				o.log.Warn("extraction failed", "version", t.Version, "path", t.FullPath, "reason", res.Reason())
			}
			if o.opts.OnResult != nil {
				o.opts.OnResult(res)
			}
			if o.opts.Bar != nil {
				o.opts.Bar.Render(int64(i+1), total, label, 0)
			}
		}
	}

	if ctx.Err() != nil && report.Total < len(targets) {
		report.Interrupted = true
	}
	return report
}

// resolveTool checks the tool once per batch when the runner supports it.
func (o *Orchestrator) resolveTool() (string, error) {
	r, ok := o.opts.Runner.(Resolver)
	if !ok {
		return o.opts.Tool, nil
	}
	return r.Resolve(o.opts.Tool)
}

// Extract runs the tool on a single target with its output directory as
// the working directory.
func (o *Orchestrator) Extract(ctx context.Context, tool string, t types.TargetInfo) (res types.ExtractionResult) {
	start := time.Now()
	res = types.ExtractionResult{Target: t, ExitCode: -1}
	defer func() { res.Duration = time.Since(start) }()

	if o.opts.Ledger != nil {
		unchanged, err := o.opts.Ledger.Unchanged(t, o.OutputDir(t))
		if err != nil {
			o.log.Debug("ledger lookup failed", "path", t.FullPath, "error", err)
		}
		if unchanged {
			o.log.Debug("library unchanged, skipping", "version", t.Version, "path", t.FullPath)
			res.Succeeded, res.Skipped, res.ExitCode = true, true, 0
			return res
		}
	}

	cmd := o.Command(tool, t)
	if err := os.MkdirAll(cmd.Dir, 0o755); err != nil {
		res.Err = fmt.Errorf("creating output directory: %w", err)
		return res
	}

	o.log.Debug("running extractor", "command", cmd.String(), "dir", cmd.Dir)
	st, err := o.opts.Runner.Run(ctx, cmd)
	res.ExitCode = st.ExitCode
	res.TimedOut = st.TimedOut
	res.Err = err
	res.Succeeded = err == nil && !st.TimedOut && st.ExitCode == 0

	if res.Succeeded && o.opts.Ledger != nil {
		if err := o.opts.Ledger.Record(t, cmd.Dir); err != nil {
			o.log.Warn("could not record extraction", "path", t.FullPath, "error", err)
		}
	}
	return res
}
