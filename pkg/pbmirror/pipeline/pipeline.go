// Package pipeline composes mirroring, cataloguing, extraction and
// post-processing hooks into the runs offered by the command line.
package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/catalog"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/config"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/extract"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/history"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/logging"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/mirror"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/progress"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/tuner"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

// ErrNoRemote is returned when a run needs the remote but none is configured.
var ErrNoRemote = errors.New("remote_root is not configured")

// Options configures a Pipeline.
type Options struct {
	Config *config.Config

	// Runner runs the extraction tool and hooks. Nil means extract.ExecRunner.
	Runner extract.Runner

	// Bar draws progress. Nil disables progress output.
	Bar *progress.Bar

	// History records runs. Nil disables history.
	History *history.History

	// Ledger skips unchanged libraries. Nil extracts everything.
	Ledger extract.Ledger

	// Now overrides the clock used for report names.
	Now func() time.Time
}

// Outcome is everything a run produced.
type Outcome struct {
	Entry      *history.Entry
	Sync       []types.SyncResult
	Targets    []types.TargetInfo
	Report     *types.FailureReport
	ReportPath string

	start time.Time
}

// Pipeline runs the sync and extraction steps against one configuration.
type Pipeline struct {
	cfg     *config.Config
	runner  extract.Runner
	bar     *progress.Bar
	history *history.History
	ledger  extract.Ledger
	now     func() time.Time
	log     *logging.Logger
}

// New returns a Pipeline for opts.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		cfg:     opts.Config,
		runner:  opts.Runner,
		bar:     opts.Bar,
		history: opts.History,
		ledger:  opts.Ledger,
		now:     opts.Now,
		log:     logging.Get("pipeline"),
	}
	if p.runner == nil {
		p.runner = extract.ExecRunner{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

func (p *Pipeline) synchronizer() *mirror.Synchronizer {
	opts := mirror.DefaultOptions()
	opts.Bar = p.bar
	opts.Workers = tuner.WalkWorkers(p.cfg.Mirror.Workers)
	return mirror.New(opts)
}

func (p *Pipeline) orchestrator() *extract.Orchestrator {
	return extract.New(extract.Options{
		Runner:      p.runner,
		Tool:        p.cfg.Extractor.Path,
		Flag:        p.cfg.Extractor.Flag,
		Selector:    p.cfg.Extractor.Selector,
		Timeout:     p.cfg.Extractor.Timeout,
		SourcesRoot: p.cfg.SourcesRoot,
		Versions:    p.cfg.VersionIDs(),
		Bar:         p.bar,
		Ledger:      p.ledger,
	})
}

// Sync mirrors every configured version.
func (p *Pipeline) Sync(ctx context.Context) (*Outcome, error) {
	out := p.begin(history.OpSync)
	return p.finish(out, p.syncAll(ctx, out))
}

// Extract scans the existing mirror and extracts every library found.
func (p *Pipeline) Extract(ctx context.Context) (*Outcome, error) {
	out := p.begin(history.OpExtract)
	return p.finish(out, p.extract(ctx, out, p.cfg.VersionIDs()))
}

// Run syncs, rescans, extracts and then runs the configured hooks. A
// remote that cannot be reached aborts the run before extraction.
// Extraction failures do not stop the hooks; a failing hook stops the
// hooks after it.
func (p *Pipeline) Run(ctx context.Context) (*Outcome, error) {
	out := p.begin(history.OpRun)

	if err := p.syncAll(ctx, out); err != nil {
		return p.finish(out, err)
	}
	p.log.Spaced(1, 0).Info("sync complete, extracting sources")

	if err := p.extract(ctx, out, p.cfg.VersionIDs()); err != nil {
		return p.finish(out, err)
	}

	out.Entry.Hooks = p.RunHooks(ctx)
	return p.finish(out, ctx.Err())
}

// SyncVersion mirrors a single version and, when extractAfter is set,
// extracts that version's libraries. It backs watch mode.
func (p *Pipeline) SyncVersion(ctx context.Context, v types.VersionID, extractAfter bool) (*Outcome, error) {
	out := p.begin(history.OpWatch)

	if p.cfg.RemoteRoot == "" {
		return p.finish(out, ErrNoRemote)
	}

	res := p.synchronizer().Sync(ctx, v,
		filepath.Join(p.cfg.RemoteRoot, string(v)),
		filepath.Join(p.cfg.MirrorRoot, string(v)),
	)
	out.Sync = []types.SyncResult{res}
	out.Entry.AddSync(out.Sync)

	if res.Success && extractAfter {
		return p.finish(out, p.extract(ctx, out, []types.VersionID{v}))
	}
	return p.finish(out, ctx.Err())
}

func (p *Pipeline) syncAll(ctx context.Context, out *Outcome) error {
	if p.cfg.RemoteRoot == "" {
		return ErrNoRemote
	}

	results, err := p.synchronizer().SyncAll(ctx, p.cfg.RemoteRoot, p.cfg.MirrorRoot, p.cfg.VersionIDs())
	out.Sync = results
	out.Entry.AddSync(results)
	return err
}

func (p *Pipeline) extract(ctx context.Context, out *Outcome, versions []types.VersionID) error {
	targets, err := catalog.Scan(p.cfg.MirrorRoot, versions, p.cfg.Extension)
	if err != nil {
		return err
	}
	out.Targets = targets
	p.log.Info("libraries found", "count", len(targets), "mirror", p.cfg.MirrorRoot)

	report := p.orchestrator().RunBatch(ctx, targets)

	path, err := extract.WriteReport(p.cfg.LogsRoot, report, p.now())
	if err != nil {
		p.log.Error("could not write failure report", "dir", p.cfg.LogsRoot, "error", err)
	}

	out.Report = report
	out.ReportPath = path
	out.Entry.AddReport(report, path)

	if report.Count > 0 {
		p.log.Spaced(1, 0).Warn("extraction finished with errors", "errors", report.Count, "log", path)
	} else {
		p.log.Spaced(1, 0).Info("extraction completed with no errors", "libraries", report.Total)
	}

	if report.Interrupted {
		return ctx.Err()
	}
	return nil
}

func (p *Pipeline) begin(op history.OperationType) *Outcome {
	var entry *history.Entry
	if p.history != nil {
		entry = p.history.NewEntry(op)
	} else {
		entry = &history.Entry{Operation: op, Timestamp: p.now().UTC()}
	}
	p.log.Debug("run started", "op", op, "run", entry.RunID)
	return &Outcome{Entry: entry, start: time.Now()}
}

func (p *Pipeline) finish(out *Outcome, err error) (*Outcome, error) {
	out.Entry.Duration = time.Since(out.start)
	if err != nil {
		out.Entry.Error = err.Error()
	}

	if p.history != nil {
		if herr := p.record(out.Entry); herr != nil {
			p.log.Error("could not record run history", "error", herr)
		}
	}
	return out, err
}

func (p *Pipeline) record(entry *history.Entry) error {
	if err := p.history.EnsureDir(); err != nil {
		return err
	}
	if err := p.history.Record(entry); err != nil {
		return err
	}
	if days := p.cfg.History.RetentionDays; days > 0 {
		if removed, err := p.history.Cleanup(days); err != nil {
			p.log.Warn("history cleanup failed", "error", err)
		} else if removed > 0 {
			p.log.Debug("expired history entries removed", "count", removed)
		}
	}
	return nil
}
