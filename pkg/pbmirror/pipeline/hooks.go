package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/extract"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/history"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/progress"
)

// ErrHookFailed marks a hook that exited nonzero or could not start.
var ErrHookFailed = errors.New("hook failed")

// RunHooks runs the configured hooks in order with an animated bar while
// each one is in flight. It stops at the first hook that fails and returns
// a record for every hook that ran.
func (p *Pipeline) RunHooks(ctx context.Context) []history.HookRecord {
	var records []history.HookRecord

	for _, h := range p.cfg.Hooks {
		if ctx.Err() != nil {
			break
		}

		label := fmt.Sprintf("[HOOK %s]", h.Name)
		p.log.Info("running hook", "hook", h.Name, "path", h.Path)

		var anim *progress.Animator
		if p.bar != nil {
			anim = progress.NewAnimator(p.bar)
			anim.Start(ctx, label)
		}

		st, err := p.runner.Run(ctx, extract.Command{
			Path: h.Path,
			Args: h.Args,
			Dir:  h.Dir,
		})

		if anim != nil {
			anim.Stop()
		}

		rec := history.HookRecord{Name: h.Name, ExitCode: st.ExitCode}
		if err != nil {
			rec.Error = err.Error()
		}
		records = append(records, rec)

		if err != nil || st.ExitCode != 0 {
			p.log.Spaced(1, 0).Error("hook failed, remaining hooks skipped",
				"hook", h.Name, "exit_code", st.ExitCode, "error", errors.Join(ErrHookFailed, err))
			break
		}
		p.log.Info("hook completed", "hook", h.Name)
	}

	return records
}
