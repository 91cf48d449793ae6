package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/watcher"
)

// ErrNothingToWatch is returned when no configured version exists on the remote.
var ErrNothingToWatch = errors.New("no version folder to watch on the remote")

// Watch resyncs each version whose remote subtree changes until ctx is
// cancelled. Versions missing on the remote are not watched. onOutcome,
// if set, is called after every triggered sync.
func (p *Pipeline) Watch(ctx context.Context, extractAfter bool, onOutcome func(*Outcome, error)) error {
	if p.cfg.RemoteRoot == "" {
		return ErrNoRemote
	}

	w, err := watcher.New(p.cfg.Watch.Debounce)
	if err != nil {
		return err
	}
	defer w.Close()

	watched := 0
	for _, v := range p.cfg.VersionIDs() {
		root := filepath.Join(p.cfg.RemoteRoot, string(v))
		if err := w.WatchVersion(v, root); err != nil {
			p.log.Warn("version not watched", "version", v, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("%w: %s", ErrNothingToWatch, p.cfg.RemoteRoot)
	}

	p.log.Info("watching remote", "root", p.cfg.RemoteRoot, "versions", watched, "debounce", p.cfg.Watch.Debounce)

	w.Run(ctx, func(v types.VersionID) {
		p.log.Info("remote changed", "version", v)
		out, err := p.SyncVersion(ctx, v, extractAfter)
		if onOutcome != nil {
			onOutcome(out, err)
		}
	})

	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}
