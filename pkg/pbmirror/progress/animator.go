package progress

import (
	"context"
	"sync"
	"time"
)

const (
	// FrameInterval is the delay between two animation frames.
	FrameInterval = 40 * time.Millisecond

	// FrameCycle is the number of frames in one sweep of the bar.
	FrameCycle = 40
)

// Animator sweeps an indeterminate bar while a long-running step with no
// measurable progress is in flight.
type Animator struct {
	bar      *Bar
	interval time.Duration

	mu     sync.Mutex
	label  string
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAnimator returns an animator drawing on bar.
func NewAnimator(bar *Bar) *Animator {
	return &Animator{bar: bar, interval: FrameInterval}
}

// Start launches the animation goroutine. It stops on Stop or when ctx is
// cancelled. Starting an animator that is already running is a no-op.
func (a *Animator) Start(ctx context.Context, label string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	a.label = label
	a.cancel = cancel
	a.done = make(chan struct{})

	go a.run(ctx, label, a.done)
}

func (a *Animator) run(ctx context.Context, label string, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	frame := 0
	a.bar.RenderAnimated(frame, FrameCycle, label)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame = (frame + 1) % FrameCycle
			a.bar.RenderAnimated(frame, FrameCycle, label)
		}
	}
}

// Stop cancels the animation, waits for the goroutine to exit and draws the
// completed bar. Stopping an animator that is not running is a no-op.
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel == nil {
		return
	}

	a.cancel()
	<-a.done
	a.bar.RenderAnimated(FrameCycle, FrameCycle, a.label)

	a.cancel = nil
	a.done = nil
}
