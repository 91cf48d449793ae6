// Package progress renders single-line console progress bars for sync and
// extraction runs. Bars overwrite themselves in place with a carriage return
// and finish with a newline once the work is complete.
package progress

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	bubbleprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Width is the number of cells in a bar.
const Width = 40

const (
	fillColor  = "#7D56F4"
	emptyColor = "#444444"
)

// Bar writes a determinate progress bar to a writer.
type Bar struct {
	mu    sync.Mutex
	w     io.Writer
	model bubbleprogress.Model
	label lipgloss.Style
}

// Option configures a Bar.
type Option func(*barOptions)

type barOptions struct {
	profile termenv.Profile
	set     bool
}

// WithProfile forces the color profile instead of detecting it from the writer.
func WithProfile(p termenv.Profile) Option {
	return func(o *barOptions) {
		o.profile = p
		o.set = true
	}
}

// NewBar returns a bar writing to w. Colors are used only when w is a
// terminal that supports them.
func NewBar(w io.Writer, opts ...Option) *Bar {
	var o barOptions
	for _, opt := range opts {
		opt(&o)
	}
	if !o.set {
		o.profile = termenv.NewOutput(w).EnvColorProfile()
	}

	model := bubbleprogress.New(
		bubbleprogress.WithWidth(Width),
		bubbleprogress.WithoutPercentage(),
		bubbleprogress.WithSolidFill(fillColor),
		bubbleprogress.WithFillCharacters('█', '░'),
		bubbleprogress.WithColorProfile(o.profile),
	)
	model.EmptyColor = emptyColor

	renderer := lipgloss.NewRenderer(w)
	renderer.SetColorProfile(o.profile)

	return &Bar{
		w:     w,
		model: model,
		label: renderer.NewStyle().Bold(true),
	}
}

// Ratio returns current/total clamped to [0, 1].
func Ratio(current, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, float64(current)/float64(total)))
}

// Percent returns the truncated integer percentage of current/total.
func Percent(current, total int64) int {
	return int(Ratio(current, total) * 100)
}

// cells quantizes ratio down to whole cells so a cell is only drawn once it is complete.
func cells(ratio float64) float64 {
	return math.Floor(ratio*Width) / Width
}

// Render draws the bar for current out of total, followed by the percentage,
// the counts and, when mbps is positive, the throughput. It is a no-op when
// total is zero and ends the line when current reaches total.
func (b *Bar) Render(current, total int64, label string, mbps float64) {
	if total == 0 {
		return
	}
	ratio := Ratio(current, total)

	var sb strings.Builder
	b.head(&sb, label, ratio)
	fmt.Fprintf(&sb, " %d%% (%d/%d)", int(ratio*100), current, total)
	if mbps > 0 {
		fmt.Fprintf(&sb, "  %d MB/s", int(mbps))
	}
	if current == total {
		sb.WriteString("\n")
	}
	b.write(sb.String())
}

// RenderAnimated draws an indeterminate bar at frame out of cycle frames.
// Only the percentage is shown.
func (b *Bar) RenderAnimated(frame, cycle int, label string) {
	if cycle == 0 {
		return
	}
	ratio := Ratio(int64(frame), int64(cycle))

	var sb strings.Builder
	b.head(&sb, label, ratio)
	fmt.Fprintf(&sb, " %d%%", int(ratio*100))
	if frame == cycle {
		sb.WriteString("\n")
	}
	b.write(sb.String())
}

func (b *Bar) head(sb *strings.Builder, label string, ratio float64) {
	sb.WriteString("\r")
	if label != "" {
		sb.WriteString(b.label.Render(label))
		sb.WriteString(" ")
	}
	sb.WriteString("[")
	sb.WriteString(b.model.ViewAs(cells(ratio)))
	sb.WriteString("]")
}

func (b *Bar) write(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = io.WriteString(b.w, s)
}
