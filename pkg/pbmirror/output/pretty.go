package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter formats output with colors and styling using lipgloss,
// grouping libraries under their version.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatTable(r))
	w.WriteString(f.formatFooter(r))

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(FormatWarnings(r.Warnings))
	}

	return nil
}

// formatHeader builds the header box with scan metadata.
func (f *PrettyFormatter) formatHeader(r *Result) string {
	lines := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Mirror:"), ValueStyle.Render(r.Source)),
	}

	counts := make([]string, 0, len(r.Versions))
	for _, v := range r.Versions {
		counts = append(counts, fmt.Sprintf("%s %s",
			VersionStyle.Render(string(v.Version)),
			ValueStyle.Render(fmt.Sprintf("%d", v.Targets))))
	}
	if len(counts) > 0 {
		lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Versions:"), strings.Join(counts, "  ")))
	}

	if r.Duration > 0 {
		lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Scanned in"), MutedStyle.Render(FormatDuration(r.Duration))))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// formatTable lists libraries under a heading per version.
func (f *PrettyFormatter) formatTable(r *Result) string {
	if len(r.Targets) == 0 {
		return MutedStyle.Render("  No libraries found in the mirror\n")
	}

	maxSizeWidth := 8
	for _, t := range r.Targets {
		maxSizeWidth = max(maxSizeWidth, len(t.SizeHuman))
	}

	var sb strings.Builder
	var current string
	for _, t := range r.Targets {
		if string(t.Version) != current {
			current = string(t.Version)
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(TitleStyle.Render("  " + current))
			sb.WriteString("\n")
		}
		sizeStr := SizeStyle.Render(padLeft(t.SizeHuman, maxSizeWidth))
		fmt.Fprintf(&sb, "  %s  %s  %s\n", sizeStr, ValueStyle.Render(t.Name), PathStyle.Render(t.Path))
	}

	return sb.String()
}

// formatFooter builds the footer box with summary information.
func (f *PrettyFormatter) formatFooter(r *Result) string {
	parts := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Libraries:"), ValueStyle.Render(humanize.Comma(int64(len(r.Targets))))),
		fmt.Sprintf("%s %s", LabelStyle.Render("Total:"), SizeStyle.Render(humanize.IBytes(uint64(r.TotalSize())))),
		MutedStyle.Render("Use -o plain for unformatted output"),
	}

	return FooterBox.Render(strings.Join(parts, "  "))
}

// FormatWarnings renders a warning block.
func FormatWarnings(warnings []string) string {
	var sb strings.Builder

	sb.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")

	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}

	return sb.String()
}

// padLeft pads a string with spaces on the left to achieve the desired width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// FormatDuration formats a duration in a human-friendly way.
func FormatDuration(d interface{ Seconds() float64 }) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
