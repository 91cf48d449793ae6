package output

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

// SyncSummary renders one line per version followed by a totals box.
func SyncSummary(results []types.SyncResult) string {
	var sb strings.Builder
	var copied, bytes, pruned int64
	failed := 0

	for _, r := range results {
		var status string
		switch {
		case r.Skipped:
			status = WarningStyle.Render("skipped")
		case !r.Success:
			status = ErrorStyle.Render("failed")
			failed++
		case len(r.Warnings) > 0:
			status = WarningStyle.Render(fmt.Sprintf("%d warnings", len(r.Warnings)))
		default:
			status = SuccessStyle.Render("ok")
		}

		fmt.Fprintf(&sb, "  %s %s  %s copied (%s), %s pruned  %s\n",
			VersionStyle.Render(fmt.Sprintf("%-5s", r.Version)),
			status,
			humanize.Comma(r.FilesCopied),
			humanize.IBytes(uint64(r.BytesCopied)),
			humanize.Comma(r.EntriesPruned),
			MutedStyle.Render(FormatDuration(r.Elapsed)),
		)
		if r.Err != nil {
			fmt.Fprintf(&sb, "        %s\n", ErrorStyle.Render(r.Err.Error()))
		}

		copied += r.FilesCopied
		bytes += r.BytesCopied
		pruned += r.EntriesPruned
	}

	totals := fmt.Sprintf("%s %s  %s %s  %s %s",
		LabelStyle.Render("Copied:"), ValueStyle.Render(humanize.Comma(copied)),
		LabelStyle.Render("Size:"), SizeStyle.Render(humanize.IBytes(uint64(bytes))),
		LabelStyle.Render("Pruned:"), ValueStyle.Render(humanize.Comma(pruned)),
	)
	box := FooterBox
	if failed > 0 {
		box = ErrorBox
		totals += "  " + ErrorStyle.Render(fmt.Sprintf("%d versions failed", failed))
	}
	sb.WriteString(box.Render(totals))
	sb.WriteString("\n")
	return sb.String()
}

// ExtractSummary renders the outcome of an extraction batch. logPath is
// the failure log, empty when none was written.
func ExtractSummary(report *types.FailureReport, logPath string) string {
	if report == nil {
		report = &types.FailureReport{}
	}

	parts := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Libraries:"), ValueStyle.Render(humanize.Comma(int64(report.Total)))),
	}

	if report.Count == 0 {
		parts = append(parts, SuccessStyle.Render("Extraction completed with no errors"))
	} else {
		parts = append(parts, ErrorStyle.Render(fmt.Sprintf("%d errors", report.Count)))
		if logPath != "" {
			parts = append(parts, fmt.Sprintf("%s %s", LabelStyle.Render("See log:"), PathStyle.Render(logPath)))
		}
	}
	if report.Interrupted {
		parts = append(parts, WarningStyle.Bold(true).Render("interrupted"))
	}

	box := FooterBox
	if report.Count > 0 {
		box = ErrorBox
	}
	return box.Render(strings.Join(parts, "  ")) + "\n"
}
