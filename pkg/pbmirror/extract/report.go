package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

// ReportTimeFormat is the timestamp embedded in failure log names.
const ReportTimeFormat = "20060102_150405"

// ReportName returns the failure log file name for a batch finished at now.
func ReportName(now time.Time) string {
	return "log_" + now.Format(ReportTimeFormat) + ".log"
}

// FormatReport renders the failure log body.
func FormatReport(report *types.FailureReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "A total of %d errors occurred during the PBL export process.\n", report.Count)
	for _, e := range report.Entries {
		fmt.Fprintf(&sb, "[%s] %s\n", e.Version, e.Path)
	}
	return sb.String()
}

// WriteReport writes the failure log into logsDir and returns its path.
// Nothing is written when the report has no failures.
func WriteReport(logsDir string, report *types.FailureReport, now time.Time) (string, error) {
	if report == nil || report.Count == 0 {
		return "", nil
	}

	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	path := filepath.Join(logsDir, ReportName(now))
	if err := os.WriteFile(path, []byte(FormatReport(report)), 0o644); err != nil {
		return "", fmt.Errorf("writing failure report: %w", err)
	}
	return path, nil
}
