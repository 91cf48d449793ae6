package output

import (
	"bytes"
	"encoding/json"
	"time"
)

// jsonOutput represents the full JSON output structure.
type jsonOutput struct {
	Targets  []Target       `json:"targets"`
	Versions []VersionCount `json:"versions"`
	Meta     jsonMeta       `json:"meta"`
}

// jsonMeta represents metadata in JSON output.
type jsonMeta struct {
	Source       string   `json:"source"`
	Duration     string   `json:"duration,omitempty"`
	TotalTargets int      `json:"total_targets"`
	TotalSize    int64    `json:"total_size"`
	Warnings     []string `json:"warnings,omitempty"`
}

// JSONFormatter formats output as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	targets := r.Targets
	if targets == nil {
		targets = []Target{}
	}
	versions := r.Versions
	if versions == nil {
		versions = []VersionCount{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(jsonOutput{
		Targets:  targets,
		Versions: versions,
		Meta: jsonMeta{
			Source:       r.Source,
			Duration:     formatDurationString(r.Duration),
			TotalTargets: len(r.Targets),
			TotalSize:    r.TotalSize(),
			Warnings:     r.Warnings,
		},
	})
}

// formatDurationString formats a duration for structured output.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter formats output as newline-delimited JSON, one target per line.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, t := range r.Targets {
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)
