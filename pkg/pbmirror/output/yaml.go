package output

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// yamlOutput represents the full YAML output structure.
type yamlOutput struct {
	Targets  []Target       `yaml:"targets"`
	Versions []VersionCount `yaml:"versions"`
	Meta     yamlMeta       `yaml:"meta"`
}

// yamlMeta represents metadata in YAML output.
type yamlMeta struct {
	Source       string   `yaml:"source"`
	Duration     string   `yaml:"duration,omitempty"`
	TotalTargets int      `yaml:"total_targets"`
	TotalSize    int64    `yaml:"total_size"`
	Warnings     []string `yaml:"warnings,omitempty"`
}

// YAMLFormatter formats output as YAML with the same structure as JSONFormatter.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(yamlOutput{
		Targets:  r.Targets,
		Versions: r.Versions,
		Meta: yamlMeta{
			Source:       r.Source,
			Duration:     formatDurationString(r.Duration),
			TotalTargets: len(r.Targets),
			TotalSize:    r.TotalSize(),
			Warnings:     r.Warnings,
		},
	}); err != nil {
		return err
	}
	return encoder.Close()
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
