package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// TSVFormatter formats output as tab-separated values.
type TSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString("VERSION\tNAME\tSIZE\tPATH\n")

	for _, t := range r.Targets {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", t.Version, t.Name, t.Size, t.Path)
	}

	return nil
}

func init() {
	Register("tsv", func() Formatter {
		return &TSVFormatter{}
	})
}

// Ensure TSVFormatter implements Formatter.
var _ Formatter = (*TSVFormatter)(nil)

// CSVFormatter formats output as RFC 4180 comma-separated values.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"version", "name", "size", "path"}); err != nil {
		return err
	}

	for _, t := range r.Targets {
		if err := writer.Write([]string{string(t.Version), t.Name, strconv.FormatInt(t.Size, 10), t.Path}); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func init() {
	Register("csv", func() Formatter {
		return &CSVFormatter{}
	})
}

// Ensure CSVFormatter implements Formatter.
var _ Formatter = (*CSVFormatter)(nil)

// MarkdownFormatter formats output as a GitHub-flavored Markdown table.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString("| VERSION | NAME | SIZE | PATH |\n")
	w.WriteString("|---------|------|------|------|\n")

	for _, t := range r.Targets {
		fmt.Fprintf(w, "| %s | %s | %s | %s |\n",
			escapeMarkdownPipe(string(t.Version)),
			escapeMarkdownPipe(t.Name),
			escapeMarkdownPipe(t.SizeHuman),
			escapeMarkdownPipe(t.Path),
		)
	}

	return nil
}

// escapeMarkdownPipe escapes pipe characters in a string for Markdown tables.
func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

// Ensure MarkdownFormatter implements Formatter.
var _ Formatter = (*MarkdownFormatter)(nil)
