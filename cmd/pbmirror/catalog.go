package main

import (
	"bytes"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/catalog"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/output"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the libraries in the local mirror",
	Long: `Scan the local mirror and list every library extraction would process,
grouped by version in configuration order.

Output formats: pretty (default), plain, paths, json, jsonl, yaml, csv,
tsv, markdown.

Examples:
  pbmirror catalog --sort size --reverse --limit 10
  pbmirror catalog --include '**/10.5/**' --older-than 6mo
  pbmirror catalog --exclude 'test_*' -o csv`,
	Args: cobra.NoArgs,
	RunE: runCatalog,
}

func init() {
	flags := catalogCmd.Flags()
	flags.StringVarP(&outputFormat, "output", "o", "pretty", "output format")
	flags.IntVarP(&limit, "limit", "n", 0, "maximum number of libraries to list (0 = unlimited)")
	flags.StringVar(&minSize, "min-size", "", "only list libraries at least this large (e.g. 512K, 10M)")
	flags.StringVar(&olderThan, "older-than", "", "only list libraries not modified within this age (e.g. 30d, 2w, 6mo)")
	flags.StringVar(&newerThan, "newer-than", "", "only list libraries modified within this age")
	flags.StringSliceVar(&include, "include", nil, "glob patterns a library name or path must match")
	flags.StringSliceVar(&exclude, "exclude", nil, "glob patterns that exclude a library by name or path")
	flags.StringVar(&sortBy, "sort", "catalog", "sort field: catalog, size, age, name, path")
	flags.BoolVarP(&reverse, "reverse", "r", false, "reverse the sort order")
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(_ *cobra.Command, _ []string) error {
	c, err := requireConfig()
	if err != nil {
		return err
	}

	formatter, err := output.Get(outputFormat)
	if err != nil {
		return fmt.Errorf("unknown output format %q: available formats are %v", outputFormat, output.Available())
	}

	f, err := buildFilter()
	if err != nil {
		return err
	}

	start := time.Now()
	targets, err := catalog.Scan(c.MirrorRoot, c.VersionIDs(), c.Extension)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	result := output.NewResult(c.MirrorRoot, c.SourcesRoot, targets)
	f.ApplyResult(result)
	result.Duration = time.Since(start)

	var buf bytes.Buffer
	if err := formatter.Format(&buf, result); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Print(buf.String())
	return nil
}
