package filter

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/gobwas/glob"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/output"
)

// Filter defines criteria for filtering, sorting, and limiting catalog
// listings.
type Filter struct {
	// MinSize is the minimum library size in bytes. Smaller libraries are excluded.
	MinSize int64

	// Include contains glob patterns. If non-empty, libraries must match at least one.
	Include []string

	// Exclude contains glob patterns. Matching libraries are excluded.
	Exclude []string

	// OlderThan excludes libraries modified more recently than this duration ago.
	OlderThan time.Duration

	// NewerThan excludes libraries modified longer ago than this duration.
	NewerThan time.Duration

	// SortBy specifies the field to sort results by.
	SortBy SortField

	// SortDescending reverses the sort order.
	SortDescending bool

	// Limit is the maximum number of libraries to return. 0 means unlimited.
	Limit int

	include []glob.Glob
	exclude []glob.Glob
	now     func() time.Time
}

// Option is a functional option for configuring a Filter.
type Option func(*Filter)

// New creates a Filter with the given options. Patterns are compiled
// once; an invalid pattern is an error. By default nothing is filtered
// and the catalog order is kept.
func New(opts ...Option) (*Filter, error) {
	f := &Filter{now: time.Now}

	for _, opt := range opts {
		opt(f)
	}

	var err error
	if f.include, err = compile(f.Include); err != nil {
		return nil, err
	}
	if f.exclude, err = compile(f.Exclude); err != nil {
		return nil, err
	}
	return f, nil
}

func compile(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(filepath.ToSlash(p), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// WithLimit sets the maximum number of libraries to return.
// If limit <= 0, it is set to 0 (unlimited).
func WithLimit(limit int) Option {
	return func(f *Filter) {
		f.Limit = max(limit, 0)
	}
}

// WithMinSize sets the minimum library size in bytes.
func WithMinSize(minSize int64) Option {
	return func(f *Filter) {
		f.MinSize = max(minSize, 0)
	}
}

// WithInclude sets the include glob patterns. A pattern matches either
// the library name or its slash-separated path ("**" crosses directories).
func WithInclude(patterns ...string) Option {
	return func(f *Filter) {
		f.Include = patterns
	}
}

// WithExclude sets the exclude glob patterns, matched like WithInclude.
func WithExclude(patterns ...string) Option {
	return func(f *Filter) {
		f.Exclude = patterns
	}
}

// WithOlderThan sets the minimum age of libraries to include.
func WithOlderThan(d time.Duration) Option {
	return func(f *Filter) {
		f.OlderThan = d
	}
}

// WithNewerThan sets the maximum age of libraries to include.
func WithNewerThan(d time.Duration) Option {
	return func(f *Filter) {
		f.NewerThan = d
	}
}

// WithSortBy sets the field to sort results by.
func WithSortBy(field SortField) Option {
	return func(f *Filter) {
		f.SortBy = field
	}
}

// WithSortDescending sets whether to sort in descending order.
func WithSortDescending(desc bool) Option {
	return func(f *Filter) {
		f.SortDescending = desc
	}
}

// Match reports whether t passes the size, age and pattern criteria.
func (f *Filter) Match(t output.Target) bool {
	if f.MinSize > 0 && t.Size < f.MinSize {
		return false
	}
	if !f.matchAge(t) {
		return false
	}
	if matchesAny(f.exclude, t) {
		return false
	}
	if len(f.include) > 0 && !matchesAny(f.include, t) {
		return false
	}
	return true
}

func (f *Filter) matchAge(t output.Target) bool {
	now := f.now()
	if f.OlderThan > 0 && t.ModTime.After(now.Add(-f.OlderThan)) {
		return false
	}
	if f.NewerThan > 0 && t.ModTime.Before(now.Add(-f.NewerThan)) {
		return false
	}
	return true
}

func matchesAny(globs []glob.Glob, t output.Target) bool {
	path := filepath.ToSlash(t.Path)
	for _, g := range globs {
		if g.Match(t.Name) || g.Match(path) {
			return true
		}
	}
	return false
}

// Sort returns a sorted copy of targets. Ties keep their catalog order.
func (f *Filter) Sort(targets []output.Target) []output.Target {
	sorted := slices.Clone(targets)
	if f.SortBy == SortCatalog {
		if f.SortDescending {
			slices.Reverse(sorted)
		}
		return sorted
	}

	slices.SortStableFunc(sorted, func(a, b output.Target) int {
		var result int
		switch f.SortBy {
		case SortSize:
			result = cmp.Compare(a.Size, b.Size)
		case SortAge:
			result = a.ModTime.Compare(b.ModTime)
		case SortName:
			result = cmp.Compare(a.Name, b.Name)
		case SortPath:
			result = cmp.Compare(a.Path, b.Path)
		}
		if f.SortDescending {
			return -result
		}
		return result
	})
	return sorted
}

// Apply matches, sorts and limits targets.
func (f *Filter) Apply(targets []output.Target) []output.Target {
	matched := make([]output.Target, 0, len(targets))
	for _, t := range targets {
		if f.Match(t) {
			matched = append(matched, t)
		}
	}

	sorted := f.Sort(matched)
	if f.Limit > 0 && len(sorted) > f.Limit {
		return sorted[:f.Limit]
	}
	return sorted
}

// ApplyResult filters r's targets in place and recomputes its version counts.
func (f *Filter) ApplyResult(r *output.Result) {
	r.SetTargets(f.Apply(r.Targets))
}
