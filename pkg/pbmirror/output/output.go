// Package output provides formatters for displaying the library catalog
// in various output formats (pretty, plain, json, yaml, etc.).
//
// The package uses a registry pattern so formatters can be selected by
// name at runtime:
//
//	formatter, err := output.Get("json")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    return err
//	}
package output

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

// Target is one library with the metadata shown by the formatters.
type Target struct {
	// Version is the version subtree the library belongs to.
	Version types.VersionID `json:"version" yaml:"version"`

	// Name is the library base name without extension.
	Name string `json:"name" yaml:"name"`

	// Path is the absolute path of the library in the mirror.
	Path string `json:"path" yaml:"path"`

	// OutputDir is where extracted sources for the library are written.
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`

	// Size is the library size in bytes.
	Size int64 `json:"size" yaml:"size"`

	// SizeHuman is the human-readable size (e.g., "1.5 MiB").
	SizeHuman string `json:"size_human" yaml:"size_human"`

	// ModTime is the library's last modification time.
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

// VersionCount is the number of targets found for a version.
type VersionCount struct {
	Version types.VersionID `json:"version" yaml:"version"`
	Targets int             `json:"targets" yaml:"targets"`
	Size    int64           `json:"size" yaml:"size"`
}

// Result contains the complete catalog data for formatting.
type Result struct {
	// Targets are all libraries in catalog order.
	Targets []Target `json:"targets" yaml:"targets"`

	// Versions summarizes targets per version, in catalog order.
	Versions []VersionCount `json:"versions" yaml:"versions"`

	// Source is the mirror root that was scanned.
	Source string `json:"source" yaml:"source"`

	// Duration is the time the scan took.
	Duration time.Duration `json:"duration" yaml:"duration"`

	// Warnings contains any warning messages generated during the scan.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewResult builds a Result from catalog targets. Each library is stat'ed
// for its size and modification time; libraries that cannot be stat'ed
// are kept with a warning. When sourcesRoot is set each target gets the
// output directory extraction would use.
func NewResult(source, sourcesRoot string, targets []types.TargetInfo) *Result {
	r := &Result{Source: source}
	out := make([]Target, 0, len(targets))

	for _, t := range targets {
		tgt := Target{Version: t.Version, Name: t.Name, Path: t.FullPath}
		if sourcesRoot != "" {
			tgt.OutputDir = filepath.Join(sourcesRoot, string(t.Version), t.Name)
		}
		if info, err := os.Stat(t.FullPath); err == nil {
			tgt.Size = info.Size()
			tgt.ModTime = info.ModTime()
		} else {
			r.Warnings = append(r.Warnings, fmt.Sprintf("stat %s: %v", t.FullPath, err))
		}
		tgt.SizeHuman = humanize.IBytes(uint64(tgt.Size))
		out = append(out, tgt)
	}

	r.SetTargets(out)
	return r
}

// SetTargets replaces the targets and recomputes the per-version counts,
// keeping versions in order of first appearance.
func (r *Result) SetTargets(targets []Target) {
	r.Targets = targets
	r.Versions = nil
	index := make(map[types.VersionID]int)

	for _, t := range targets {
		i, ok := index[t.Version]
		if !ok {
			i = len(r.Versions)
			index[t.Version] = i
			r.Versions = append(r.Versions, VersionCount{Version: t.Version})
		}
		r.Versions[i].Targets++
		r.Versions[i].Size += t.Size
	}
}

// TotalSize returns the sum of all library sizes in the result.
func (r *Result) TotalSize() int64 {
	var total int64
	for _, t := range r.Targets {
		total += t.Size
	}
	return total
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns the names registered in the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
