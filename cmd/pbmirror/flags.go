package main

import (
	"fmt"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/filter"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

// Catalog listing flags.
var (
	outputFormat string

	limit     int
	minSize   string
	olderThan string
	newerThan string
	include   []string
	exclude   []string
	sortBy    string
	reverse   bool
)

// buildFilter creates a filter.Filter from the catalog flags.
func buildFilter() (*filter.Filter, error) {
	opts := []filter.Option{
		filter.WithLimit(limit),
		filter.WithInclude(include...),
		filter.WithExclude(exclude...),
		filter.WithSortDescending(reverse),
	}

	if minSize != "" {
		size, err := types.ParseSize(minSize)
		if err != nil {
			return nil, fmt.Errorf("invalid min-size %q: %w", minSize, err)
		}
		opts = append(opts, filter.WithMinSize(size))
	}

	if olderThan != "" {
		d, err := filter.ParseDuration(olderThan)
		if err != nil {
			return nil, fmt.Errorf("invalid older-than %q: %w", olderThan, err)
		}
		opts = append(opts, filter.WithOlderThan(d))
	}

	if newerThan != "" {
		d, err := filter.ParseDuration(newerThan)
		if err != nil {
			return nil, fmt.Errorf("invalid newer-than %q: %w", newerThan, err)
		}
		opts = append(opts, filter.WithNewerThan(d))
	}

	field, err := filter.ParseSortField(sortBy)
	if err != nil {
		return nil, err
	}
	opts = append(opts, filter.WithSortBy(field))

	return filter.New(opts...)
}
