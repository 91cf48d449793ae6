// Package filter narrows, sorts and limits catalog listings. The catalog
// order (configured version order, then discovery order) is kept unless a
// sort field is chosen.
package filter

import (
	"errors"
	"fmt"
	"strings"
)

// SortField specifies the field to sort targets by.
type SortField int

const (
	// SortCatalog keeps the catalog order.
	SortCatalog SortField = iota
	// SortSize sorts targets by size in bytes.
	SortSize
	// SortAge sorts targets by modification time, oldest first.
	SortAge
	// SortName sorts targets by library name.
	SortName
	// SortPath sorts targets by path alphabetically.
	SortPath
)

// Sort field string constants.
const (
	sortFieldCatalog = "catalog"
	sortFieldSize    = "size"
	sortFieldAge     = "age"
	sortFieldName    = "name"
	sortFieldPath    = "path"
)

// String returns the string representation of the sort field.
func (s SortField) String() string {
	switch s {
	case SortSize:
		return sortFieldSize
	case SortAge:
		return sortFieldAge
	case SortName:
		return sortFieldName
	case SortPath:
		return sortFieldPath
	default:
		return sortFieldCatalog
	}
}

// ErrInvalidSortField indicates that the sort field string could not be parsed.
var ErrInvalidSortField = errors.New("invalid sort field")

// ParseSortField parses a string into a SortField. Valid values are
// "catalog", "size", "age", "name" and "path" (case-insensitive); the
// empty string means catalog order.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", sortFieldCatalog:
		return SortCatalog, nil
	case sortFieldSize:
		return SortSize, nil
	case sortFieldAge:
		return SortAge, nil
	case sortFieldName:
		return SortName, nil
	case sortFieldPath:
		return SortPath, nil
	default:
		return SortCatalog, fmt.Errorf("%w: %q", ErrInvalidSortField, s)
	}
}
