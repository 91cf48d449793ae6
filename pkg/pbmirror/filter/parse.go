package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Duration constants.
const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 30 * Day  // Approximate
	Year  = 365 * Day // Approximate
)

// ErrInvalidDuration indicates that the duration string could not be parsed.
var ErrInvalidDuration = errors.New("invalid duration format")

// ErrNegativeValue indicates that a negative value was provided.
var ErrNegativeValue = errors.New("value cannot be negative")

// durationPattern matches duration strings like "30d", "2w", "1mo", "1y".
var durationPattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*(d|w|mo|y)\s*$`)

// ParseDuration parses a human-readable age such as "30d", "2w", "3mo"
// or "1y" (months are 30 days, years 365). Standard Go durations like
// "36h" are accepted as well.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidDuration)
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeValue
	}

	matches := durationPattern.FindStringSubmatch(s)
	if matches == nil {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
		return d, nil
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}

	var unit time.Duration
	switch strings.ToLower(matches[2]) {
	case "d":
		unit = Day
	case "w":
		unit = Week
	case "mo":
		unit = Month
	case "y":
		unit = Year
	}

	return time.Duration(value * float64(unit)), nil
}
