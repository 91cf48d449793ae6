// Package config provides configuration management for pbmirror.
package config

import "time"

// Default configuration values for pbmirror.
const (
	// DefaultExtension is the library file extension scanned in the mirror.
	DefaultExtension = ".pbl"

	// DefaultExtractorPath is the extraction tool looked up on PATH.
	DefaultExtractorPath = "PblDump"

	// DefaultExtractorFlag asks the tool to export every object as source.
	DefaultExtractorFlag = "-esu"

	// DefaultExtractorSelector selects every object in the library.
	DefaultExtractorSelector = "*.*"

	// DefaultExtractorTimeout bounds a single extraction.
	DefaultExtractorTimeout = 10 * time.Second

	// DefaultRetentionDays is the default number of days run history is kept.
	DefaultRetentionDays = 30

	// DefaultWatchDebounce is how long the remote must be quiet before a
	// watched version is synced again.
	DefaultWatchDebounce = 5 * time.Second

	// DefaultEnvFile is loaded from the working directory when present.
	DefaultEnvFile = ".env"
)

// DefaultVersions lists the supported library versions in sync order.
var DefaultVersions = []string{"6.5", "7.0", "8.0", "9.0", "10.5", "12.5"}
