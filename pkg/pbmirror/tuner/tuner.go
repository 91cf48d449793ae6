// Package tuner sizes the mirror's parallel directory walks from the
// detected CPU and memory. Walks over a mounted share are latency bound,
// so the worker count scales past the core count.
package tuner

// SystemResources contains detected system resources.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int

	// TotalRAM is the total physical RAM in bytes.
	TotalRAM int64

	// AvailableRAM is the available (free) RAM in bytes.
	// This may be an estimate based on system heuristics.
	AvailableRAM int64
}
