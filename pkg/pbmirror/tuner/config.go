package tuner

// Walk worker limits.
const (
	// maxWalkWorkers caps the walkers hitting one share at a time.
	maxWalkWorkers = 32

	// minWalkWorkers keeps some overlap of round trips on small machines.
	minWalkWorkers = 4

	// lowMemoryWorkers is the cap applied when little memory is available.
	lowMemoryWorkers = 8

	// lowMemoryThreshold is the available RAM below which walks are capped
	// at lowMemoryWorkers.
	lowMemoryThreshold = 1024 * 1024 * 1024

	// walkersPerCore is the number of walkers per logical core.
	walkersPerCore = 2
)

// OptimalConfig contains the tuned settings for the detected resources.
type OptimalConfig struct {
	// WalkWorkers is the number of parallel workers for the prune
	// enumeration and the remote measure pass.
	WalkWorkers int
}

// Calculate returns the optimal configuration for resources.
//
//   - WalkWorkers: NumCPU * 2, at least 4 and at most 32
//   - Below 1 GiB of available RAM, WalkWorkers is capped at 8
func Calculate(resources SystemResources) OptimalConfig {
	workers := resources.CPUCores * walkersPerCore
	workers = max(workers, minWalkWorkers)
	workers = min(workers, maxWalkWorkers)

	if resources.AvailableRAM > 0 && resources.AvailableRAM < lowMemoryThreshold {
		workers = min(workers, lowMemoryWorkers)
	}

	return OptimalConfig{WalkWorkers: workers}
}

// CalculateWithOverrides applies a configured worker count to the optimal
// config. An override of 0 or less keeps the calculated value; positive
// overrides still respect the maximum.
func CalculateWithOverrides(resources SystemResources, workerOverride int) OptimalConfig {
	cfg := Calculate(resources)
	if workerOverride > 0 {
		cfg.WalkWorkers = min(workerOverride, maxWalkWorkers)
	}
	return cfg
}

// WalkWorkers detects the system resources and returns the walk worker
// count, honouring override when positive. Detection failures fall back
// to the core count alone.
func WalkWorkers(override int) int {
	resources, err := Detect()
	if err != nil && resources.CPUCores == 0 {
		resources.CPUCores = minWalkWorkers / walkersPerCore
	}
	return CalculateWithOverrides(resources, override).WalkWorkers
}
