package tuner

import (
	"runtime"
	"testing"
)

func TestDetect(t *testing.T) {
	resources, err := Detect()
	if err != nil {
		t.Fatalf("Detect() returned error: %v", err)
	}

	if resources.CPUCores != runtime.NumCPU() {
		t.Errorf("CPUCores = %d, want %d (runtime.NumCPU())", resources.CPUCores, runtime.NumCPU())
	}

	if resources.TotalRAM <= 0 {
		t.Errorf("TotalRAM = %d, want > 0", resources.TotalRAM)
	}

	if resources.AvailableRAM < 0 || resources.AvailableRAM > resources.TotalRAM {
		t.Errorf("AvailableRAM = %d, want within [0, %d]", resources.AvailableRAM, resources.TotalRAM)
	}
}

func TestCalculate(t *testing.T) {
	const gib = 1024 * 1024 * 1024

	tests := []struct {
		name      string
		resources SystemResources
		want      int
	}{
		{
			name:      "single core gets the minimum",
			resources: SystemResources{CPUCores: 1, TotalRAM: 4 * gib, AvailableRAM: 2 * gib},
			want:      4,
		},
		{
			name:      "eight cores",
			resources: SystemResources{CPUCores: 8, TotalRAM: 16 * gib, AvailableRAM: 8 * gib},
			want:      16,
		},
		{
			name:      "large system is capped",
			resources: SystemResources{CPUCores: 64, TotalRAM: 256 * gib, AvailableRAM: 128 * gib},
			want:      32,
		},
		{
			name:      "low memory caps workers",
			resources: SystemResources{CPUCores: 16, TotalRAM: gib, AvailableRAM: gib / 2},
			want:      8,
		},
		{
			name:      "unknown memory is not capped",
			resources: SystemResources{CPUCores: 16},
			want:      32,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.resources)
			if got.WalkWorkers != tt.want {
				t.Errorf("WalkWorkers = %d, want %d", got.WalkWorkers, tt.want)
			}
		})
	}
}

func TestCalculateWithOverrides(t *testing.T) {
	resources := SystemResources{CPUCores: 4, TotalRAM: 8 << 30, AvailableRAM: 4 << 30}

	tests := []struct {
		name     string
		override int
		want     int
	}{
		{name: "no override", override: 0, want: 8},
		{name: "negative override ignored", override: -3, want: 8},
		{name: "explicit override", override: 2, want: 2},
		{name: "override capped", override: 500, want: 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateWithOverrides(resources, tt.override)
			if got.WalkWorkers != tt.want {
				t.Errorf("WalkWorkers = %d, want %d", got.WalkWorkers, tt.want)
			}
		})
	}
}

func TestWalkWorkers(t *testing.T) {
	if got := WalkWorkers(3); got != 3 {
		t.Errorf("WalkWorkers(3) = %d, want 3", got)
	}
	got := WalkWorkers(0)
	if got < minWalkWorkers || got > maxWalkWorkers {
		t.Errorf("WalkWorkers(0) = %d, want within [%d, %d]", got, minWalkWorkers, maxWalkWorkers)
	}
}
