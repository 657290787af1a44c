package workers

import (
	"os"
	"runtime"
	"strconv"
)

// envOverride lets operators pin the worker count regardless of the
// derived value. Invalid or non-positive values are ignored.
const envOverride = "GALLERY_WORKERS"

// Count returns the worker count for a given task type. It respects
// container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//
// The limit parameter caps the worker count; use 0 for no cap. The
// GALLERY_WORKERS environment variable overrides the calculation but
// is still capped by limit.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(envOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	available := runtime.GOMAXPROCS(0)

	n := int(float64(available) * multiplier)
	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}

// ForCPU returns the worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns the worker count for I/O-bound tasks (2 per CPU), the
// right shape for pools that spend most of their time waiting on
// object storage.
func ForIO(limit int) int {
	return Count(2.0, limit)
}
