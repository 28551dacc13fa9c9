package workers

import (
	"os"
	"runtime"
	"strconv"
)

// OverrideEnv names the environment variable that pins the worker count.
const OverrideEnv = "STORAGE_CONNECTIONS"

// Count returns the number of concurrent workers (or pooled database
// connections) for a workload. It scales GOMAXPROCS, which honours container
// CPU limits, by multiplier and caps the result at limit (0 means no cap).
// A positive STORAGE_CONNECTIONS value replaces the computed count.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(OverrideEnv); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU), such as the
// connection pool of a client/server database backend.
func ForIO(limit int) int {
	return Count(2.0, limit)
}
