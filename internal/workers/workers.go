package workers

import (
	"os"
	"runtime"
	"strconv"

	"media-variants/internal/logging"
)

// Count returns a worker count of multiplier per available CPU, at least 1
// and at most limit (0 means no limit). A positive integer in the env
// variable overrides the computed value; the limit still applies.
func Count(env string, multiplier float64, limit int) int {
	if env != "" {
		if override := os.Getenv(env); override != "" {
			count, err := strconv.Atoi(override)
			if err == nil && count > 0 {
				if limit > 0 && count > limit {
					return limit
				}
				return count
			}
			logging.Warn("Ignoring invalid %s=%q", env, override)
		}
	}

	// GOMAXPROCS follows the container CPU limit.
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(env string, limit int) int {
	return Count(env, 1.0, limit)
}
