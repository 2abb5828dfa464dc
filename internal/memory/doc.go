// Package memory sizes the Go heap for containers and pauses image
// generation under memory pressure.
//
// # Configuration
//
// [ConfigureFromEnv] should run first in main, before significant
// allocations:
//
//   - GOMEMLIMIT: Standard Go variable. Takes precedence when set.
//   - MEMORY_LIMIT: Container memory limit in bytes, typically from the
//     Kubernetes Downward API.
//   - MEMORY_RATIO: Fraction of MEMORY_LIMIT given to the Go heap
//     (default 0.75). The remainder is left for libvips, ffmpeg and the RAW
//     decode workers, none of which count against GOMEMLIMIT.
//
// Example Downward API wiring:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//
// # Backpressure
//
// A [Monitor] samples heap usage against the limit. Above the critical
// watermark it reports paused and [Monitor.WaitIfPaused] blocks new decodes
// until usage falls below the high watermark. Without a limit the monitor is
// inert and never pauses.
package memory
