/*
Package workers sizes bounded worker pools in containerized environments.

runtime.NumCPU reports the host's CPUs even when a cgroup limit applies;
GOMAXPROCS follows the container limit, so pool sizes are derived from it.

	// RAW decode subprocesses: one per CPU, at most 4, overridable
	// with RAW_WORKERS=2.
	n := workers.ForCPU("RAW_WORKERS", 4)

An override environment variable, when set to a positive integer, replaces
the computed value but is still capped by the limit.
*/
package workers
