package workers

import "runtime"

// Count returns a worker count derived from the CPUs available to the
// process. It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks (an encode saturates a core)
//   - 2.0 for I/O-bound tasks
//
// The limit parameter caps the worker count to prevent resource
// exhaustion. Use 0 for no limit.
func Count(multiplier float64, limit int) int {
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

// ForEncode returns the default number of concurrent encode slots.
// External encode processes are CPU-bound, so one slot per CPU, capped
// to keep a large host from being saturated by transcodes alone.
func ForEncode() int {
	return Count(1.0, 4)
}
