package marp

import "runtime"

// Concurrency bounds for ProcessAll.
const (
	// MinConcurrency keeps at least one render in flight.
	MinConcurrency = 1

	// MaxConcurrency caps simultaneous marp processes (each starts Node).
	MaxConcurrency = 8

	// cpuDivisor leaves headroom for the Node child processes.
	cpuDivisor = 2
)

// ResolveConcurrency returns how many decks ProcessAll renders at once.
// A positive workers value wins; otherwise it derives from GOMAXPROCS,
// which automaxprocs adjusts for container limits.
func ResolveConcurrency(workers int) int {
	if workers > 0 {
		return workers
	}
	return min(max(runtime.GOMAXPROCS(0)/cpuDivisor, MinConcurrency), MaxConcurrency)
}
