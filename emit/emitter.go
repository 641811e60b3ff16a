package emit

import "context"

// Emitter receives and processes observability events from solve runs.
//
// Implementations should be:
//   - Non-blocking: avoid slowing down a solve.
//   - Thread-safe: a host may run solvers from multiple goroutines.
//   - Resilient: emission failures must not fail the solve.
type Emitter interface {
	// Emit sends an observability event to the configured backend.
	// Emit must not panic; errors are handled internally.
	Emit(event Event)

	// Flush ensures all buffered events are delivered. Safe to call
	// multiple times.
	Flush(ctx context.Context) error

	// Close flushes and releases the emitter's resources.
	Close() error
}
