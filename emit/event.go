// Package emit provides event emission and observability for solver runs.
package emit

import "time"

// Well-known event messages published by the orchestrator and solvers.
const (
	// MsgSolveStarted is emitted when a solve run begins.
	MsgSolveStarted = "solve_started"

	// MsgSolveCompleted is emitted when a solver returns a dispatchable
	// graph. Meta carries "risk_metric" and "duration_ms".
	MsgSolveCompleted = "solve_completed"

	// MsgSolveFailed is emitted when a solver surfaces an error.
	// Meta carries "error".
	MsgSolveFailed = "solve_failed"

	// MsgAlphaProbed is emitted per step of SREA's binary search.
	// Meta carries "alpha" and "feasible".
	MsgAlphaProbed = "alpha_probed"
)

// Event represents an observability event emitted during a solve run.
//
// Events provide insight into solver behaviour:
//   - Solve start/completion and failures
//   - Confidence levels probed by the SREA binary search
//
// Events are delivered to an Emitter which can log them, record them as
// OpenTelemetry spans, or discard them.
type Event struct {
	// RunID identifies the solve run that emitted this event.
	RunID string

	// Solver names the solver involved ("fpc", "dsc", "srea").
	Solver string

	// Msg is a short machine-friendly description (one of the Msg
	// constants above).
	Msg string

	// Time is when the event occurred. The zero value means "now" and is
	// stamped by the emitter.
	Time time.Time

	// Meta contains additional structured data specific to the event.
	// Common keys: "risk_metric", "alpha", "feasible", "duration_ms",
	// "error".
	Meta map[string]interface{}
}
