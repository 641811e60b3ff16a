// Package stn implements temporal networks for multi-robot task scheduling.
//
// A temporal network is a distance graph over timepoints: every constraint
// i --[wji, wij]--> j is stored as two directed edges, i->j with the upper
// bound wij and j->i with the negated lower bound -wji. Node 0 is the zero
// timepoint that anchors absolute time windows.
//
// Three variants are provided:
//   - STN: every constraint is a requirement (controllable).
//   - STNU: constraints may be contingent with a bounded interval.
//   - PSTN: contingent constraints carry a probability distribution.
package stn

import "github.com/google/uuid"

// NodeKind classifies a timepoint within a task.
type NodeKind string

// Timepoint kinds. Node id 0 is always the zero timepoint; the three
// timepoints of the task at position p have ids 3p-2, 3p-1 and 3p.
const (
	KindZero     NodeKind = "zero_timepoint"
	KindStart    NodeKind = "start"
	KindPickup   NodeKind = "pickup"
	KindDelivery NodeKind = "delivery"
)

// Timepoint is a node in a temporal network.
//
// It records which task the node belongs to, the kind of event it
// represents, and whether it has already been executed during dispatch.
type Timepoint struct {
	// TaskID is the id of the task this timepoint belongs to.
	// The zero timepoint carries uuid.Nil.
	TaskID uuid.UUID

	// Kind is the event this timepoint represents.
	Kind NodeKind

	// IsExecuted marks the timepoint as assigned during dispatch.
	IsExecuted bool
}

// NewTimepoint returns a timepoint for the given task and kind.
func NewTimepoint(taskID uuid.UUID, kind NodeKind) *Timepoint {
	return &Timepoint{TaskID: taskID, Kind: kind}
}

// clone returns a deep copy of the timepoint.
func (t *Timepoint) clone() *Timepoint {
	cp := *t
	return &cp
}

// startID returns the node id of the start timepoint of the task at the
// given position. Positions are 1-based; position 0 is the zero timepoint.
func startID(position int) int {
	return 3*position - 2
}
