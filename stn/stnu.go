package stn

import (
	"fmt"
	"math"
	"sort"
)

// STNU is a Simple Temporal Network with Uncertainties. Inter-timepoint
// durations become contingent constraints: bounded intervals
// [mean-2*stddev, mean+2*stddev] whose realised value is chosen by the
// environment, not the scheduler.
type STNU struct {
	STN
}

// NewSTNU returns an STNU holding only the zero timepoint.
func NewSTNU() *STNU {
	u := &STNU{}
	u.nodes = make(map[int]*Timepoint)
	u.edges = make(map[edgeKey]*edge)
	u.installer = u
	u.addZeroTimepoint()
	return u
}

// AddContingentConstraint installs a contingent constraint between i and j
// with interval [wji, wij]. Both directed edges carry the contingent tag.
func (u *STNU) AddContingentConstraint(i, j int, wji, wij float64) error {
	return u.addConstraintEdge(i, j, wji, wij, true, "")
}

// ContingentConstraints returns the contingent pairs (i, j) with i < j,
// ascending.
func (u *STNU) ContingentConstraints() [][2]int {
	var pairs [][2]int
	for k, e := range u.edges {
		if e.isContingent && k.from < k.to {
			pairs = append(pairs, [2]int{k.from, k.to})
		}
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a][0] != pairs[b][0] {
			return pairs[a][0] < pairs[b][0]
		}
		return pairs[a][1] < pairs[b][1]
	})
	return pairs
}

// ContingentTimepoints returns the nodes that receive a contingent edge.
// The contingent in-degree of any node is at most one, so the result has
// one entry per contingent constraint.
func (u *STNU) ContingentTimepoints() []int {
	var out []int
	for _, pair := range u.ContingentConstraints() {
		out = append(out, pair[1])
	}
	return out
}

// ShrinkContingentConstraint tightens the contingent interval between i and
// j: the lower endpoint rises by low and the upper endpoint drops by high.
func (u *STNU) ShrinkContingentConstraint(i, j int, low, high float64) {
	if e, ok := u.edges[edgeKey{i, j}]; ok {
		e.weight -= high
	}
	if e, ok := u.edges[edgeKey{j, i}]; ok {
		e.weight -= low
	}
}

// installInterTimepoint installs the STNU edges: travel becomes contingent
// unless its deviation is zero, work is always contingent, the wait between
// tasks stays a requirement.
func (u *STNU) installInterTimepoint(i, j int, task *Task) error {
	tp := u.nodes[i]
	switch tp.Kind {
	case KindStart:
		travel, ok := task.InterTimepointConstraint("travel_time")
		if !ok {
			return fmt.Errorf("task %s: missing travel_time: %w", task.TaskID, ErrInvalidConstraint)
		}
		if travel.StandardDev == 0 {
			return u.AddConstraint(i, j, 0, 0)
		}
		lower, upper := boundedInterval(travel)
		return u.AddContingentConstraint(i, j, lower, upper)
	case KindPickup:
		work, ok := task.InterTimepointConstraint("work_time")
		if !ok {
			return fmt.Errorf("task %s: missing work_time: %w", task.TaskID, ErrInvalidConstraint)
		}
		lower, upper := boundedInterval(work)
		return u.AddContingentConstraint(i, j, lower, upper)
	case KindDelivery:
		return u.AddConstraint(i, j, 0, math.Inf(1))
	}
	return nil
}

// boundedInterval converts a duration estimate to the bounded interval
// [mean-2*stddev, mean+2*stddev].
func boundedInterval(c InterTimepointConstraint) (lower, upper float64) {
	return c.Mean - 2*c.StandardDev, c.Mean + 2*c.StandardDev
}

// Clone returns a deep copy of the STNU.
func (u *STNU) Clone() Network {
	n := NewSTNU()
	u.copyState(&n.STN)
	return n
}

// Subgraph returns an STNU view of the zero timepoint and the first nTasks
// tasks.
func (u *STNU) Subgraph(nTasks int) Network {
	n := NewSTNU()
	u.subgraphState(&n.STN, nTasks)
	return n
}

// CreateTimepointConstraints derives the three task windows from the pickup
// window and the duration estimates: the start window is shifted by the
// travel mean and the delivery window by the work mean, both widened by
// twice the work deviation; the travel deviation is not used.
func (u *STNU) CreateTimepointConstraints(rEarliestPickup, rLatestPickup float64, travel, work InterTimepointConstraint) []TimepointConstraint {
	return []TimepointConstraint{
		NewTimepointConstraint("start",
			rEarliestPickup-(travel.Mean-2*work.StandardDev),
			rLatestPickup-(travel.Mean+2*work.StandardDev)),
		NewTimepointConstraint("pickup", rEarliestPickup, rLatestPickup),
		NewTimepointConstraint("delivery",
			rEarliestPickup+work.Mean-2*work.StandardDev,
			rLatestPickup+work.Mean-2*work.StandardDev),
	}
}
