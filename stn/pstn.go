package stn

import (
	"fmt"
	"math"

	"github.com/dispatchlab/stp-go/stn/dist"
)

// PSTN is a Probabilistic Simple Temporal Network. Contingent constraints
// carry a distribution descriptor (N_mu_sigma or U_a_b) instead of a fixed
// bounded interval; until a solver decouples the network their interval is
// [0, +Inf]. A descriptor that collapses to a point (sigma = 0) is stored
// as a plain requirement, which makes the PSTN semantically an STNU.
type PSTN struct {
	STN
}

// NewPSTN returns a PSTN holding only the zero timepoint.
func NewPSTN() *PSTN {
	p := &PSTN{}
	p.nodes = make(map[int]*Timepoint)
	p.edges = make(map[edgeKey]*edge)
	p.installer = p
	p.addZeroTimepoint()
	return p
}

// AddProbabilisticConstraint installs a contingent constraint between i and
// j whose duration follows the described distribution. The interval opens
// at [0, +Inf]; decoupling tightens it later.
func (p *PSTN) AddProbabilisticConstraint(i, j int, distribution string) error {
	if _, err := dist.Parse(distribution); err != nil {
		return fmt.Errorf("constraint %d => %d: %w", i, j, err)
	}
	return p.addConstraintEdge(i, j, 0, math.Inf(1), true, distribution)
}

// ContingentConstraints returns the contingent pairs (i, j) with i < j.
func (p *PSTN) ContingentConstraints() [][2]int {
	u := STNU{STN: p.STN}
	return u.ContingentConstraints()
}

// ContingentTimepoints returns the nodes receiving a contingent edge.
func (p *PSTN) ContingentTimepoints() []int {
	u := STNU{STN: p.STN}
	return u.ContingentTimepoints()
}

// ContingentDistribution returns the parsed distribution of the contingent
// constraint between i and j.
func (p *PSTN) ContingentDistribution(i, j int) (dist.Distribution, error) {
	desc := p.Distribution(i, j)
	if desc == "" {
		return dist.Distribution{}, fmt.Errorf("constraint %d => %d carries no distribution", i, j)
	}
	return dist.Parse(desc)
}

// installInterTimepoint installs the PSTN edges: travel and work durations
// become probabilistic contingent constraints, degenerate estimates
// (zero deviation) become point requirements, the wait stays [0, +Inf].
func (p *PSTN) installInterTimepoint(i, j int, task *Task) error {
	tp := p.nodes[i]
	switch tp.Kind {
	case KindStart:
		travel, ok := task.InterTimepointConstraint("travel_time")
		if !ok {
			return fmt.Errorf("task %s: missing travel_time: %w", task.TaskID, ErrInvalidConstraint)
		}
		return p.installDuration(i, j, travel)
	case KindPickup:
		work, ok := task.InterTimepointConstraint("work_time")
		if !ok {
			return fmt.Errorf("task %s: missing work_time: %w", task.TaskID, ErrInvalidConstraint)
		}
		return p.installDuration(i, j, work)
	case KindDelivery:
		return p.AddConstraint(i, j, 0, math.Inf(1))
	}
	return nil
}

func (p *PSTN) installDuration(i, j int, c InterTimepointConstraint) error {
	if c.StandardDev == 0 {
		return p.AddConstraint(i, j, c.Mean, c.Mean)
	}
	return p.AddProbabilisticConstraint(i, j, dist.Normal(c.Mean, c.StandardDev).String())
}

// Clone returns a deep copy of the PSTN.
func (p *PSTN) Clone() Network {
	n := NewPSTN()
	p.copyState(&n.STN)
	return n
}

// Subgraph returns a PSTN view of the zero timepoint and the first nTasks
// tasks.
func (p *PSTN) Subgraph(nTasks int) Network {
	n := NewPSTN()
	p.subgraphState(&n.STN, nTasks)
	return n
}

// CreateTimepointConstraints derives the three task windows. Only the
// pickup window is pinned; the start keeps a lower bound shifted by the
// travel mean and the work deviation, and the delivery window stays open
// for the decoupling to decide.
func (p *PSTN) CreateTimepointConstraints(rEarliestPickup, rLatestPickup float64, travel, work InterTimepointConstraint) []TimepointConstraint {
	return []TimepointConstraint{
		NewTimepointConstraint("start", rEarliestPickup-(travel.Mean-2*work.StandardDev), math.Inf(1)),
		NewTimepointConstraint("pickup", rEarliestPickup, rLatestPickup),
		NewTimepointConstraint("delivery", 0, math.Inf(1)),
	}
}
