// Package simulate executes a dispatchable graph offline: controllable
// timepoints are assigned their earliest time, contingent durations are
// realised by sampling, and the resulting schedule is checked for
// consistency.
//
// A simulation answers "would the dispatchable graph have survived this
// realisation of the uncertainty" without touching a robot.
package simulate

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"github.com/dispatchlab/stp-go/stn"
	"github.com/dispatchlab/stp-go/stn/dist"
)

// Result is the outcome of one simulated execution.
type Result struct {
	// Assignments maps node ids to the realised absolute times.
	Assignments map[int]float64

	// Consistent reports whether the realised schedule kept the network
	// free of negative cycles.
	Consistent bool

	// Makespan is the realised time of the last timepoint.
	Makespan float64
}

// Simulator runs realisations of a dispatchable graph.
type Simulator struct {
	src rand.Source
}

// New returns a simulator drawing samples from src. A nil src uses the
// process-global source.
func New(src rand.Source) *Simulator {
	return &Simulator{src: src}
}

// Run executes the dispatchable graph once. The input is not mutated.
//
// Timepoints are visited in node order. A timepoint that receives a
// contingent edge realises its time as the predecessor's time plus a
// sampled duration; every other timepoint executes at its earliest time in
// the progressively tightened working copy.
func (s *Simulator) Run(g stn.Network) (*Result, error) {
	work := g.Clone()
	res := &Result{Assignments: make(map[int]float64)}

	ids := work.Nodes()
	for _, id := range ids {
		if id == 0 {
			continue
		}
		t, err := s.realise(work, id, res.Assignments)
		if err != nil {
			return nil, err
		}
		work.SetEdgeWeight(0, id, t)
		work.SetEdgeWeight(id, 0, -t)
		work.ExecuteTimepoint(id)
		res.Assignments[id] = t
		res.Makespan = t
	}

	res.Consistent = work.IsConsistent(work.ShortestPaths())
	return res, nil
}

// realise picks the execution time for one timepoint.
func (s *Simulator) realise(work stn.Network, id int, assigned map[int]float64) (float64, error) {
	// A contingent in-edge decides the timepoint; in-degree is at most 1.
	for prev := range assigned {
		if !work.IsContingent(prev, id) || !work.HasEdge(prev, id) {
			continue
		}
		duration, err := s.sampleDuration(work, prev, id)
		if err != nil {
			return 0, err
		}
		return assigned[prev] + duration, nil
	}

	// Controllable: execute as early as the tightened network allows.
	earliest := -work.GetEdgeWeight(id, 0)
	if math.IsInf(earliest, -1) {
		earliest = 0
	}
	return earliest, nil
}

// sampleDuration realises a contingent duration: from its distribution
// when one is attached, uniformly over its bounded interval otherwise.
func (s *Simulator) sampleDuration(work stn.Network, i, j int) (float64, error) {
	if desc := work.Distribution(i, j); desc != "" {
		d, err := dist.Parse(desc)
		if err != nil {
			return 0, fmt.Errorf("sampling %d => %d: %w", i, j, err)
		}
		return d.Sample(s.src), nil
	}
	lower := -work.GetEdgeWeight(j, i)
	upper := work.GetEdgeWeight(i, j)
	if stn.IsUnbounded(upper) || upper <= lower {
		return lower, nil
	}
	return dist.Uniform(lower, upper).Sample(s.src), nil
}
