package solver

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/dispatchlab/stp-go/stn"
)

func TestSREATwoTasks(t *testing.T) {
	p := newTwoTaskPSTN(t)

	graph, err := NewStaticRobustExecution().Solve(context.Background(), p)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	decoupled, ok := graph.(*stn.PSTN)
	if !ok {
		t.Fatalf("result type = %T, want *stn.PSTN", graph)
	}

	// The two-task network absorbs the full distributions: the smallest
	// feasible confidence level is zero.
	risk, set := decoupled.RiskMetric()
	if !set || risk != 0 {
		t.Errorf("risk metric = %v, want 0", risk)
	}

	// The decoupling stays consistent and keeps every window non-empty.
	if !decoupled.IsConsistent(decoupled.ShortestPaths()) {
		t.Error("decoupled network is inconsistent")
	}
	for _, id := range decoupled.Nodes() {
		if id == 0 {
			continue
		}
		if sum := decoupled.GetEdgeWeight(0, id) + decoupled.GetEdgeWeight(id, 0); sum < -1e-9 {
			t.Errorf("node %d: empty window (sum %v)", id, sum)
		}
	}

	// Decoupling only ever tightens the minimised network.
	minimal, err := MinimalNetwork(p)
	if err != nil {
		t.Fatalf("MinimalNetwork: %v", err)
	}
	for _, id := range decoupled.Nodes() {
		if id == 0 {
			continue
		}
		lower, upper := window(decoupled, id)
		minLower, minUpper := window(minimal, id)
		if upper > minUpper+1e-9 {
			t.Errorf("node %d: upper bound %v loosened beyond %v", id, upper, minUpper)
		}
		if lower < minLower-1e-9 {
			t.Errorf("node %d: lower bound %v loosened beyond %v", id, lower, minLower)
		}
	}

	// The pickup windows were externally fixed and must survive.
	if lower, upper := window(decoupled, 2); lower < 41-1e-9 || upper > 47+1e-9 {
		t.Errorf("node 2 window = [%v, %v], want within [41, 47]", lower, upper)
	}
	if lower, upper := window(decoupled, 5); lower < 96-1e-9 || upper > 102+1e-9 {
		t.Errorf("node 5 window = [%v, %v], want within [96, 102]", lower, upper)
	}
}

func TestSREAContingentIntervalContainment(t *testing.T) {
	p := newTwoTaskPSTN(t)

	s := NewStaticRobustExecution()
	graph, err := s.Solve(context.Background(), p)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	decoupled := graph.(*stn.PSTN)
	risk, _ := decoupled.RiskMetric()

	// For every contingent constraint the interval induced on the target
	// timepoint sits inside the distribution's (alpha/2, 1-alpha/2)
	// range relative to the source timepoint.
	for _, pair := range decoupled.ContingentConstraints() {
		i, j := pair[0], pair[1]
		d, err := decoupled.ContingentDistribution(i, j)
		if err != nil {
			t.Fatalf("distribution of %v: %v", pair, err)
		}
		iLower, iUpper := window(decoupled, i)
		jLower, jUpper := window(decoupled, j)

		// Ceil-rounding grants at most one extra unit on each side.
		maxSpan := d.InvCDF(1-risk/2) + 1
		minSpan := d.InvCDF(risk/2) - 1
		if span := jUpper - iUpper; span > maxSpan+1e-9 {
			t.Errorf("contingent %v: upper span %v beyond quantile %v", pair, span, maxSpan)
		}
		if span := jLower - iLower; span < minSpan-1e-9 {
			t.Errorf("contingent %v: lower span %v below quantile %v", pair, span, minSpan)
		}
	}
}

func TestSREADegenerateDistributionsMatchFPC(t *testing.T) {
	// All deviations zero: the PSTN is semantically an STN and SREA
	// reduces to full path consistency at zero risk.
	p := stn.NewPSTN()
	travel, work := durations(t, 6, 0, 4, 0)
	addTask(t, p, 1, windows(35, 41, 41, 47, 45, 51), travel, work)
	addTask(t, p, 2, windows(90, 96, 96, 102, 100, 106), travel, work)

	graph, err := NewStaticRobustExecution().Solve(context.Background(), p)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	risk, _ := graph.RiskMetric()
	if risk != 0 {
		t.Errorf("risk metric = %v, want 0", risk)
	}

	minimal, err := MinimalNetwork(p)
	if err != nil {
		t.Fatalf("MinimalNetwork: %v", err)
	}
	got, err := graph.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	minimal.SetRiskMetric(0)
	want, err := minimal.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("degenerate SREA differs from the minimal network:\n%s\n%s", got, want)
	}
}

func TestSREADetectsInconsistency(t *testing.T) {
	p := stn.NewPSTN()
	travel, work := durations(t, 6, 1, 4, 1)
	addTask(t, p, 1, windows(37, 39, 41, 47, 0, 200), travel, work)
	// The second pickup window precedes anything the first task allows.
	addTask(t, p, 2, windows(0, 1, 2, 3, 0, 200), travel, work)

	_, err := NewStaticRobustExecution().Solve(context.Background(), p)
	if !errors.Is(err, ErrInconsistent) {
		t.Errorf("err = %v, want ErrInconsistent", err)
	}
}

func TestSREARejectsWrongVariant(t *testing.T) {
	s := newTwoTaskSTN(t)
	_, err := NewStaticRobustExecution().Solve(context.Background(), s)
	if !errors.Is(err, ErrSolverError) {
		t.Errorf("err = %v, want ErrSolverError", err)
	}
}
