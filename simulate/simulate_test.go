package simulate

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"

	"github.com/dispatchlab/stp-go/solver"
	"github.com/dispatchlab/stp-go/stn"
)

func addTask(t *testing.T, network stn.Network, position int, rEarliest, rLatest, travelVar, workVar float64) {
	t.Helper()
	travel, err := stn.NewInterTimepointConstraint("travel_time", 6, travelVar)
	if err != nil {
		t.Fatalf("travel: %v", err)
	}
	work, err := stn.NewInterTimepointConstraint("work_time", 4, workVar)
	if err != nil {
		t.Fatalf("work: %v", err)
	}
	deriver, ok := network.(interface {
		CreateTimepointConstraints(rEarliestPickup, rLatestPickup float64, travel, work stn.InterTimepointConstraint) []stn.TimepointConstraint
	})
	if !ok {
		t.Fatalf("%T cannot derive windows", network)
	}
	task, err := stn.NewTask(uuid.New(), deriver.CreateTimepointConstraints(rEarliest, rLatest, travel, work),
		[]stn.InterTimepointConstraint{travel, work})
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	if err := network.AddTask(task, position); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
}

func TestRunDeterministicSTN(t *testing.T) {
	s := stn.NewSTN()
	addTask(t, s, 1, 41, 47, 0, 0)
	addTask(t, s, 2, 96, 102, 0, 0)

	graph, err := solver.FullPathConsistency{}.Solve(context.Background(), s)
	if err != nil {
		t.Fatalf("fpc: %v", err)
	}

	res, err := New(rand.NewSource(1)).Run(graph)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Consistent {
		t.Error("deterministic schedule reported inconsistent")
	}
	// Everything executes at its earliest time.
	want := map[int]float64{1: 35, 2: 41, 3: 45, 4: 90, 5: 96, 6: 100}
	for id, at := range want {
		if res.Assignments[id] != at {
			t.Errorf("node %d executed at %v, want %v", id, res.Assignments[id], at)
		}
	}
	if res.Makespan != 100 {
		t.Errorf("makespan = %v, want 100", res.Makespan)
	}
}

func TestRunSamplesContingentDurations(t *testing.T) {
	p := stn.NewPSTN()
	addTask(t, p, 1, 41, 47, 1, 1)
	addTask(t, p, 2, 96, 102, 1, 1)

	graph, err := solver.NewStaticRobustExecution().Solve(context.Background(), p)
	if err != nil {
		t.Fatalf("srea: %v", err)
	}

	sim := New(rand.NewSource(42))
	res, err := sim.Run(graph)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The contingent pickup realises as start plus a sampled travel
	// duration; durations are non-negative, so time moves forward along
	// each task chain.
	for _, chain := range [][2]int{{1, 2}, {2, 3}, {4, 5}, {5, 6}} {
		if res.Assignments[chain[1]] < res.Assignments[chain[0]] {
			t.Errorf("node %d executed before node %d: %v < %v",
				chain[1], chain[0], res.Assignments[chain[1]], res.Assignments[chain[0]])
		}
	}
	if len(res.Assignments) != 6 {
		t.Errorf("assignments = %d, want 6", len(res.Assignments))
	}

	// The input dispatchable graph is untouched.
	if _, ok := graph.Node(1); !ok {
		t.Fatal("graph lost nodes")
	}
	if tp, _ := graph.Node(1); tp.IsExecuted {
		t.Error("simulation mutated the input graph")
	}
}

func TestRunBoundedContingentSTNU(t *testing.T) {
	u := stn.NewSTNU()
	addTask(t, u, 1, 41, 47, 1, 1)

	graph, err := solver.DegreeOfStrongControllability{}.Solve(context.Background(), u)
	if err != nil {
		t.Fatalf("dsc: %v", err)
	}

	res, err := New(rand.NewSource(7)).Run(graph)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The sampled travel duration stays inside the bounded interval.
	span := res.Assignments[2] - res.Assignments[1]
	if span < 4 || span > 8 {
		t.Errorf("travel realisation = %v, want within [4, 8]", span)
	}
}
