package solver

import (
	"testing"

	"github.com/google/uuid"

	"github.com/dispatchlab/stp-go/stn"
)

// durations builds the travel and work estimates used across the tests.
func durations(t *testing.T, travelMean, travelVar, workMean, workVar float64) (stn.InterTimepointConstraint, stn.InterTimepointConstraint) {
	t.Helper()
	travel, err := stn.NewInterTimepointConstraint("travel_time", travelMean, travelVar)
	if err != nil {
		t.Fatalf("travel: %v", err)
	}
	work, err := stn.NewInterTimepointConstraint("work_time", workMean, workVar)
	if err != nil {
		t.Fatalf("work: %v", err)
	}
	return travel, work
}

// addTask inserts a task with explicit windows.
func addTask(t *testing.T, network stn.Network, position int, windows []stn.TimepointConstraint, travel, work stn.InterTimepointConstraint) *stn.Task {
	t.Helper()
	task, err := stn.NewTask(uuid.New(), windows, []stn.InterTimepointConstraint{travel, work})
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	if err := network.AddTask(task, position); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	return task
}

// windows is a shorthand for the three task windows.
func windows(startE, startL, pickupE, pickupL, deliveryE, deliveryL float64) []stn.TimepointConstraint {
	return []stn.TimepointConstraint{
		stn.NewTimepointConstraint("start", startE, startL),
		stn.NewTimepointConstraint("pickup", pickupE, pickupL),
		stn.NewTimepointConstraint("delivery", deliveryE, deliveryL),
	}
}

// newTwoTaskSTN builds the canonical two-task STN: pickup windows [41, 47]
// and [96, 102], travel 6, work 4.
func newTwoTaskSTN(t *testing.T) *stn.STN {
	t.Helper()
	s := stn.NewSTN()
	travel, work := durations(t, 6, 0, 4, 0)
	addTask(t, s, 1, s.CreateTimepointConstraints(41, 47, travel, work), travel, work)
	addTask(t, s, 2, s.CreateTimepointConstraints(96, 102, travel, work), travel, work)
	return s
}

// newTwoTaskSTNU builds the two-task STNU with travel N(6,1) and work
// N(4,1) treated as bounded intervals. The window layout keeps the network
// strongly controllable with a unique schedule.
func newTwoTaskSTNU(t *testing.T) *stn.STNU {
	t.Helper()
	u := stn.NewSTNU()
	travel, work := durations(t, 6, 1, 4, 1)
	addTask(t, u, 1, windows(37, 39, 41, 47, 43, 51), travel, work)
	addTask(t, u, 2, windows(92, 94, 96, 102, 98, 106), travel, work)
	return u
}

// newTwoTaskPSTN builds the two-task PSTN with travel N(6,1) and work
// N(4,1).
func newTwoTaskPSTN(t *testing.T) *stn.PSTN {
	t.Helper()
	p := stn.NewPSTN()
	travel, work := durations(t, 6, 1, 4, 1)
	addTask(t, p, 1, p.CreateTimepointConstraints(41, 47, travel, work), travel, work)
	addTask(t, p, 2, p.CreateTimepointConstraints(96, 102, travel, work), travel, work)
	return p
}

// newInconsistentSTN forces a negative cycle: the second pickup window
// closes before travel and work from the first task can complete.
func newInconsistentSTN(t *testing.T) *stn.STN {
	t.Helper()
	s := stn.NewSTN()
	travel, work := durations(t, 6, 0, 4, 0)
	addTask(t, s, 1, s.CreateTimepointConstraints(41, 47, travel, work), travel, work)
	addTask(t, s, 2, s.CreateTimepointConstraints(43, 44, travel, work), travel, work)
	return s
}

// window reads the absolute window of a node off the zero-timepoint edges.
func window(n stn.Network, id int) (lower, upper float64) {
	return -n.GetEdgeWeight(id, 0), n.GetEdgeWeight(0, id)
}
