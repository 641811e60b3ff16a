package stn

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Round used for constraint times and duration moments, matching the wire
// precision of the task records.
func round3(v float64) float64 {
	if math.IsInf(v, 0) {
		return v
	}
	return math.Round(v*1000) / 1000
}

// TimepointConstraint is an absolute window [REarliest, RLatest] for a named
// timepoint, relative to the zero timepoint.
type TimepointConstraint struct {
	Name      string  `json:"name"`
	REarliest float64 `json:"r_earliest_time"`
	RLatest   float64 `json:"r_latest_time"`
}

// NewTimepointConstraint returns a window constraint with times rounded to
// millisecond precision.
func NewTimepointConstraint(name string, rEarliest, rLatest float64) TimepointConstraint {
	return TimepointConstraint{Name: name, REarliest: round3(rEarliest), RLatest: round3(rLatest)}
}

func (c TimepointConstraint) String() string {
	return fmt.Sprintf("%s: [%v, %v]", c.Name, c.REarliest, c.RLatest)
}

// InterTimepointConstraint is a named duration between two timepoints of a
// task, described by the first two moments of its estimate.
type InterTimepointConstraint struct {
	Name        string  `json:"name"`
	Mean        float64 `json:"mean"`
	Variance    float64 `json:"variance"`
	StandardDev float64 `json:"standard_dev"`
}

// NewInterTimepointConstraint returns a duration constraint. The standard
// deviation is derived from the variance.
func NewInterTimepointConstraint(name string, mean, variance float64) (InterTimepointConstraint, error) {
	if variance < 0 {
		return InterTimepointConstraint{}, fmt.Errorf("%s: variance %v: %w", name, variance, ErrInvalidConstraint)
	}
	return InterTimepointConstraint{
		Name:        name,
		Mean:        round3(mean),
		Variance:    round3(variance),
		StandardDev: round3(math.Sqrt(variance)),
	}, nil
}

func (c InterTimepointConstraint) String() string {
	return fmt.Sprintf("%s: N(%v, %v)", c.Name, c.Mean, c.StandardDev)
}

// Add returns the moments of the sum of two independent durations.
func (c InterTimepointConstraint) Add(other InterTimepointConstraint) (mean, variance float64) {
	return c.Mean + other.Mean, c.Variance + other.Variance
}

// Sub returns the moments of the difference of two independent durations.
// The variances add.
func (c InterTimepointConstraint) Sub(other InterTimepointConstraint) (mean, variance float64) {
	return c.Mean - other.Mean, c.Variance + other.Variance
}

// Task is the unit of scheduling: three timepoints (start, pickup, delivery)
// with absolute windows, and two estimated durations (travel_time between
// start and pickup, work_time between pickup and delivery).
//
// A task holds exactly one constraint per recognized name.
type Task struct {
	TaskID uuid.UUID `json:"task_id"`

	// PickupActionID and DeliveryActionID optionally link the task's
	// timepoints to the actions of an external plan.
	PickupActionID   string `json:"pickup_action_id,omitempty"`
	DeliveryActionID string `json:"delivery_action_id,omitempty"`

	timepointConstraints      []TimepointConstraint
	interTimepointConstraints []InterTimepointConstraint
}

// NewTask builds a task from its constraint lists. Later constraints with a
// name already present replace the earlier one, preserving the one
// constraint per name invariant.
func NewTask(taskID uuid.UUID, tps []TimepointConstraint, itps []InterTimepointConstraint) (*Task, error) {
	t := &Task{TaskID: taskID}
	for _, c := range tps {
		if c.REarliest > c.RLatest {
			return nil, fmt.Errorf("timepoint %s: [%v, %v]: %w", c.Name, c.REarliest, c.RLatest, ErrInvalidConstraint)
		}
		t.UpdateTimepointConstraint(c.Name, c.REarliest, c.RLatest)
	}
	for _, c := range itps {
		if c.Variance < 0 {
			return nil, fmt.Errorf("duration %s: variance %v: %w", c.Name, c.Variance, ErrInvalidConstraint)
		}
		t.UpdateInterTimepointConstraint(c.Name, c.Mean, c.Variance)
	}
	return t, nil
}

func (t *Task) String() string {
	out := t.TaskID.String() + "\n"
	for _, c := range t.timepointConstraints {
		out += c.String() + "\t"
	}
	out += "\n"
	for _, c := range t.interTimepointConstraints {
		out += c.String() + "\t"
	}
	return out
}

// TimepointConstraint returns the window with the given name.
func (t *Task) TimepointConstraint(name string) (TimepointConstraint, bool) {
	for _, c := range t.timepointConstraints {
		if c.Name == name {
			return c, true
		}
	}
	return TimepointConstraint{}, false
}

// InterTimepointConstraint returns the duration with the given name.
func (t *Task) InterTimepointConstraint(name string) (InterTimepointConstraint, bool) {
	for _, c := range t.interTimepointConstraints {
		if c.Name == name {
			return c, true
		}
	}
	return InterTimepointConstraint{}, false
}

// TimepointConstraints returns the task's windows in insertion order.
func (t *Task) TimepointConstraints() []TimepointConstraint {
	out := make([]TimepointConstraint, len(t.timepointConstraints))
	copy(out, t.timepointConstraints)
	return out
}

// InterTimepointConstraints returns the task's durations in insertion order.
func (t *Task) InterTimepointConstraints() []InterTimepointConstraint {
	out := make([]InterTimepointConstraint, len(t.interTimepointConstraints))
	copy(out, t.interTimepointConstraints)
	return out
}

// UpdateTimepointConstraint replaces the window with the given name, or
// appends it if not present.
func (t *Task) UpdateTimepointConstraint(name string, rEarliest, rLatest float64) {
	for i := range t.timepointConstraints {
		if t.timepointConstraints[i].Name == name {
			t.timepointConstraints[i].REarliest = round3(rEarliest)
			t.timepointConstraints[i].RLatest = round3(rLatest)
			return
		}
	}
	t.timepointConstraints = append(t.timepointConstraints, NewTimepointConstraint(name, rEarliest, rLatest))
}

// UpdateInterTimepointConstraint replaces the duration with the given name,
// or appends it if not present.
func (t *Task) UpdateInterTimepointConstraint(name string, mean, variance float64) {
	for i := range t.interTimepointConstraints {
		if t.interTimepointConstraints[i].Name == name {
			t.interTimepointConstraints[i].Mean = round3(mean)
			t.interTimepointConstraints[i].Variance = round3(variance)
			t.interTimepointConstraints[i].StandardDev = round3(math.Sqrt(variance))
			return
		}
	}
	c, _ := NewInterTimepointConstraint(name, mean, variance)
	t.interTimepointConstraints = append(t.interTimepointConstraints, c)
}
