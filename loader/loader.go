// Package loader ingests task records from YAML and JSON files and turns
// them into stn.Task values.
//
// A task record carries the externally specified pickup window and the two
// duration estimates; the start and delivery windows are derived by the
// network variant the task is destined for.
package loader

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dispatchlab/stp-go/stn"
)

// DurationSpec is the estimate of a named duration.
type DurationSpec struct {
	Name     string  `yaml:"name" json:"name"`
	Mean     float64 `yaml:"mean" json:"mean"`
	Variance float64 `yaml:"variance" json:"variance"`
}

// TaskRecord is the wire form of a task.
type TaskRecord struct {
	TaskID           string       `yaml:"task_id" json:"task_id"`
	EarliestPickup   float64      `yaml:"earliest_pickup" json:"earliest_pickup"`
	LatestPickup     float64      `yaml:"latest_pickup" json:"latest_pickup"`
	TravelTime       DurationSpec `yaml:"travel_time" json:"travel_time"`
	WorkTime         DurationSpec `yaml:"work_time" json:"work_time"`
	PickupActionID   string       `yaml:"pickup_action_id,omitempty" json:"pickup_action_id,omitempty"`
	DeliveryActionID string       `yaml:"delivery_action_id,omitempty" json:"delivery_action_id,omitempty"`
}

// WindowDeriver derives the three task windows from the pickup window and
// the duration estimates. Each network variant implements it.
type WindowDeriver interface {
	CreateTimepointConstraints(rEarliestPickup, rLatestPickup float64, travel, work stn.InterTimepointConstraint) []stn.TimepointConstraint
}

// ReadYAML decodes a list of task records from YAML.
func ReadYAML(r io.Reader) ([]TaskRecord, error) {
	var records []TaskRecord
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding task yaml: %w", err)
	}
	return records, nil
}

// ReadJSON decodes a list of task records from JSON.
func ReadJSON(r io.Reader) ([]TaskRecord, error) {
	var records []TaskRecord
	dec := json.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding task json: %w", err)
	}
	return records, nil
}

// LoadFile reads task records from the file, choosing the decoder by
// extension (.yaml/.yml or .json).
func LoadFile(path string) ([]TaskRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening task file: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return ReadYAML(f)
	case ".json":
		return ReadJSON(f)
	}
	return nil, fmt.Errorf("task file %s: unsupported extension", path)
}

// ToTask converts the record into a task, deriving the start and delivery
// windows with the given variant.
func (r TaskRecord) ToTask(deriver WindowDeriver) (*stn.Task, error) {
	taskID, err := uuid.Parse(r.TaskID)
	if err != nil {
		return nil, fmt.Errorf("task id %q: %w", r.TaskID, err)
	}
	if r.EarliestPickup > r.LatestPickup {
		return nil, fmt.Errorf("task %s: pickup window [%v, %v]: %w",
			r.TaskID, r.EarliestPickup, r.LatestPickup, stn.ErrInvalidConstraint)
	}
	travel, err := stn.NewInterTimepointConstraint(nameOr(r.TravelTime.Name, "travel_time"), r.TravelTime.Mean, r.TravelTime.Variance)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", r.TaskID, err)
	}
	work, err := stn.NewInterTimepointConstraint(nameOr(r.WorkTime.Name, "work_time"), r.WorkTime.Mean, r.WorkTime.Variance)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", r.TaskID, err)
	}

	windows := deriver.CreateTimepointConstraints(r.EarliestPickup, r.LatestPickup, travel, work)
	task, err := stn.NewTask(taskID, windows, []stn.InterTimepointConstraint{travel, work})
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", r.TaskID, err)
	}
	task.PickupActionID = r.PickupActionID
	task.DeliveryActionID = r.DeliveryActionID
	return task, nil
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
