package loader

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dispatchlab/stp-go/stn"
)

const taskYAML = `
- task_id: 0d06fb90-a76d-48b4-b64f-857b7388ab70
  earliest_pickup: 41
  latest_pickup: 47
  travel_time:
    name: travel_time
    mean: 6
    variance: 1
  work_time:
    name: work_time
    mean: 4
    variance: 1
  pickup_action_id: action-1
  delivery_action_id: action-2
`

const taskJSON = `[
  {
    "task_id": "0d06fb90-a76d-48b4-b64f-857b7388ab70",
    "earliest_pickup": 96,
    "latest_pickup": 102,
    "travel_time": {"name": "travel_time", "mean": 6, "variance": 0},
    "work_time": {"name": "work_time", "mean": 4, "variance": 0}
  }
]`

func TestReadYAML(t *testing.T) {
	records, err := ReadYAML(strings.NewReader(taskYAML))
	if err != nil {
		t.Fatalf("ReadYAML: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.EarliestPickup != 41 || rec.LatestPickup != 47 {
		t.Errorf("pickup window = [%v, %v], want [41, 47]", rec.EarliestPickup, rec.LatestPickup)
	}
	if rec.TravelTime.Mean != 6 || rec.TravelTime.Variance != 1 {
		t.Errorf("travel = %+v", rec.TravelTime)
	}
	if rec.PickupActionID != "action-1" || rec.DeliveryActionID != "action-2" {
		t.Errorf("action ids = %q, %q", rec.PickupActionID, rec.DeliveryActionID)
	}
}

func TestReadJSON(t *testing.T) {
	records, err := ReadJSON(strings.NewReader(taskJSON))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if len(records) != 1 || records[0].EarliestPickup != 96 {
		t.Fatalf("records = %+v", records)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "tasks.yaml")
	if err := os.WriteFile(yamlPath, []byte(taskYAML), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if records, err := LoadFile(yamlPath); err != nil || len(records) != 1 {
		t.Errorf("LoadFile(yaml) = %v, %v", records, err)
	}

	jsonPath := filepath.Join(dir, "tasks.json")
	if err := os.WriteFile(jsonPath, []byte(taskJSON), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if records, err := LoadFile(jsonPath); err != nil || len(records) != 1 {
		t.Errorf("LoadFile(json) = %v, %v", records, err)
	}

	if _, err := LoadFile(filepath.Join(dir, "tasks.txt")); err == nil {
		t.Error("unsupported extension accepted")
	}
}

func TestToTaskDerivesWindowsPerVariant(t *testing.T) {
	records, err := ReadYAML(strings.NewReader(taskYAML))
	if err != nil {
		t.Fatalf("ReadYAML: %v", err)
	}
	rec := records[0]

	t.Run("stn", func(t *testing.T) {
		task, err := rec.ToTask(stn.NewSTN())
		if err != nil {
			t.Fatalf("ToTask: %v", err)
		}
		start, ok := task.TimepointConstraint("start")
		if !ok || start.REarliest != 35 || start.RLatest != 41 {
			t.Errorf("start window = %+v, want [35, 41]", start)
		}
		if task.PickupActionID != "action-1" {
			t.Errorf("pickup action id = %q", task.PickupActionID)
		}
	})

	t.Run("pstn", func(t *testing.T) {
		task, err := rec.ToTask(stn.NewPSTN())
		if err != nil {
			t.Fatalf("ToTask: %v", err)
		}
		start, _ := task.TimepointConstraint("start")
		if start.REarliest != 37 || !math.IsInf(start.RLatest, 1) {
			t.Errorf("start window = %+v, want [37, +Inf]", start)
		}
		delivery, _ := task.TimepointConstraint("delivery")
		if delivery.REarliest != 0 || !math.IsInf(delivery.RLatest, 1) {
			t.Errorf("delivery window = %+v, want [0, +Inf]", delivery)
		}
	})
}

func TestToTaskValidation(t *testing.T) {
	rec := TaskRecord{
		TaskID:         "not-a-uuid",
		EarliestPickup: 1,
		LatestPickup:   2,
	}
	if _, err := rec.ToTask(stn.NewSTN()); err == nil {
		t.Error("invalid uuid accepted")
	}

	rec.TaskID = "0d06fb90-a76d-48b4-b64f-857b7388ab70"
	rec.EarliestPickup, rec.LatestPickup = 5, 3
	if _, err := rec.ToTask(stn.NewSTN()); err == nil {
		t.Error("inverted pickup window accepted")
	}
}
