package stn

import (
	"bytes"
	"math"
	"testing"

	"github.com/google/uuid"
)

func TestJSONRoundTrip(t *testing.T) {
	t.Run("stn", func(t *testing.T) {
		s := NewSTN()
		task := newTask(t, s, 41, 47, 6, 0, 4, 0)
		if err := s.AddTask(task, 1); err != nil {
			t.Fatalf("AddTask: %v", err)
		}
		s.SetRiskMetric(1.0)

		payload, err := s.ToJSON()
		if err != nil {
			t.Fatalf("ToJSON: %v", err)
		}
		decoded, err := STNFromJSON(payload)
		if err != nil {
			t.Fatalf("STNFromJSON: %v", err)
		}
		reencoded, err := decoded.ToJSON()
		if err != nil {
			t.Fatalf("ToJSON: %v", err)
		}
		if !bytes.Equal(payload, reencoded) {
			t.Errorf("round trip changed the network:\n%s\n%s", payload, reencoded)
		}
		if risk, ok := decoded.RiskMetric(); !ok || risk != 1.0 {
			t.Errorf("risk metric = %v, %v, want 1.0", risk, ok)
		}
	})

	t.Run("pstn with distribution", func(t *testing.T) {
		p := NewPSTN()
		task := newTask(t, p, 41, 47, 6, 1, 4, 1)
		if err := p.AddTask(task, 1); err != nil {
			t.Fatalf("AddTask: %v", err)
		}

		payload, err := p.ToJSON()
		if err != nil {
			t.Fatalf("ToJSON: %v", err)
		}
		decoded, err := PSTNFromJSON(payload)
		if err != nil {
			t.Fatalf("PSTNFromJSON: %v", err)
		}
		if got := decoded.Distribution(1, 2); got != "N_6_1" {
			t.Errorf("distribution = %q, want N_6_1", got)
		}
		if !decoded.IsContingent(2, 3) {
			t.Error("contingent flag lost in round trip")
		}
		if got := decoded.GetEdgeWeight(1, 2); !math.IsInf(got, 1) {
			t.Errorf("weight(1,2) = %v, want +Inf", got)
		}
	})
}

func TestJSONEncodesInfinityAsString(t *testing.T) {
	s := NewSTN()
	if err := s.AddConstraint(0, 1, 0, math.Inf(1)); err != nil {
		t.Fatalf("AddConstraint: %v", err)
	}
	s.nodes[1] = NewTimepoint(uuid.New(), KindStart)

	payload, err := s.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if !bytes.Contains(payload, []byte(`"weight":"inf"`)) {
		t.Errorf("payload does not encode +Inf as \"inf\": %s", payload)
	}

	decoded, err := STNFromJSON(payload)
	if err != nil {
		t.Fatalf("STNFromJSON: %v", err)
	}
	if got := decoded.GetEdgeWeight(0, 1); !math.IsInf(got, 1) {
		t.Errorf("weight(0,1) = %v, want +Inf", got)
	}
}

func TestJSONRejectsGarbageWeight(t *testing.T) {
	payload := []byte(`{"nodes":[{"id":0,"data":{"task_id":"","node_type":"zero_timepoint","is_executed":false}}],
		"links":[{"source":0,"target":1,"weight":"soon"}]}`)
	if _, err := STNFromJSON(payload); err == nil {
		t.Error("expected decode error for non-numeric weight")
	}
}
