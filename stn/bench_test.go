package stn

import (
	"testing"

	"github.com/google/uuid"
)

func buildBenchNetwork(b *testing.B, nTasks int) *STN {
	b.Helper()
	s := NewSTN()
	travel, _ := NewInterTimepointConstraint("travel_time", 6, 0)
	work, _ := NewInterTimepointConstraint("work_time", 4, 0)
	for i := 0; i < nTasks; i++ {
		base := float64(i * 50)
		windows := s.CreateTimepointConstraints(base+41, base+47, travel, work)
		task, err := NewTask(uuid.New(), windows, []InterTimepointConstraint{travel, work})
		if err != nil {
			b.Fatalf("NewTask: %v", err)
		}
		if err := s.AddTask(task, i+1); err != nil {
			b.Fatalf("AddTask: %v", err)
		}
	}
	return s
}

func BenchmarkShortestPaths(b *testing.B) {
	s := buildBenchNetwork(b, 20)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d := s.ShortestPaths()
		if !s.IsConsistent(d) {
			b.Fatal("benchmark network inconsistent")
		}
	}
}

func BenchmarkAddTaskAtFront(b *testing.B) {
	travel, _ := NewInterTimepointConstraint("travel_time", 6, 0)
	work, _ := NewInterTimepointConstraint("work_time", 4, 0)
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		s := buildBenchNetwork(b, 20)
		windows := s.CreateTimepointConstraints(1, 7, travel, work)
		task, _ := NewTask(uuid.New(), windows, []InterTimepointConstraint{travel, work})
		b.StartTimer()
		if err := s.AddTask(task, 1); err != nil {
			b.Fatalf("AddTask: %v", err)
		}
	}
}

func BenchmarkClone(b *testing.B) {
	s := buildBenchNetwork(b, 20)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Clone()
	}
}
