package emit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogEmitterTextMode(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	emitter.Emit(Event{
		Solver: "srea",
		Msg:    MsgAlphaProbed,
		Meta:   map[string]interface{}{"alpha": 0.002, "feasible": true},
	})
	if err := emitter.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"[alpha_probed]", "solver=srea", "alpha=0.002", "feasible=true"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestLogEmitterJSONMode(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, true)

	emitter.Emit(Event{
		RunID:  "run-001",
		Solver: "fpc",
		Msg:    MsgSolveCompleted,
		Meta:   map[string]interface{}{"risk_metric": 1.0},
	})

	var decoded struct {
		RunID  string                 `json:"run_id"`
		Solver string                 `json:"solver"`
		Msg    string                 `json:"msg"`
		Meta   map[string]interface{} `json:"meta"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if decoded.RunID != "run-001" || decoded.Solver != "fpc" || decoded.Msg != MsgSolveCompleted {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Meta["risk_metric"] != 1.0 {
		t.Errorf("risk_metric = %v, want 1.0", decoded.Meta["risk_metric"])
	}
}

func TestNullEmitterDiscards(t *testing.T) {
	emitter := NewNullEmitter()
	emitter.Emit(Event{Msg: MsgSolveStarted})
	if err := emitter.Flush(context.Background()); err != nil {
		t.Errorf("Flush: %v", err)
	}
	if err := emitter.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
