package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"
)

// LogEmitter implements Emitter by writing structured log output to a
// writer.
//
// Two output modes are supported:
//   - Text mode (default): human-readable lines with key=value pairs, e.g.
//     [alpha_probed] solver=srea alpha=0.002 feasible=true
//   - JSON mode: one JSON object per line, suitable for ingestion.
type LogEmitter struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a LogEmitter writing to the given writer (stdout
// when nil). When jsonMode is true events are emitted as JSON lines.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit writes the event to the configured writer.
func (l *LogEmitter) Emit(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.jsonMode {
		l.emitJSON(event)
		return
	}
	l.emitText(event)
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		RunID  string                 `json:"run_id,omitempty"`
		Solver string                 `json:"solver,omitempty"`
		Msg    string                 `json:"msg"`
		Time   time.Time              `json:"time"`
		Meta   map[string]interface{} `json:"meta,omitempty"`
	}{event.RunID, event.Solver, event.Msg, event.Time, event.Meta})
	if err != nil {
		fmt.Fprintf(l.writer, `{"msg":%q,"marshal_error":%q}`+"\n", event.Msg, err.Error())
		return
	}
	fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	fmt.Fprintf(l.writer, "[%s]", event.Msg)
	if event.RunID != "" {
		fmt.Fprintf(l.writer, " runID=%s", event.RunID)
	}
	if event.Solver != "" {
		fmt.Fprintf(l.writer, " solver=%s", event.Solver)
	}
	keys := make([]string, 0, len(event.Meta))
	for k := range event.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(l.writer, " %s=%v", k, event.Meta[k])
	}
	fmt.Fprintln(l.writer)
}

// Flush is a no-op: events are written synchronously.
func (l *LogEmitter) Flush(context.Context) error { return nil }

// Close is a no-op.
func (l *LogEmitter) Close() error { return nil }
