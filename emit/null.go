package emit

import "context"

// NullEmitter implements Emitter by discarding all events.
//
// Use it to disable event emission without changing call sites. It is safe
// for concurrent use and has zero overhead.
type NullEmitter struct{}

// NewNullEmitter returns a NullEmitter.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(Event) {}

// Flush is a no-op.
func (n *NullEmitter) Flush(context.Context) error { return nil }

// Close is a no-op.
func (n *NullEmitter) Close() error { return nil }
