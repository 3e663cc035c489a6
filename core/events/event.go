package events

import (
	"log/slog"
	"sync"

	"drippy/core/types"
)

// Event represents a structured state change emitted by the settlement engine.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (logs, journal, API).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Recorder buffers emitted events in memory. Tests and the status endpoint use
// it to inspect the most recent activity.
type Recorder struct {
	mu     sync.Mutex
	limit  int
	events []*types.Event
}

// NewRecorder keeps at most limit events; zero keeps everything.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	rendered := evt.Event()
	if rendered == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, rendered)
	if r.limit > 0 && len(r.events) > r.limit {
		r.events = append([]*types.Event(nil), r.events[len(r.events)-r.limit:]...)
	}
}

// Events returns a copy of the buffered events, oldest first.
func (r *Recorder) Events() []*types.Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*types.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Fanout forwards every event to each wrapped emitter.
type Fanout []Emitter

// Emit implements the Emitter interface.
func (f Fanout) Emit(evt Event) {
	for _, emitter := range f {
		if emitter != nil {
			emitter.Emit(evt)
		}
	}
}

// LogEmitter writes each event to Logger at info level and reports its type
// to Count when set.
type LogEmitter struct {
	Logger *slog.Logger
	Count  func(eventType string)
}

// Emit implements the Emitter interface.
func (l LogEmitter) Emit(evt Event) {
	if evt == nil {
		return
	}
	if l.Count != nil {
		l.Count(evt.EventType())
	}
	if l.Logger != nil {
		l.Logger.Info("settlement event", evt.Event().LogArgs()...)
	}
}
