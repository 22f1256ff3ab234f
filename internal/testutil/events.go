package testutil

import (
	"sync"

	"github.com/mcoot/bullscows/internal/model"
)

// RecordingHandle is a connection handle that keeps every event it is sent
type RecordingHandle struct {
	id string

	mu     sync.Mutex
	events []model.Event
	full   bool
}

// NewRecordingHandle creates a handle with the given connection id
func NewRecordingHandle(id string) *RecordingHandle {
	return &RecordingHandle{id: id}
}

// ID returns the connection id
func (h *RecordingHandle) ID() string {
	return h.id
}

// Send records the event unless the handle has been marked full
func (h *RecordingHandle) Send(event model.Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.full {
		return false
	}
	h.events = append(h.events, event)
	return true
}

// SetFull makes subsequent sends fail
func (h *RecordingHandle) SetFull(full bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.full = full
}

// Events returns a copy of everything received so far
func (h *RecordingHandle) Events() []model.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.Event(nil), h.events...)
}

// EventsOfType returns received events with the given type
func (h *RecordingHandle) EventsOfType(t model.EventType) []model.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []model.Event
	for _, e := range h.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Types returns the type of each received event in order
func (h *RecordingHandle) Types() []model.EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]model.EventType, len(h.events))
	for i, e := range h.events {
		out[i] = e.Type
	}
	return out
}

// Last returns the most recent event of the given type
func (h *RecordingHandle) Last(t model.EventType) (model.Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.events) - 1; i >= 0; i-- {
		if h.events[i].Type == t {
			return h.events[i], true
		}
	}
	return model.Event{}, false
}

// Reset clears recorded events
func (h *RecordingHandle) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
}
