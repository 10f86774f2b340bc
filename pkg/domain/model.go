package domain

import (
	"github.com/google/uuid"
)

// ID is a model identifier scoped to one model kind K. K is never
// instantiated; it only keeps ids of different kinds from being mixed up.
type ID[K any] struct {
	uuid.UUID
}

// NewID returns a random id for kind K.
func NewID[K any]() ID[K] {
	return ID[K]{UUID: uuid.New()}
}

// ParseID parses a UUID string into an id of kind K.
func ParseID[K any](s string) (ID[K], error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return ID[K]{}, err
	}
	return ID[K]{UUID: v}, nil
}

// ModelEvent is an immutable fact about one model. Its payload is the
// event value itself, encoded as JSON using the event type's field tags.
type ModelEvent interface {
	ModelID() string
	ModelName() string
	EventName() string
}

// Model is an aggregate identified by a model id. Mutating a model raises
// ModelEvents, which are moved out with TakeEvents when the mutation is
// recorded in a unit of work.
type Model interface {
	ModelID() string
	ModelName() string
	TakeEvents() []ModelEvent
}

// EventLog collects the events a model raised since they were last taken.
// Embed it by value in a model that is handled through a pointer.
type EventLog struct {
	pending []ModelEvent
}

// Raise appends an event.
func (l *EventLog) Raise(e ModelEvent) {
	l.pending = append(l.pending, e)
}

// TakeEvents returns the pending events and clears the log.
func (l *EventLog) TakeEvents() []ModelEvent {
	out := l.pending
	l.pending = nil
	return out
}
