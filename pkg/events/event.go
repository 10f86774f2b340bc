// Package events persists unit-of-work envelopes and the model events they
// carry into the outbox tables.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/uow/pkg/domain"
)

var (
	ErrDuplicateExecution = errors.New("events: duplicate execution")
	ErrInvalidEvent       = errors.New("events: invalid uow event")
	ErrEncodePayload      = errors.New("events: encode payload")
	ErrNotFound           = errors.New("events: not found")
)

// Entry pairs a model event with the id it is stored under.
type Entry struct {
	ID    uuid.UUID
	Event domain.ModelEvent
}

// UowEvent is the envelope written once per successful execution.
type UowEvent struct {
	ID             uuid.UUID
	UowName        string
	Principal      domain.Principal
	ModelEvents    []Entry
	IdempotencyKey domain.IdempotencyKey
	Params         json.RawMessage
	OccurredAt     time.Time
}

// New assigns fresh ids to the envelope and each of its events, keeping the
// events in the order given.
func New(name string, principal domain.Principal, evs []domain.ModelEvent, key domain.IdempotencyKey, params json.RawMessage, occurredAt time.Time) *UowEvent {
	entries := make([]Entry, len(evs))
	for i, ev := range evs {
		entries[i] = Entry{ID: uuid.New(), Event: ev}
	}
	return &UowEvent{
		ID:             uuid.New(),
		UowName:        name,
		Principal:      principal,
		ModelEvents:    entries,
		IdempotencyKey: key,
		Params:         params,
		OccurredAt:     occurredAt,
	}
}

// EventIDs returns the model event ids in recorded order.
func (e *UowEvent) EventIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(e.ModelEvents))
	for i, entry := range e.ModelEvents {
		ids[i] = entry.ID
	}
	return ids
}

func (e *UowEvent) validate() error {
	switch {
	case e == nil:
		return fmt.Errorf("%w: nil", ErrInvalidEvent)
	case e.ID == uuid.Nil:
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	case e.UowName == "":
		return fmt.Errorf("%w: missing name", ErrInvalidEvent)
	case e.Principal == nil:
		return fmt.Errorf("%w: missing principal", ErrInvalidEvent)
	}
	for i, entry := range e.ModelEvents {
		if entry.Event == nil {
			return fmt.Errorf("%w: nil model event at %d", ErrInvalidEvent, i)
		}
	}
	return nil
}

// DuplicateError reports that an envelope with the same idempotency key was
// already committed. ExistingID is set when the prior envelope was found
// before the insert was attempted.
type DuplicateError struct {
	Key        domain.IdempotencyKey
	ExistingID uuid.UUID
	Err        error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("events: duplicate execution for idempotency key %s", e.Key)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicateExecution }

func (e *DuplicateError) Unwrap() error { return e.Err }
