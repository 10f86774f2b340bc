package uowtest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/uow/pkg/domain"
	"github.com/Mindburn-Labs/uow/pkg/uow"
	"github.com/Mindburn-Labs/uow/pkg/uow/uowtest"
)

type ticket struct {
	domain.EventLog
	id     string
	status string
}

func (t *ticket) ModelID() string   { return t.id }
func (t *ticket) ModelName() string { return "Ticket" }

type ticketOpened struct{ ID string }

func (e ticketOpened) ModelID() string   { return e.ID }
func (e ticketOpened) ModelName() string { return "Ticket" }
func (e ticketOpened) EventName() string { return "TicketOpened" }

type ticketClosed struct {
	ID     string
	Reason string
}

func (e ticketClosed) ModelID() string   { return e.ID }
func (e ticketClosed) ModelName() string { return "Ticket" }
func (e ticketClosed) EventName() string { return "TicketClosed" }

func TestSpec_ReplaysInOrder(t *testing.T) {
	changes, err := uow.Record(context.Background(), func(_ context.Context, s *uow.Scope) (string, error) {
		open := &ticket{id: "T-1", status: "open"}
		open.Raise(ticketOpened{ID: "T-1"})
		uow.Add(s, open)

		old := &ticket{id: "T-0", status: "closed"}
		old.Raise(ticketClosed{ID: "T-0", Reason: "duplicate"})
		uow.Update(s, old)
		return "T-1", nil
	})
	require.NoError(t, err)

	spec := uowtest.New(t, changes)
	spec.VerifyResult(func(id string) { assert.Equal(t, "T-1", id) })

	opened := uowtest.VerifyAdded(spec, func(tk *ticket) {
		assert.Equal(t, "open", tk.status)
	})
	assert.Equal(t, "T-1", opened.id)

	uowtest.VerifyUpdated(spec, func(tk *ticket) {
		assert.Equal(t, "T-0", tk.id)
	})

	uowtest.VerifyEmitted(spec, func(e ticketOpened) { assert.Equal(t, "T-1", e.ID) })
	closed := uowtest.VerifyEmitted[ticketClosed](spec, nil)
	assert.Equal(t, "duplicate", closed.Reason)

	spec.VerifyEnd()
}

func TestSpec_LeavesChangesUnconsumed(t *testing.T) {
	changes, err := uow.Record(context.Background(), func(_ context.Context, s *uow.Scope) (int, error) {
		uow.Add(s, &ticket{id: "T-2"})
		return 0, nil
	})
	require.NoError(t, err)

	spec := uowtest.New(t, changes)
	uowtest.VerifyAdded[*ticket](spec, nil)
	spec.VerifyEnd()

	assert.Equal(t, 1, changes.Len())
}

func TestSpec_NoopLeavesNothing(t *testing.T) {
	changes, err := uow.Record(context.Background(), func(_ context.Context, s *uow.Scope) (int, error) {
		s.Noop()
		return 0, nil
	})
	require.NoError(t, err)

	uowtest.New(t, changes).VerifyEnd()
}
