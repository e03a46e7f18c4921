package cli

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simonjohansson/deskboard/internal/events"
	"github.com/simonjohansson/deskboard/internal/model"
)

func TestWatchFilterNarrowsEntityEvents(t *testing.T) {
	t.Parallel()

	open := newWatchFilter(nil, nil)
	require.True(t, open.allows(events.TicketUpdated{Ticket: model.Ticket{ID: "t-9"}}))
	require.True(t, open.allows(events.TodoDeleted{TodoID: "c-9"}))

	f := newWatchFilter([]string{" t-1 ", ""}, []string{"c-1"})
	require.True(t, f.allows(events.TicketUpdated{Ticket: model.Ticket{ID: "t-1"}}))
	require.True(t, f.allows(events.TicketDeleted{TicketID: "t-1"}))
	require.False(t, f.allows(events.CommentAdded{Ticket: model.Ticket{ID: "t-2"}}))
	require.True(t, f.allows(events.ChecklistItemAdded{Todo: model.Todo{ID: "c-1"}}))
	require.False(t, f.allows(events.TodoCreated{Todo: model.Todo{ID: "c-2"}}))

	require.True(t, f.allows(events.Connected{Message: "hi"}))
	require.True(t, f.allows(events.Disconnected{Code: 1006}))
	require.True(t, f.allows(events.ColumnsUpdated{}))

	ticketsOnly := newWatchFilter([]string{"t-1"}, nil)
	require.False(t, ticketsOnly.allows(events.TodoUpdated{Todo: model.Todo{ID: "c-1"}}))
}
