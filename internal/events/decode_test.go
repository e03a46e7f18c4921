package events

import (
	"encoding/json"
	"testing"

	"github.com/simonjohansson/deskboard/internal/model"
	"github.com/stretchr/testify/require"
)

func TestDecodeEntityFrames(t *testing.T) {
	t.Parallel()

	ev, err := Decode([]byte(`{"type":"ticket_updated","ticket":{"id":7,"title":"Printer","status":"open","comments":[{"id":"C1","text":"hi"}]}}`))
	require.NoError(t, err)
	updated, ok := ev.(TicketUpdated)
	require.True(t, ok)
	require.Equal(t, model.ID("7"), updated.Ticket.ID)
	require.Len(t, updated.Ticket.Comments, 1)

	ev, err = Decode([]byte(`{"type":"todo_list_item_updated","todo":{"id":"a1","status":"todo","todo_lists":[{"id":1,"text":"step","checked":true}]}}`))
	require.NoError(t, err)
	item, ok := ev.(ChecklistItemUpdated)
	require.True(t, ok)
	require.True(t, item.Todo.Checklist[0].Checked)
	require.Equal(t, model.EventTypeTodoListItemUpdated, item.Kind())
}

func TestDecodeDeleteFrames(t *testing.T) {
	t.Parallel()

	ev, err := Decode([]byte(`{"type":"ticket_deleted","ticket_id":42}`))
	require.NoError(t, err)
	require.Equal(t, TicketDeleted{TicketID: "42"}, ev)

	ev, err = Decode([]byte(`{"type":"todo_deleted","todo_id":"x"}`))
	require.NoError(t, err)
	require.Equal(t, TodoDeleted{TodoID: "x"}, ev)
}

func TestDecodeLifecycleFrames(t *testing.T) {
	t.Parallel()

	ev, err := Decode([]byte(`{"type":"connected","message":"welcome"}`))
	require.NoError(t, err)
	require.Equal(t, Connected{Message: "welcome"}, ev)

	ev, err = Decode([]byte(`{"type":"subscribed","ticket_id":3}`))
	require.NoError(t, err)
	require.Equal(t, Subscribed{TicketID: "3"}, ev)

	ev, err = Decode([]byte(`{"type":"pong"}`))
	require.NoError(t, err)
	require.Equal(t, Pong{}, ev)
}

func TestDecodeColumnsUpdated(t *testing.T) {
	t.Parallel()

	ev, err := Decode([]byte(`{"type":"columns_updated","columns":[
		{"column_id":"c1","title":"Todo","status":"todo","order_index":"0"},
		{"id":"c2","title":"Done","status":"done","color":"accent","backgroundImage":"x.png","order_index":1}
	]}`))
	require.NoError(t, err)
	cols := ev.(ColumnsUpdated).Columns
	require.Len(t, cols, 2)
	require.Equal(t, model.DefaultColumnColor, cols[0].Color)
	require.Equal(t, model.ID("c2"), cols[1].ID)
	require.Equal(t, 1, cols[1].OrderIndex)
	require.Equal(t, "x.png", *cols[1].BackgroundImage)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	t.Parallel()

	cases := []string{
		`not json`,
		`{"message":"no type"}`,
		`{"type":"ticket_created"}`,
		`{"type":"ticket_created","ticket":{"title":"no id"}}`,
		`{"type":"ticket_updated","ticket":"7"}`,
		`{"type":"ticket_deleted"}`,
		`{"type":"todo_deleted","todo_id":""}`,
		`{"type":"todo_list_item_added","todo":{"id":""}}`,
		`{"type":"columns_updated","columns":{}}`,
		`{"type":"columns_updated","columns":[{"title":"x"}]}`,
		`{"type":"columns_updated","columns":[{"status":"a"},{"status":"a"}]}`,
	}
	for _, raw := range cases {
		_, err := Decode([]byte(raw))
		require.ErrorIs(t, err, ErrMalformed, raw)
	}
}

func TestDecodeColumnsPrefersIDOverColumnID(t *testing.T) {
	t.Parallel()

	ev, err := Decode([]byte(`{"type":"columns_updated","columns":[
		{"id":"live-1","column_id":"stale-1","title":"Todo","status":"todo"},
		{"column_id":"c2","title":"Done","status":"done"}
	]}`))
	require.NoError(t, err)
	cols := ev.(ColumnsUpdated).Columns
	require.Equal(t, model.ID("live-1"), cols[0].ID)
	require.Equal(t, model.ID("c2"), cols[1].ID)
}

func TestDecodeUnknownKind(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"type":"presence_changed","user":"x"}`))
	require.ErrorIs(t, err, ErrUnknownKind)
	require.NotErrorIs(t, err, ErrMalformed)
}

func TestEncodeRoundTripsServerEvents(t *testing.T) {
	t.Parallel()

	original := []Event{
		TicketCreated{Ticket: model.Ticket{ID: "12", Title: "VPN"}},
		TicketDeleted{TicketID: "12"},
		TodoDeleted{TodoID: "t-1"},
		ChecklistItemDeleted{Todo: model.Todo{ID: "t-1"}},
		ColumnsUpdated{Columns: model.DefaultColumns()},
		Subscribed{TicketID: "5"},
	}
	for _, ev := range original {
		raw, err := Encode(ev)
		require.NoError(t, err)
		decoded, err := Decode(raw)
		require.NoError(t, err)
		require.Equal(t, ev.Kind(), decoded.Kind())
	}

	raw, err := Encode(TicketDeleted{TicketID: "12"})
	require.NoError(t, err)
	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	require.Equal(t, float64(12), generic["ticket_id"])

	_, err = Encode(Disconnected{Code: 1006})
	require.Error(t, err)
}

func TestIDHelpers(t *testing.T) {
	t.Parallel()

	id, ok := TicketIDOf(CommentAdded{Ticket: model.Ticket{ID: "9"}})
	require.True(t, ok)
	require.Equal(t, model.ID("9"), id)

	_, ok = TicketIDOf(TodoCreated{Todo: model.Todo{ID: "9"}})
	require.False(t, ok)

	id, ok = TodoIDOf(ChecklistItemAdded{Todo: model.Todo{ID: "t"}})
	require.True(t, ok)
	require.Equal(t, model.ID("t"), id)
}

func TestFuncsVisitorDispatchesByKind(t *testing.T) {
	t.Parallel()

	var got []string
	v := Funcs{
		TicketDeleted: func(e TicketDeleted) { got = append(got, "deleted:"+e.TicketID.String()) },
		Disconnected:  func(e Disconnected) { got = append(got, "closed") },
	}
	TicketDeleted{TicketID: "1"}.Accept(v)
	Pong{}.Accept(v)
	Disconnected{Code: 1000}.Accept(v)

	require.Equal(t, []string{"deleted:1", "closed"}, got)
}
