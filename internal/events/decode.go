package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/simonjohansson/deskboard/internal/model"
)

var (
	// ErrUnknownKind is returned for frames whose type is not recognised.
	// Callers ignore these.
	ErrUnknownKind = errors.New("unknown event kind")
	// ErrMalformed is returned when a frame lacks the fields its kind needs.
	ErrMalformed = errors.New("malformed event")
)

type frame struct {
	Type     model.EventType `json:"type"`
	Message  string          `json:"message,omitempty"`
	Ticket   json.RawMessage `json:"ticket,omitempty"`
	Todo     json.RawMessage `json:"todo,omitempty"`
	TicketID *model.ID       `json:"ticket_id,omitempty"`
	TodoID   *model.ID       `json:"todo_id,omitempty"`
	Columns  json.RawMessage `json:"columns,omitempty"`
}

// Decode parses one server frame.
func Decode(data []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch f.Type {
	case model.EventTypeConnected:
		return Connected{Message: f.Message}, nil
	case model.EventTypeSubscribed:
		return Subscribed{TicketID: derefID(f.TicketID)}, nil
	case model.EventTypeUnsubscribed:
		return Unsubscribed{TicketID: derefID(f.TicketID)}, nil
	case model.EventTypePong:
		return Pong{}, nil
	case model.EventTypeTicketCreated, model.EventTypeTicketUpdated, model.EventTypeCommentAdded:
		ticket, err := decodeTicket(f.Ticket)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Type, err)
		}
		switch f.Type {
		case model.EventTypeTicketCreated:
			return TicketCreated{Ticket: ticket}, nil
		case model.EventTypeTicketUpdated:
			return TicketUpdated{Ticket: ticket}, nil
		default:
			return CommentAdded{Ticket: ticket}, nil
		}
	case model.EventTypeTicketDeleted:
		id, err := requireID(f.TicketID, "ticket_id")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Type, err)
		}
		return TicketDeleted{TicketID: id}, nil
	case model.EventTypeTodoCreated, model.EventTypeTodoUpdated, model.EventTypeTodoCommentAdded,
		model.EventTypeTodoListItemAdded, model.EventTypeTodoListItemUpdated, model.EventTypeTodoListItemDeleted:
		todo, err := decodeTodo(f.Todo)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Type, err)
		}
		switch f.Type {
		case model.EventTypeTodoCreated:
			return TodoCreated{Todo: todo}, nil
		case model.EventTypeTodoUpdated:
			return TodoUpdated{Todo: todo}, nil
		case model.EventTypeTodoCommentAdded:
			return TodoCommentAdded{Todo: todo}, nil
		case model.EventTypeTodoListItemAdded:
			return ChecklistItemAdded{Todo: todo}, nil
		case model.EventTypeTodoListItemUpdated:
			return ChecklistItemUpdated{Todo: todo}, nil
		default:
			return ChecklistItemDeleted{Todo: todo}, nil
		}
	case model.EventTypeTodoDeleted:
		id, err := requireID(f.TodoID, "todo_id")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Type, err)
		}
		return TodoDeleted{TodoID: id}, nil
	case model.EventTypeColumnsUpdated:
		columns, err := decodeColumns(f.Columns)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Type, err)
		}
		return ColumnsUpdated{Columns: columns}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, f.Type)
	}
}

func derefID(id *model.ID) model.ID {
	if id == nil {
		return ""
	}
	return *id
}

func requireID(id *model.ID, field string) (model.ID, error) {
	if id == nil || id.IsZero() {
		return "", fmt.Errorf("%w: missing %s", ErrMalformed, field)
	}
	return *id, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func decodeTicket(raw json.RawMessage) (model.Ticket, error) {
	if !isObject(raw) {
		return model.Ticket{}, fmt.Errorf("%w: missing ticket", ErrMalformed)
	}
	var ticket model.Ticket
	if err := json.Unmarshal(raw, &ticket); err != nil {
		return model.Ticket{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if ticket.ID.IsZero() {
		return model.Ticket{}, fmt.Errorf("%w: ticket without id", ErrMalformed)
	}
	return ticket, nil
}

func decodeTodo(raw json.RawMessage) (model.Todo, error) {
	if !isObject(raw) {
		return model.Todo{}, fmt.Errorf("%w: missing todo", ErrMalformed)
	}
	var todo model.Todo
	if err := json.Unmarshal(raw, &todo); err != nil {
		return model.Todo{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if todo.ID.IsZero() {
		return model.Todo{}, fmt.Errorf("%w: todo without id", ErrMalformed)
	}
	return todo, nil
}

func decodeColumns(raw json.RawMessage) ([]model.Column, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: columns must be an array", ErrMalformed)
	}
	var columns []model.Column
	if err := json.Unmarshal(trimmed, &columns); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	// Broadcast layouts name a column by id first, column_id second.
	var ids []struct {
		ID model.ID `json:"id"`
	}
	if err := json.Unmarshal(trimmed, &ids); err == nil {
		for i := range columns {
			if !ids[i].ID.IsZero() {
				columns[i].ID = ids[i].ID
			}
		}
	}
	seen := make(map[string]struct{}, len(columns))
	for i, column := range columns {
		status := strings.TrimSpace(column.Status)
		if status == "" {
			return nil, fmt.Errorf("%w: column %d without status", ErrMalformed, i)
		}
		if _, dup := seen[status]; dup {
			return nil, fmt.Errorf("%w: duplicate column status %q", ErrMalformed, status)
		}
		seen[status] = struct{}{}
	}
	return columns, nil
}

// Encode renders a server-originated event as a wire frame. Client-local
// events have no wire form.
func Encode(e Event) ([]byte, error) {
	out := map[string]any{"type": e.Kind()}
	switch ev := e.(type) {
	case Connected:
		if ev.Message != "" {
			out["message"] = ev.Message
		}
	case Subscribed:
		out["ticket_id"] = ev.TicketID
	case Unsubscribed:
		out["ticket_id"] = ev.TicketID
	case Pong:
	case TicketCreated:
		out["ticket"] = ev.Ticket
	case TicketUpdated:
		out["ticket"] = ev.Ticket
	case CommentAdded:
		out["ticket"] = ev.Ticket
	case TicketDeleted:
		out["ticket_id"] = ev.TicketID
	case TodoCreated:
		out["todo"] = ev.Todo
	case TodoUpdated:
		out["todo"] = ev.Todo
	case TodoCommentAdded:
		out["todo"] = ev.Todo
	case ChecklistItemAdded:
		out["todo"] = ev.Todo
	case ChecklistItemUpdated:
		out["todo"] = ev.Todo
	case ChecklistItemDeleted:
		out["todo"] = ev.Todo
	case TodoDeleted:
		out["todo_id"] = ev.TodoID
	case ColumnsUpdated:
		columns := ev.Columns
		if columns == nil {
			columns = []model.Column{}
		}
		out["columns"] = columns
	default:
		return nil, fmt.Errorf("event %q has no wire form", e.Kind())
	}
	return json.Marshal(out)
}
