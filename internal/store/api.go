// Package store holds the client-side caches of tickets, todos and the
// board layout.
//
// Every mutation goes to a backend first; the store only changes once the
// backend answers with the full entity. The websocket echo of the same
// change then lands on the same id and collapses into the same entry.
package store

import (
	"context"

	"github.com/simonjohansson/deskboard/internal/model"
)

// TicketAPI is the backend a TicketStore talks to. Every call that
// changes a ticket returns the full ticket as stored.
type TicketAPI interface {
	ListTickets(ctx context.Context) ([]model.Ticket, error)
	CreateTicket(ctx context.Context, draft model.TicketDraft) (model.Ticket, error)
	UpdateTicket(ctx context.Context, id model.ID, patch model.TicketPatch) (model.Ticket, error)
	DeleteTicket(ctx context.Context, id model.ID) error
	AddTicketComment(ctx context.Context, id model.ID, text string) (model.Ticket, error)
}

// TodoAPI is the backend a TodoStore talks to.
type TodoAPI interface {
	ListTodos(ctx context.Context) ([]model.Todo, error)
	CreateTodo(ctx context.Context, draft model.TodoDraft) (model.Todo, error)
	UpdateTodo(ctx context.Context, id model.ID, patch model.TodoPatch) (model.Todo, error)
	DeleteTodo(ctx context.Context, id model.ID) error
	ArchiveTodo(ctx context.Context, id model.ID) (model.Todo, error)
	RestoreTodo(ctx context.Context, id model.ID) (model.Todo, error)
	AddTodoComment(ctx context.Context, id model.ID, text string) (model.Todo, error)
	AddChecklistItem(ctx context.Context, todoID model.ID, text string) (model.Todo, error)
	SetChecklistItemChecked(ctx context.Context, todoID, itemID model.ID, checked bool) (model.Todo, error)
	DeleteChecklistItem(ctx context.Context, todoID, itemID model.ID) (model.Todo, error)
}

// ColumnAPI stores the board layout.
type ColumnAPI interface {
	ListColumns(ctx context.Context) ([]model.Column, error)
	SaveColumns(ctx context.Context, columns []model.Column) ([]model.Column, error)
}
