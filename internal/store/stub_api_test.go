package store

import (
	"context"
	"errors"

	"github.com/simonjohansson/deskboard/internal/model"
)

var errNotStubbed = errors.New("not stubbed")

type stubTicketAPI struct {
	listFn    func(context.Context) ([]model.Ticket, error)
	createFn  func(context.Context, model.TicketDraft) (model.Ticket, error)
	updateFn  func(context.Context, model.ID, model.TicketPatch) (model.Ticket, error)
	deleteFn  func(context.Context, model.ID) error
	commentFn func(context.Context, model.ID, string) (model.Ticket, error)
}

func (s *stubTicketAPI) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	if s.listFn == nil {
		return nil, errNotStubbed
	}
	return s.listFn(ctx)
}

func (s *stubTicketAPI) CreateTicket(ctx context.Context, draft model.TicketDraft) (model.Ticket, error) {
	if s.createFn == nil {
		return model.Ticket{}, errNotStubbed
	}
	return s.createFn(ctx, draft)
}

func (s *stubTicketAPI) UpdateTicket(ctx context.Context, id model.ID, patch model.TicketPatch) (model.Ticket, error) {
	if s.updateFn == nil {
		return model.Ticket{}, errNotStubbed
	}
	return s.updateFn(ctx, id, patch)
}

func (s *stubTicketAPI) DeleteTicket(ctx context.Context, id model.ID) error {
	if s.deleteFn == nil {
		return errNotStubbed
	}
	return s.deleteFn(ctx, id)
}

func (s *stubTicketAPI) AddTicketComment(ctx context.Context, id model.ID, text string) (model.Ticket, error) {
	if s.commentFn == nil {
		return model.Ticket{}, errNotStubbed
	}
	return s.commentFn(ctx, id, text)
}

type stubTodoAPI struct {
	listFn    func(context.Context) ([]model.Todo, error)
	createFn  func(context.Context, model.TodoDraft) (model.Todo, error)
	updateFn  func(context.Context, model.ID, model.TodoPatch) (model.Todo, error)
	deleteFn  func(context.Context, model.ID) error
	archiveFn func(context.Context, model.ID) (model.Todo, error)
	restoreFn func(context.Context, model.ID) (model.Todo, error)
	commentFn func(context.Context, model.ID, string) (model.Todo, error)
	itemAddFn func(context.Context, model.ID, string) (model.Todo, error)
	itemSetFn func(context.Context, model.ID, model.ID, bool) (model.Todo, error)
	itemDelFn func(context.Context, model.ID, model.ID) (model.Todo, error)
}

func (s *stubTodoAPI) ListTodos(ctx context.Context) ([]model.Todo, error) {
	if s.listFn == nil {
		return nil, errNotStubbed
	}
	return s.listFn(ctx)
}

func (s *stubTodoAPI) CreateTodo(ctx context.Context, draft model.TodoDraft) (model.Todo, error) {
	if s.createFn == nil {
		return model.Todo{}, errNotStubbed
	}
	return s.createFn(ctx, draft)
}

func (s *stubTodoAPI) UpdateTodo(ctx context.Context, id model.ID, patch model.TodoPatch) (model.Todo, error) {
	if s.updateFn == nil {
		return model.Todo{}, errNotStubbed
	}
	return s.updateFn(ctx, id, patch)
}

func (s *stubTodoAPI) DeleteTodo(ctx context.Context, id model.ID) error {
	if s.deleteFn == nil {
		return errNotStubbed
	}
	return s.deleteFn(ctx, id)
}

func (s *stubTodoAPI) ArchiveTodo(ctx context.Context, id model.ID) (model.Todo, error) {
	if s.archiveFn == nil {
		return model.Todo{}, errNotStubbed
	}
	return s.archiveFn(ctx, id)
}

func (s *stubTodoAPI) RestoreTodo(ctx context.Context, id model.ID) (model.Todo, error) {
	if s.restoreFn == nil {
		return model.Todo{}, errNotStubbed
	}
	return s.restoreFn(ctx, id)
}

func (s *stubTodoAPI) AddTodoComment(ctx context.Context, id model.ID, text string) (model.Todo, error) {
	if s.commentFn == nil {
		return model.Todo{}, errNotStubbed
	}
	return s.commentFn(ctx, id, text)
}

func (s *stubTodoAPI) AddChecklistItem(ctx context.Context, id model.ID, text string) (model.Todo, error) {
	if s.itemAddFn == nil {
		return model.Todo{}, errNotStubbed
	}
	return s.itemAddFn(ctx, id, text)
}

func (s *stubTodoAPI) SetChecklistItemChecked(ctx context.Context, id, itemID model.ID, checked bool) (model.Todo, error) {
	if s.itemSetFn == nil {
		return model.Todo{}, errNotStubbed
	}
	return s.itemSetFn(ctx, id, itemID, checked)
}

func (s *stubTodoAPI) DeleteChecklistItem(ctx context.Context, id, itemID model.ID) (model.Todo, error) {
	if s.itemDelFn == nil {
		return model.Todo{}, errNotStubbed
	}
	return s.itemDelFn(ctx, id, itemID)
}

type stubColumnAPI struct {
	listFn func(context.Context) ([]model.Column, error)
	saveFn func(context.Context, []model.Column) ([]model.Column, error)
}

func (s *stubColumnAPI) ListColumns(ctx context.Context) ([]model.Column, error) {
	if s.listFn == nil {
		return nil, errNotStubbed
	}
	return s.listFn(ctx)
}

func (s *stubColumnAPI) SaveColumns(ctx context.Context, columns []model.Column) ([]model.Column, error) {
	if s.saveFn == nil {
		return nil, errNotStubbed
	}
	return s.saveFn(ctx, columns)
}
