package store

import (
	"context"
	"log/slog"

	"github.com/simonjohansson/deskboard/internal/model"
)

type TodoStore struct {
	*entities[model.Todo]
	api TodoAPI
}

func NewTodoStore(api TodoAPI, logger *slog.Logger) *TodoStore {
	return &TodoStore{
		entities: newEntities("todos", logger, api.ListTodos),
		api:      api,
	}
}

func (s *TodoStore) Create(ctx context.Context, draft model.TodoDraft) (model.Todo, error) {
	return s.confirm(s.api.CreateTodo(ctx, draft))
}

func (s *TodoStore) Update(ctx context.Context, id model.ID, patch model.TodoPatch) (model.Todo, error) {
	return s.confirm(s.api.UpdateTodo(ctx, id, patch))
}

// Move puts a card into the column whose status is status.
func (s *TodoStore) Move(ctx context.Context, id model.ID, status string) (model.Todo, error) {
	return s.Update(ctx, id, model.TodoPatch{Status: model.Ptr(status)})
}

// MoveAll moves every card with status from to status to. It stops at the
// first failure and returns how many cards were moved.
func (s *TodoStore) MoveAll(ctx context.Context, from, to string) (int, error) {
	moved := 0
	for _, todo := range s.All() {
		if todo.Status != from {
			continue
		}
		if _, err := s.Move(ctx, todo.ID, to); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

func (s *TodoStore) Archive(ctx context.Context, id model.ID) (model.Todo, error) {
	return s.confirm(s.api.ArchiveTodo(ctx, id))
}

func (s *TodoStore) Restore(ctx context.Context, id model.ID) (model.Todo, error) {
	return s.confirm(s.api.RestoreTodo(ctx, id))
}

func (s *TodoStore) Delete(ctx context.Context, id model.ID) error {
	if err := s.api.DeleteTodo(ctx, id); err != nil {
		return err
	}
	s.ApplyRemoteDelete(id)
	return nil
}

func (s *TodoStore) AddComment(ctx context.Context, id model.ID, text string) (model.Todo, error) {
	return s.confirm(s.api.AddTodoComment(ctx, id, text))
}

func (s *TodoStore) AddChecklistItem(ctx context.Context, id model.ID, text string) (model.Todo, error) {
	return s.confirm(s.api.AddChecklistItem(ctx, id, text))
}

func (s *TodoStore) SetChecklistItemChecked(ctx context.Context, id, itemID model.ID, checked bool) (model.Todo, error) {
	return s.confirm(s.api.SetChecklistItemChecked(ctx, id, itemID, checked))
}

func (s *TodoStore) DeleteChecklistItem(ctx context.Context, id, itemID model.ID) (model.Todo, error) {
	return s.confirm(s.api.DeleteChecklistItem(ctx, id, itemID))
}

func (s *TodoStore) Comments(id model.ID) []model.Comment {
	todo, ok := s.Get(id)
	if !ok {
		return nil
	}
	out := make([]model.Comment, len(todo.Comments))
	copy(out, todo.Comments)
	return out
}

func (s *TodoStore) ChecklistItems(id model.ID) []model.ChecklistItem {
	todo, ok := s.Get(id)
	if !ok {
		return nil
	}
	out := make([]model.ChecklistItem, len(todo.Checklist))
	copy(out, todo.Checklist)
	return out
}

func (s *TodoStore) Attachments(id model.ID) []model.Attachment {
	todo, ok := s.Get(id)
	if !ok {
		return nil
	}
	out := make([]model.Attachment, len(todo.Attachments))
	copy(out, todo.Attachments)
	return out
}

func (s *TodoStore) SelectForRole(role model.Role, userID model.ID) []model.Todo {
	return SelectForRole(s.All(), role, userID)
}
