package localstore

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/simonjohansson/deskboard/internal/model"
)

func todoRow(t model.Todo) row {
	return row{id: t.ID, status: t.Status, createdBy: t.CreatedBy, createdAt: t.CreatedAt, updatedAt: t.UpdatedAt, data: t}
}

// ListTodos returns every card, archived ones included.
func (s *Store) ListTodos(ctx context.Context) ([]model.Todo, error) {
	return listRows[model.Todo](ctx, s.db, `SELECT data FROM todos ORDER BY created_at ASC, id ASC`)
}

func (s *Store) TodosByStatus(ctx context.Context, status string) ([]model.Todo, error) {
	return listRows[model.Todo](ctx, s.db, `SELECT data FROM todos WHERE status = ? ORDER BY created_at ASC, id ASC`, status)
}

func (s *Store) GetTodo(ctx context.Context, id model.ID) (model.Todo, error) {
	return loadRow[model.Todo](ctx, s.db, "todos", id)
}

func (s *Store) CreateTodo(ctx context.Context, draft model.TodoDraft) (model.Todo, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return model.Todo{}, fmt.Errorf("todo title is required")
	}
	status := strings.TrimSpace(draft.Status)
	if status == "" {
		status = RestoreStatus
	}
	now := s.now()
	todo := model.Todo{
		ID:          s.nextID(),
		Title:       title,
		Description: draft.Description,
		Status:      status,
		AssignedTo:  cloneOrEmpty(draft.AssignedTo),
		Tags:        cloneOrEmpty(draft.Tags),
		StoryPoints: draft.StoryPoints,
		Project:     draft.Project,
		DueDate:     draft.DueDate,
		CreatedBy:   s.currentActor().ID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Comments:    []model.Comment{},
		Checklist:   []model.ChecklistItem{},
		Attachments: []model.Attachment{},
	}
	if err := upsertRow(ctx, s.db, "todos", todoRow(todo)); err != nil {
		return model.Todo{}, err
	}
	s.logger.Debug("local todo created", "todo_id", todo.ID, "status", status)
	return todo, nil
}

func (s *Store) UpdateTodo(ctx context.Context, id model.ID, patch model.TodoPatch) (model.Todo, error) {
	return s.mutateTodo(ctx, id, func(t *model.Todo) error {
		if patch.Title != nil {
			if strings.TrimSpace(*patch.Title) == "" {
				return fmt.Errorf("todo title is required")
			}
			t.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		if patch.Status != nil {
			t.Status = *patch.Status
		}
		if patch.AssignedTo != nil {
			t.AssignedTo = cloneOrEmpty(*patch.AssignedTo)
		}
		if patch.Tags != nil {
			t.Tags = cloneOrEmpty(*patch.Tags)
		}
		if patch.StoryPoints != nil {
			t.StoryPoints = model.Ptr(*patch.StoryPoints)
		}
		if patch.InFocus != nil {
			t.InFocus = *patch.InFocus
		}
		if patch.Read != nil {
			t.Read = *patch.Read
		}
		if patch.Project != nil {
			t.Project = model.Ptr(*patch.Project)
		}
		if patch.DueDate != nil {
			t.DueDate = model.Ptr(*patch.DueDate)
		}
		if patch.BackgroundImage != nil {
			t.BackgroundImage = model.Ptr(*patch.BackgroundImage)
		}
		return nil
	})
}

// DeleteTodo removes a card permanently. Use ArchiveTodo to hide it.
func (s *Store) DeleteTodo(ctx context.Context, id model.ID) error {
	return deleteRow(ctx, s.db, "todos", id)
}

func (s *Store) ArchiveTodo(ctx context.Context, id model.ID) (model.Todo, error) {
	return s.mutateTodo(ctx, id, func(t *model.Todo) error {
		t.Status = model.TodoStatusArchived
		return nil
	})
}

func (s *Store) RestoreTodo(ctx context.Context, id model.ID) (model.Todo, error) {
	return s.mutateTodo(ctx, id, func(t *model.Todo) error {
		if t.Status != model.TodoStatusArchived {
			return fmt.Errorf("todo %s is not archived", id)
		}
		t.Status = RestoreStatus
		return nil
	})
}

func (s *Store) AddTodoComment(ctx context.Context, id model.ID, text string) (model.Todo, error) {
	comment, err := s.newComment(text)
	if err != nil {
		return model.Todo{}, err
	}
	return s.mutateTodo(ctx, id, func(t *model.Todo) error {
		t.Comments = append(t.Comments, comment)
		return nil
	})
}

func (s *Store) AddChecklistItem(ctx context.Context, todoID model.ID, text string) (model.Todo, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Todo{}, fmt.Errorf("checklist item text is required")
	}
	item := model.ChecklistItem{ID: s.nextID(), Text: text, CreatedAt: s.now()}
	return s.mutateTodo(ctx, todoID, func(t *model.Todo) error {
		t.Checklist = append(t.Checklist, item)
		return nil
	})
}

func (s *Store) SetChecklistItemChecked(ctx context.Context, todoID, itemID model.ID, checked bool) (model.Todo, error) {
	return s.mutateTodo(ctx, todoID, func(t *model.Todo) error {
		idx := checklistIndex(t.Checklist, itemID)
		if idx < 0 {
			return fmt.Errorf("checklist item %s: %w", itemID, ErrNotFound)
		}
		t.Checklist[idx].Checked = checked
		return nil
	})
}

func (s *Store) DeleteChecklistItem(ctx context.Context, todoID, itemID model.ID) (model.Todo, error) {
	return s.mutateTodo(ctx, todoID, func(t *model.Todo) error {
		idx := checklistIndex(t.Checklist, itemID)
		if idx < 0 {
			return fmt.Errorf("checklist item %s: %w", itemID, ErrNotFound)
		}
		t.Checklist = slices.Delete(t.Checklist, idx, idx+1)
		return nil
	})
}

func checklistIndex(items []model.ChecklistItem, id model.ID) int {
	return slices.IndexFunc(items, func(item model.ChecklistItem) bool { return item.ID == id })
}

func (s *Store) mutateTodo(ctx context.Context, id model.ID, apply func(*model.Todo) error) (model.Todo, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	todo, err := loadRow[model.Todo](ctx, s.db, "todos", id)
	if err != nil {
		return model.Todo{}, err
	}
	if err := apply(&todo); err != nil {
		return model.Todo{}, err
	}
	todo.UpdatedAt = s.now()
	if err := upsertRow(ctx, s.db, "todos", todoRow(todo)); err != nil {
		return model.Todo{}, err
	}
	return todo, nil
}

func cloneOrEmpty[T any](in []T) []T {
	if len(in) == 0 {
		return []T{}
	}
	return slices.Clone(in)
}
