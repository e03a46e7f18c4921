package apiclient

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/simonjohansson/deskboard/internal/model"
)

func (c *Client) ListTodos(ctx context.Context) ([]model.Todo, error) {
	return c.listTodos(ctx, "/todos/")
}

func (c *Client) MyTodos(ctx context.Context) ([]model.Todo, error) {
	return c.listTodos(ctx, "/todos/my")
}

func (c *Client) TodosByStatus(ctx context.Context, status string) ([]model.Todo, error) {
	path, err := buildPath("/todos/status/{status}", "status", status)
	if err != nil {
		return nil, err
	}
	return c.listTodos(ctx, path)
}

func (c *Client) listTodos(ctx context.Context, path string) ([]model.Todo, error) {
	var out []model.Todo
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTodo(ctx context.Context, id model.ID) (model.Todo, error) {
	return c.todoCall(ctx, http.MethodGet, "/todos/{id}", id, nil)
}

func (c *Client) CreateTodo(ctx context.Context, draft model.TodoDraft) (model.Todo, error) {
	body := map[string]any{
		"title":       draft.Title,
		"description": draft.Description,
		"status":      draft.Status,
		"assigned_to": nonNil(draft.AssignedTo),
		"tags":        nonNil(draft.Tags),
	}
	if draft.StoryPoints != nil {
		body["story_points"] = *draft.StoryPoints
	}
	if draft.Project != nil {
		body["project"] = *draft.Project
	}
	if draft.DueDate != nil {
		body["due_date"] = *draft.DueDate
	}
	var out model.Todo
	err := c.doJSON(ctx, http.MethodPost, "/todos/", body, &out)
	return out, err
}

func (c *Client) UpdateTodo(ctx context.Context, id model.ID, patch model.TodoPatch) (model.Todo, error) {
	return c.todoCall(ctx, http.MethodPut, "/todos/{id}", id, todoPatchBody(patch))
}

func todoPatchBody(patch model.TodoPatch) map[string]any {
	body := map[string]any{}
	if patch.Title != nil {
		body["title"] = *patch.Title
	}
	if patch.Description != nil {
		body["description"] = *patch.Description
	}
	if patch.Status != nil {
		body["status"] = *patch.Status
	}
	if patch.AssignedTo != nil {
		body["assigned_to"] = nonNil(*patch.AssignedTo)
	}
	if patch.Tags != nil {
		body["tags"] = nonNil(*patch.Tags)
	}
	if patch.StoryPoints != nil {
		body["story_points"] = *patch.StoryPoints
	}
	if patch.InFocus != nil {
		body["in_focus"] = *patch.InFocus
	}
	if patch.Read != nil {
		body["read"] = *patch.Read
	}
	if patch.Project != nil {
		body["project"] = *patch.Project
	}
	if patch.DueDate != nil {
		body["due_date"] = *patch.DueDate
	}
	if patch.BackgroundImage != nil {
		body["background_image"] = *patch.BackgroundImage
	}
	return body
}

func (c *Client) DeleteTodo(ctx context.Context, id model.ID) error {
	path, err := buildPath("/todos/{id}", "id", id.String())
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) ArchiveTodo(ctx context.Context, id model.ID) (model.Todo, error) {
	return c.todoCall(ctx, http.MethodPost, "/todos/{id}/archive", id, nil)
}

func (c *Client) RestoreTodo(ctx context.Context, id model.ID) (model.Todo, error) {
	return c.todoCall(ctx, http.MethodPost, "/todos/{id}/restore", id, nil)
}

func (c *Client) AddTodoComment(ctx context.Context, id model.ID, text string) (model.Todo, error) {
	return c.todoCall(ctx, http.MethodPost, "/todos/{id}/comments", id, map[string]string{"text": text})
}

func (c *Client) AddChecklistItem(ctx context.Context, todoID model.ID, text string) (model.Todo, error) {
	return c.todoCall(ctx, http.MethodPost, "/todos/{id}/todo-list-items", todoID, map[string]string{"text": text})
}

func (c *Client) SetChecklistItemChecked(ctx context.Context, todoID, itemID model.ID, checked bool) (model.Todo, error) {
	return c.checklistCall(ctx, http.MethodPut, todoID, itemID, map[string]bool{"checked": checked})
}

func (c *Client) DeleteChecklistItem(ctx context.Context, todoID, itemID model.ID) (model.Todo, error) {
	return c.checklistCall(ctx, http.MethodDelete, todoID, itemID, nil)
}

func (c *Client) checklistCall(ctx context.Context, method string, todoID, itemID model.ID, body any) (model.Todo, error) {
	path, err := buildPath("/todos/{id}/todo-list-items/{item_id}", "id", todoID.String(), "item_id", itemID.String())
	if err != nil {
		return model.Todo{}, err
	}
	var out model.Todo
	err = c.doJSON(ctx, method, path, body, &out)
	return out, err
}

func (c *Client) todoCall(ctx context.Context, method, template string, id model.ID, body any) (model.Todo, error) {
	path, err := buildPath(template, "id", id.String())
	if err != nil {
		return model.Todo{}, err
	}
	var out model.Todo
	err = c.doJSON(ctx, method, path, body, &out)
	return out, err
}

func (c *Client) ListColumns(ctx context.Context) ([]model.Column, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/todos/columns", nil, &raw); err != nil {
		return nil, err
	}
	return decodeColumns(raw)
}

// SaveColumns publishes the whole layout. The server may echo it back as
// a bare array or wrapped in {"columns": [...]}; an empty reply keeps
// the layout that was sent.
func (c *Client) SaveColumns(ctx context.Context, columns []model.Column) ([]model.Column, error) {
	var raw json.RawMessage
	body := map[string][]model.Column{"columns": nonNil(columns)}
	if err := c.doJSON(ctx, http.MethodPost, "/todos/columns", body, &raw); err != nil {
		return nil, err
	}
	saved, err := decodeColumns(raw)
	if err != nil {
		return nil, err
	}
	if len(saved) == 0 {
		return columns, nil
	}
	return saved, nil
}

func decodeColumns(raw json.RawMessage) ([]model.Column, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []model.Column
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Columns []model.Column `json:"columns"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, newError(CodeInternal, 0, "decode columns", err)
	}
	return wrapped.Columns, nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
