package mockserver

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/simonjohansson/deskboard/internal/events"
	"github.com/simonjohansson/deskboard/internal/model"
)

type statusInput struct {
	Status string `path:"status"`
}

type checklistItemInput struct {
	ID      string `path:"id"`
	ItemID  string `path:"item_id"`
	RawBody []byte
}

type checklistItemPathInput struct {
	ID     string `path:"id"`
	ItemID string `path:"item_id"`
}

type columnsBody struct {
	Columns []model.Column `json:"columns"`
}

func (s *Server) registerTodoOperations() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTodos",
		Method:      http.MethodGet,
		Path:        "/todos/",
		Summary:     "List active todos",
	}, s.listTodos)

	huma.Register(s.api, huma.Operation{
		OperationID: "myTodos",
		Method:      http.MethodGet,
		Path:        "/todos/my",
		Summary:     "List todos created by or assigned to the caller",
	}, s.myTodos)

	huma.Register(s.api, huma.Operation{
		OperationID: "todosByStatus",
		Method:      http.MethodGet,
		Path:        "/todos/status/{status}",
		Summary:     "List todos with a status",
	}, s.todosByStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "listColumns",
		Method:      http.MethodGet,
		Path:        "/todos/columns",
		Summary:     "Board column layout",
	}, s.listColumns)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveColumns",
		Method:      http.MethodPost,
		Path:        "/todos/columns",
		Summary:     "Replace the board column layout",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, s.saveColumns)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTodo",
		Method:      http.MethodGet,
		Path:        "/todos/{id}",
		Summary:     "Get todo",
		Errors:      []int{http.StatusNotFound},
	}, s.getTodo)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTodo",
		Method:        http.MethodPost,
		Path:          "/todos/",
		DefaultStatus: http.StatusCreated,
		Summary:       "Create todo",
		Errors:        []int{http.StatusBadRequest, http.StatusUnprocessableEntity},
	}, s.createTodo)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTodo",
		Method:      http.MethodPut,
		Path:        "/todos/{id}",
		Summary:     "Update todo",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, s.updateTodo)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteTodo",
		Method:        http.MethodDelete,
		Path:          "/todos/{id}",
		DefaultStatus: http.StatusNoContent,
		Summary:       "Delete todo permanently",
		Errors:        []int{http.StatusNotFound},
	}, s.deleteTodo)

	huma.Register(s.api, huma.Operation{
		OperationID: "archiveTodo",
		Method:      http.MethodPost,
		Path:        "/todos/{id}/archive",
		Summary:     "Archive todo",
		Errors:      []int{http.StatusNotFound},
	}, s.archiveTodo)

	huma.Register(s.api, huma.Operation{
		OperationID: "restoreTodo",
		Method:      http.MethodPost,
		Path:        "/todos/{id}/restore",
		Summary:     "Restore an archived todo",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, s.restoreTodo)

	huma.Register(s.api, huma.Operation{
		OperationID: "addTodoComment",
		Method:      http.MethodPost,
		Path:        "/todos/{id}/comments",
		Summary:     "Comment on a todo",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, s.addTodoComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "addChecklistItem",
		Method:      http.MethodPost,
		Path:        "/todos/{id}/todo-list-items",
		Summary:     "Add a checklist item",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, s.addChecklistItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateChecklistItem",
		Method:      http.MethodPut,
		Path:        "/todos/{id}/todo-list-items/{item_id}",
		Summary:     "Check or uncheck a checklist item",
		Errors:      []int{http.StatusNotFound},
	}, s.updateChecklistItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteChecklistItem",
		Method:      http.MethodDelete,
		Path:        "/todos/{id}/todo-list-items/{item_id}",
		Summary:     "Delete a checklist item",
		Errors:      []int{http.StatusNotFound},
	}, s.deleteChecklistItem)
}

func (s *Server) listTodos(ctx context.Context, _ *struct{}) (*output[[]model.Todo], error) {
	todos, err := s.data.ListTodos(ctx)
	if err != nil {
		return nil, toHumaError(err)
	}
	out := make([]model.Todo, 0, len(todos))
	for _, todo := range todos {
		if todo.Status != model.TodoStatusArchived {
			out = append(out, todo)
		}
	}
	return &output[[]model.Todo]{Body: out}, nil
}

func (s *Server) myTodos(ctx context.Context, _ *struct{}) (*output[[]model.Todo], error) {
	user := userFrom(ctx)
	todos, err := s.data.ListTodos(ctx)
	if err != nil {
		return nil, toHumaError(err)
	}
	out := make([]model.Todo, 0, len(todos))
	for _, todo := range todos {
		if todo.Status == model.TodoStatusArchived {
			continue
		}
		if todo.CreatedBy == user.ID || todo.AssignedToUser(user.ID) {
			out = append(out, todo)
		}
	}
	return &output[[]model.Todo]{Body: out}, nil
}

func (s *Server) todosByStatus(ctx context.Context, input *statusInput) (*output[[]model.Todo], error) {
	todos, err := s.data.TodosByStatus(ctx, input.Status)
	if err != nil {
		return nil, toHumaError(err)
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return &output[[]model.Todo]{Body: todos}, nil
}

func (s *Server) listColumns(ctx context.Context, _ *struct{}) (*output[columnsBody], error) {
	columns, err := s.data.ListColumns(ctx)
	if err != nil {
		return nil, toHumaError(err)
	}
	if len(columns) == 0 {
		columns = model.DefaultColumns()
	}
	return &output[columnsBody]{Body: columnsBody{Columns: columns}}, nil
}

func (s *Server) saveColumns(ctx context.Context, input *rawInput) (*output[columnsBody], error) {
	user := userFrom(ctx)
	if err := requirePrivileged(user); err != nil {
		return nil, err
	}
	var body columnsBody
	if err := decodeBody(input.RawBody, &body); err != nil {
		return nil, err
	}
	var saved []model.Column
	err := s.mutate(user, func() error {
		var err error
		saved, err = s.data.SaveColumns(ctx, body.Columns)
		return err
	})
	if err != nil {
		return nil, toHumaError(err)
	}
	s.publish(events.ColumnsUpdated{Columns: saved})
	return &output[columnsBody]{Body: columnsBody{Columns: saved}}, nil
}

func (s *Server) getTodo(ctx context.Context, input *idInput) (*output[model.Todo], error) {
	todo, err := s.data.GetTodo(ctx, model.ID(input.ID))
	if err != nil {
		return nil, toHumaError(err)
	}
	return &output[model.Todo]{Body: todo}, nil
}

type todoDraftWire struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	AssignedTo  []model.ID `json:"assigned_to"`
	Tags        []string   `json:"tags"`
	StoryPoints *int       `json:"story_points"`
	Project     *string    `json:"project"`
	DueDate     *string    `json:"due_date"`
}

func (s *Server) createTodo(ctx context.Context, input *rawInput) (*output[model.Todo], error) {
	user := userFrom(ctx)
	var body todoDraftWire
	if err := decodeBody(input.RawBody, &body); err != nil {
		return nil, err
	}
	var todo model.Todo
	err := s.mutate(user, func() error {
		var err error
		todo, err = s.data.CreateTodo(ctx, model.TodoDraft(body))
		return err
	})
	if err != nil {
		return nil, toHumaError(err)
	}
	s.publish(events.TodoCreated{Todo: todo})
	return &output[model.Todo]{Body: todo}, nil
}

type todoPatchWire struct {
	Title           *string     `json:"title"`
	Description     *string     `json:"description"`
	Status          *string     `json:"status"`
	AssignedTo      *[]model.ID `json:"assigned_to"`
	Tags            *[]string   `json:"tags"`
	StoryPoints     *int        `json:"story_points"`
	InFocus         *bool       `json:"in_focus"`
	Read            *bool       `json:"read"`
	Project         *string     `json:"project"`
	DueDate         *string     `json:"due_date"`
	BackgroundImage *string     `json:"background_image"`
}

func (s *Server) updateTodo(ctx context.Context, input *idRawInput) (*output[model.Todo], error) {
	var body todoPatchWire
	if err := decodeBody(input.RawBody, &body); err != nil {
		return nil, err
	}
	return s.changeTodo(ctx, func() (model.Todo, error) {
		return s.data.UpdateTodo(ctx, model.ID(input.ID), model.TodoPatch(body))
	}, func(todo model.Todo) events.Event { return events.TodoUpdated{Todo: todo} })
}

func (s *Server) deleteTodo(ctx context.Context, input *idInput) (*struct{}, error) {
	err := s.mutate(userFrom(ctx), func() error {
		return s.data.DeleteTodo(ctx, model.ID(input.ID))
	})
	if err != nil {
		return nil, toHumaError(err)
	}
	s.publish(events.TodoDeleted{TodoID: model.ID(input.ID)})
	return nil, nil
}

func (s *Server) archiveTodo(ctx context.Context, input *idInput) (*output[model.Todo], error) {
	return s.changeTodo(ctx, func() (model.Todo, error) {
		return s.data.ArchiveTodo(ctx, model.ID(input.ID))
	}, func(todo model.Todo) events.Event { return events.TodoUpdated{Todo: todo} })
}

func (s *Server) restoreTodo(ctx context.Context, input *idInput) (*output[model.Todo], error) {
	return s.changeTodo(ctx, func() (model.Todo, error) {
		return s.data.RestoreTodo(ctx, model.ID(input.ID))
	}, func(todo model.Todo) events.Event { return events.TodoUpdated{Todo: todo} })
}

func (s *Server) addTodoComment(ctx context.Context, input *idRawInput) (*output[model.Todo], error) {
	var body commentWire
	if err := decodeBody(input.RawBody, &body); err != nil {
		return nil, err
	}
	return s.changeTodo(ctx, func() (model.Todo, error) {
		return s.data.AddTodoComment(ctx, model.ID(input.ID), body.Text)
	}, func(todo model.Todo) events.Event { return events.TodoCommentAdded{Todo: todo} })
}

func (s *Server) addChecklistItem(ctx context.Context, input *idRawInput) (*output[model.Todo], error) {
	var body commentWire
	if err := decodeBody(input.RawBody, &body); err != nil {
		return nil, err
	}
	return s.changeTodo(ctx, func() (model.Todo, error) {
		return s.data.AddChecklistItem(ctx, model.ID(input.ID), body.Text)
	}, func(todo model.Todo) events.Event { return events.ChecklistItemAdded{Todo: todo} })
}

type checkedWire struct {
	Checked bool `json:"checked"`
}

func (s *Server) updateChecklistItem(ctx context.Context, input *checklistItemInput) (*output[model.Todo], error) {
	var body checkedWire
	if err := decodeBody(input.RawBody, &body); err != nil {
		return nil, err
	}
	return s.changeTodo(ctx, func() (model.Todo, error) {
		return s.data.SetChecklistItemChecked(ctx, model.ID(input.ID), model.ID(input.ItemID), body.Checked)
	}, func(todo model.Todo) events.Event { return events.ChecklistItemUpdated{Todo: todo} })
}

func (s *Server) deleteChecklistItem(ctx context.Context, input *checklistItemPathInput) (*output[model.Todo], error) {
	return s.changeTodo(ctx, func() (model.Todo, error) {
		return s.data.DeleteChecklistItem(ctx, model.ID(input.ID), model.ID(input.ItemID))
	}, func(todo model.Todo) events.Event { return events.ChecklistItemDeleted{Todo: todo} })
}

// changeTodo runs a todo mutation as the caller and broadcasts the result.
func (s *Server) changeTodo(ctx context.Context, apply func() (model.Todo, error), event func(model.Todo) events.Event) (*output[model.Todo], error) {
	var todo model.Todo
	err := s.mutate(userFrom(ctx), func() error {
		var err error
		todo, err = apply()
		return err
	})
	if err != nil {
		return nil, toHumaError(err)
	}
	s.publish(event(todo))
	return &output[model.Todo]{Body: todo}, nil
}
