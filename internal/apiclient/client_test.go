package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/simonjohansson/deskboard/internal/model"
	"github.com/simonjohansson/deskboard/internal/store"
	"github.com/stretchr/testify/require"
)

var (
	_ store.TicketAPI = (*Client)(nil)
	_ store.TodoAPI   = (*Client)(nil)
	_ store.ColumnAPI = (*Client)(nil)
)

type recorded struct {
	Method      string
	Path        string
	RawPath     string
	Auth        string
	ContentType string
	Body        []byte
}

type recorder struct {
	mu       sync.Mutex
	requests []recorded
}

func (r *recorder) add(req *http.Request) recorded {
	body, _ := io.ReadAll(req.Body)
	rec := recorded{
		Method:      req.Method,
		Path:        req.URL.Path,
		RawPath:     req.URL.EscapedPath(),
		Auth:        req.Header.Get("Authorization"),
		ContentType: req.Header.Get("Content-Type"),
		Body:        body,
	}
	r.mu.Lock()
	r.requests = append(r.requests, rec)
	r.mu.Unlock()
	return rec
}

func (r *recorder) last(t *testing.T) recorded {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.requests)
	return r.requests[len(r.requests)-1]
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, rec recorded)) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler(w, r, rec.add(r))
	}))
	t.Cleanup(srv.Close)

	client, err := New(Options{
		BaseURL: srv.URL + "/api/v1/",
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return client, rec
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	t.Parallel()

	_, err := New(Options{BaseURL: "ftp://host/api/v1"})
	require.Error(t, err)
	_, err = New(Options{BaseURL: ""})
	require.Error(t, err)

	c, err := New(Options{BaseURL: " https://desk.example/api/v1/ "})
	require.NoError(t, err)
	require.Equal(t, "https://desk.example/api/v1", c.BaseURL())
}

func TestLoginStoresTokenAndSendsBearer(t *testing.T) {
	t.Parallel()

	client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request, _ recorded) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			writeJSON(w, http.StatusOK, `{"access_token":"tok-1","token_type":"bearer","user":{"id":3,"username":"ana","role":"it"}}`)
		case "/api/v1/auth/me":
			writeJSON(w, http.StatusOK, `{"id":3,"username":"ana","role":"it"}`)
		default:
			http.NotFound(w, r)
		}
	})

	res, err := client.Login(context.Background(), model.Credentials{Username: "ana", Password: "pw12345678"})
	require.NoError(t, err)
	require.Equal(t, "tok-1", res.AccessToken)
	require.Equal(t, model.ID("3"), res.User.ID)
	require.Equal(t, "tok-1", client.Tokens().Token())
	require.JSONEq(t, `{"username":"ana","password":"pw12345678"}`, string(rec.last(t).Body))

	me, err := client.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.RoleIT, me.Role)
	require.Equal(t, "Bearer tok-1", rec.last(t).Auth)

	_, err = client.Login(context.Background(), model.Credentials{Username: " "})
	require.Equal(t, CodeValidation, CodeOf(err))
}

func TestRegisterValidatesBeforeSending(t *testing.T) {
	t.Parallel()

	client, rec := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ recorded) {
		writeJSON(w, http.StatusCreated, `{"access_token":"fresh"}`)
	})

	_, err := client.Register(context.Background(), model.Registration{Username: "x", Email: "bad", Password: "short"})
	require.Equal(t, CodeValidation, CodeOf(err))
	require.Empty(t, rec.requests)

	res, err := client.Register(context.Background(), model.Registration{
		Username:        "new_user",
		Email:           "new@example.com",
		Password:        "password1",
		ConfirmPassword: "password1",
	})
	require.NoError(t, err)
	require.Equal(t, "fresh", res.AccessToken)
	require.Equal(t, "fresh", client.Tokens().Token())
	require.NotContains(t, string(rec.last(t).Body), "confirm")
}

func TestUnauthorizedClearsTokenAndFiresHook(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ recorded) {
		writeJSON(w, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
	})
	client.Tokens().SetToken("stale")
	fired := 0
	client.SetOnUnauthorized(func() { fired++ })

	_, err := client.ListTickets(context.Background())
	require.Error(t, err)
	require.True(t, IsUnauthorized(err))
	require.Equal(t, http.StatusUnauthorized, StatusOf(err))
	require.Equal(t, "Unauthorized", err.Error())
	require.Empty(t, client.Tokens().Token())
	require.Equal(t, 1, fired)
}

func TestErrorMessageExtraction(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		code   Code
		msg    string
	}{
		{name: "detail string", status: http.StatusNotFound, body: `{"detail":"Ticket not found"}`, code: CodeNotFound, msg: "Ticket not found"},
		{name: "detail list", status: http.StatusUnprocessableEntity, body: `{"detail":[{"msg":"field required"},{"msg":"too short"}]}`, code: CodeValidation, msg: "field required; too short"},
		{name: "message", status: http.StatusConflict, body: `{"message":"already exists"}`, code: CodeConflict, msg: "already exists"},
		{name: "title", status: http.StatusForbidden, body: `{"title":"Forbidden"}`, code: CodeForbidden, msg: "Forbidden"},
		{name: "empty body", status: http.StatusInternalServerError, body: ``, code: CodeInternal, msg: "Request failed with status 500"},
		{name: "not json", status: http.StatusBadGateway, body: `<html>`, code: CodeInternal, msg: "Request failed with status 502"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ recorded) {
				writeJSON(w, tc.status, tc.body)
			})
			_, err := client.GetTicket(context.Background(), "1")
			require.Error(t, err)
			require.Equal(t, tc.code, CodeOf(err))
			require.Equal(t, tc.msg, MessageOf(err))
			require.Equal(t, tc.status, StatusOf(err))
		})
	}
}

func TestNoContentYieldsEmptyResult(t *testing.T) {
	t.Parallel()

	client, rec := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ recorded) {
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, client.DeleteTicket(context.Background(), "12"))
	got := rec.last(t)
	require.Equal(t, http.MethodDelete, got.Method)
	require.Equal(t, "/api/v1/tickets/12", got.Path)

	cols, err := client.SaveColumns(context.Background(), model.DefaultColumns())
	require.NoError(t, err)
	require.Equal(t, model.DefaultColumns(), cols)
}

func TestTransportFailureIsTyped(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client, err := New(Options{BaseURL: base, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	_, err = client.ListTodos(context.Background())
	require.Equal(t, CodeTransport, CodeOf(err))
	require.Equal(t, 0, StatusOf(err))
}

func TestTicketRequestsUseWireNames(t *testing.T) {
	t.Parallel()

	client, rec := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ recorded) {
		writeJSON(w, http.StatusOK, `{"id":9,"title":"Printer","status":"open","comments":[]}`)
	})
	ctx := context.Background()

	_, err := client.CreateTicket(ctx, model.TicketDraft{Title: "Printer", Description: "jammed", Priority: "high"})
	require.NoError(t, err)
	require.JSONEq(t, `{"title":"Printer","description":"jammed","priority":"high"}`, string(rec.last(t).Body))
	require.Equal(t, "/api/v1/tickets/", rec.last(t).Path)

	_, err = client.UpdateTicket(ctx, "9", model.TicketPatch{
		Status:        model.Ptr("in_progress"),
		AssignedTo:    model.Ptr(model.ID("")),
		EstimatedTime: model.Ptr("2h"),
	})
	require.NoError(t, err)
	require.Equal(t, http.MethodPut, rec.last(t).Method)
	require.JSONEq(t, `{"status":"in_progress","assigned_to":null,"estimated_time":"2h"}`, string(rec.last(t).Body))

	_, err = client.UpdateTicket(ctx, "9", model.TicketPatch{AssignedTo: model.Ptr(model.ID("4")), AssignedToName: model.Ptr("bo")})
	require.NoError(t, err)
	require.JSONEq(t, `{"assigned_to":4,"assigned_to_name":"bo"}`, string(rec.last(t).Body))

	ticket, err := client.AddTicketComment(ctx, "9", "on it")
	require.NoError(t, err)
	require.Equal(t, model.ID("9"), ticket.ID)
	require.Equal(t, "/api/v1/tickets/9/comments", rec.last(t).Path)
	require.JSONEq(t, `{"text":"on it"}`, string(rec.last(t).Body))

	_, err = client.MyTickets(ctx)
	require.Error(t, err)
	require.Equal(t, "/api/v1/tickets/my", rec.last(t).Path)
}

func TestPathParamsAreEscaped(t *testing.T) {
	t.Parallel()

	client, rec := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ recorded) {
		writeJSON(w, http.StatusOK, `[]`)
	})
	_, err := client.TodosByStatus(context.Background(), "custom/odd status")
	require.NoError(t, err)
	require.Equal(t, "/api/v1/todos/status/custom%2Fodd%20status", rec.last(t).RawPath)
}

func TestTodoEndpoints(t *testing.T) {
	t.Parallel()

	client, rec := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ recorded) {
		writeJSON(w, http.StatusOK, `{"id":"t1","title":"Card","status":"todo"}`)
	})
	ctx := context.Background()

	cases := []struct {
		name   string
		call   func() error
		method string
		path   string
		body   string
	}{
		{"archive", func() error { _, err := client.ArchiveTodo(ctx, "t1"); return err }, http.MethodPost, "/api/v1/todos/t1/archive", ""},
		{"restore", func() error { _, err := client.RestoreTodo(ctx, "t1"); return err }, http.MethodPost, "/api/v1/todos/t1/restore", ""},
		{"comment", func() error { _, err := client.AddTodoComment(ctx, "t1", "hi"); return err }, http.MethodPost, "/api/v1/todos/t1/comments", `{"text":"hi"}`},
		{"checklist add", func() error { _, err := client.AddChecklistItem(ctx, "t1", "step"); return err }, http.MethodPost, "/api/v1/todos/t1/todo-list-items", `{"text":"step"}`},
		{"checklist check", func() error { _, err := client.SetChecklistItemChecked(ctx, "t1", "i2", true); return err }, http.MethodPut, "/api/v1/todos/t1/todo-list-items/i2", `{"checked":true}`},
		{"checklist delete", func() error { _, err := client.DeleteChecklistItem(ctx, "t1", "i2"); return err }, http.MethodDelete, "/api/v1/todos/t1/todo-list-items/i2", ""},
		{"update", func() error {
			_, err := client.UpdateTodo(ctx, "t1", model.TodoPatch{Status: model.Ptr("done"), AssignedTo: &[]model.ID{}})
			return err
		}, http.MethodPut, "/api/v1/todos/t1", `{"status":"done","assigned_to":[]}`},
		{"create", func() error {
			_, err := client.CreateTodo(ctx, model.TodoDraft{Title: "Card", Status: "todo"})
			return err
		}, http.MethodPost, "/api/v1/todos/", `{"title":"Card","description":"","status":"todo","assigned_to":[],"tags":[]}`},
	}
	for _, tc := range cases {
		require.NoError(t, tc.call(), tc.name)
		got := rec.last(t)
		require.Equal(t, tc.method, got.Method, tc.name)
		require.Equal(t, tc.path, got.Path, tc.name)
		if tc.body == "" {
			require.Empty(t, got.Body, tc.name)
		} else {
			require.JSONEq(t, tc.body, string(got.Body), tc.name)
		}
	}
}

func TestColumnsAcceptBothResponseShapes(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	reply := `[{"column_id":"a","title":"A","status":"a","order_index":"1"}]`
	client, rec := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ recorded) {
		mu.Lock()
		defer mu.Unlock()
		writeJSON(w, http.StatusOK, reply)
	})
	ctx := context.Background()

	cols, err := client.ListColumns(ctx)
	require.NoError(t, err)
	require.Equal(t, []model.Column{{ID: "a", Title: "A", Status: "a", Color: "primary", OrderIndex: 1}}, cols)

	mu.Lock()
	reply = `{"columns":[{"id":"b","title":"B","status":"b","order_index":0}]}`
	mu.Unlock()
	cols, err = client.SaveColumns(ctx, []model.Column{{ID: "b", Title: "B", Status: "b", Color: "muted"}})
	require.NoError(t, err)
	require.Equal(t, model.ID("b"), cols[0].ID)

	var sent struct {
		Columns []map[string]any `json:"columns"`
	}
	require.NoError(t, json.Unmarshal(rec.last(t).Body, &sent))
	require.Len(t, sent.Columns, 1)
	require.Equal(t, "b", sent.Columns[0]["column_id"])
	require.Equal(t, "0", sent.Columns[0]["order_index"])
}

func TestInventoryUsesMultipart(t *testing.T) {
	t.Parallel()

	type form struct {
		fields map[string]string
		file   string
		name   string
	}
	got := make(chan form, 1)
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request, rec recorded) {
		req, _ := http.NewRequest(r.Method, "/", strings.NewReader(string(rec.Body)))
		req.Header.Set("Content-Type", rec.ContentType)
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, `{"detail":"bad form"}`)
			return
		}
		f := form{fields: map[string]string{}}
		for key, values := range req.MultipartForm.Value {
			f.fields[key] = values[0]
		}
		if headers := req.MultipartForm.File["image"]; len(headers) == 1 {
			f.name = headers[0].Filename
			file, _ := headers[0].Open()
			raw, _ := io.ReadAll(file)
			f.file = string(raw)
		}
		got <- f
		writeJSON(w, http.StatusCreated, `{"id":1,"name":"Laptop"}`)
	})

	item, err := client.CreateInventoryItem(context.Background(), model.InventoryDraft{
		Name:       "Laptop",
		Category:   "hardware",
		Location:   "HQ",
		AssignedTo: model.Ptr(model.ID("5")),
		Image:      &model.Upload{Filename: "laptop.png", Content: strings.NewReader("png-bytes")},
	})
	require.NoError(t, err)
	require.Equal(t, "Laptop", item.Name)

	f := <-got
	require.Equal(t, "Laptop", f.fields["name"])
	require.Equal(t, "hardware", f.fields["category"])
	require.Equal(t, "5", f.fields["assigned_to"])
	require.Equal(t, "laptop.png", f.name)
	require.Equal(t, "png-bytes", f.file)
}

func TestErrorHelpersOnPlainErrors(t *testing.T) {
	t.Parallel()

	plain := errors.New("boom")
	require.Equal(t, CodeInternal, CodeOf(plain))
	require.Equal(t, "boom", MessageOf(plain))
	require.Equal(t, 0, StatusOf(plain))
	require.Equal(t, "", MessageOf(nil))

	wrapped := newError(CodeTransport, 0, "", plain)
	require.ErrorIs(t, wrapped, plain)
	require.Equal(t, "boom", wrapped.Error())
	require.Equal(t, "not_found", newError(CodeNotFound, 404, "", nil).Error())
}
