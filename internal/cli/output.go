package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/simonjohansson/deskboard/internal/apiclient"
	"github.com/simonjohansson/deskboard/internal/events"
	"github.com/simonjohansson/deskboard/internal/localstore"
	"github.com/simonjohansson/deskboard/internal/model"
	"github.com/simonjohansson/deskboard/internal/session"
	"github.com/simonjohansson/deskboard/internal/store"
)

type Output string

const (
	OutputText Output = "text"
	OutputJSON Output = "json"
)

type cliError struct {
	status  int
	message string
}

func (e *cliError) Error() string {
	return e.message
}

func isValidOutput(v string) bool {
	return v == string(OutputText) || v == string(OutputJSON)
}

func isValidMode(v string) bool {
	return v == string(session.ModeRemote) || v == string(session.ModeLocal)
}

func parseLogLevel(v string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelWarn, false
	}
}

func FormatError(output Output, status int, message string) string {
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = http.StatusText(status)
	}

	if output == OutputJSON {
		payload := map[string]any{
			"status": status,
			"error":  msg,
		}
		raw, _ := json.Marshal(payload)
		return string(raw)
	}

	return fmt.Sprintf("error (%d): %s", status, msg)
}

// toCLIError maps failures from the session layer to an exit status and
// a message fit for the terminal.
func toCLIError(err error) *cliError {
	var cErr *cliError
	if errors.As(err, &cErr) {
		return cErr
	}

	switch {
	case errors.Is(err, session.ErrNotLoggedIn):
		return &cliError{status: http.StatusUnauthorized, message: err.Error() + " (run: deskboard login)"}
	case errors.Is(err, store.ErrColumnNotFound), errors.Is(err, localstore.ErrNotFound):
		return &cliError{status: http.StatusNotFound, message: err.Error()}
	case errors.Is(err, store.ErrDuplicateStatus):
		return &cliError{status: http.StatusConflict, message: err.Error()}
	case errors.Is(err, store.ErrInvalidColumn), errors.Is(err, store.ErrLastColumn):
		return &cliError{status: http.StatusBadRequest, message: err.Error()}
	}

	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status == 0 {
			status = statusForCode(apiErr.Code)
		}
		return &cliError{status: status, message: apiErr.Error()}
	}

	return &cliError{status: http.StatusInternalServerError, message: err.Error()}
}

func statusForCode(code apiclient.Code) int {
	switch code {
	case apiclient.CodeValidation:
		return http.StatusBadRequest
	case apiclient.CodeUnauthorized:
		return http.StatusUnauthorized
	case apiclient.CodeForbidden:
		return http.StatusForbidden
	case apiclient.CodeNotFound:
		return http.StatusNotFound
	case apiclient.CodeConflict:
		return http.StatusConflict
	case apiclient.CodeTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func handleResult(output Output, stdout io.Writer, result any, err error) error {
	if err != nil {
		return toCLIError(err)
	}

	if output == OutputJSON {
		if result == nil {
			_, _ = fmt.Fprintln(stdout, "{}")
			return nil
		}
		raw, err := json.Marshal(result)
		if err != nil {
			return &cliError{status: http.StatusInternalServerError, message: err.Error()}
		}
		_, _ = fmt.Fprintln(stdout, string(raw))
		return nil
	}

	text := strings.TrimSpace(renderText(result))
	if text == "" {
		text = "ok"
	}
	_, _ = fmt.Fprintln(stdout, text)
	return nil
}

func renderText(result any) string {
	var b strings.Builder
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case model.User:
		writeUser(&b, v)
	case model.Ticket:
		writeTicket(&b, v)
		for _, c := range v.Comments {
			fmt.Fprintf(&b, "  comment %s by %s: %s\n", c.ID, c.AuthorName, c.Text)
		}
	case []model.Ticket:
		for _, t := range v {
			writeTicket(&b, t)
		}
	case model.Todo:
		writeTodo(&b, v)
		for _, item := range v.Checklist {
			mark := " "
			if item.Checked {
				mark = "x"
			}
			fmt.Fprintf(&b, "  [%s] %s %s\n", mark, item.ID, item.Text)
		}
		for _, c := range v.Comments {
			fmt.Fprintf(&b, "  comment %s by %s: %s\n", c.ID, c.AuthorName, c.Text)
		}
	case []model.Todo:
		for _, t := range v {
			writeTodo(&b, t)
		}
	case model.Column:
		writeColumn(&b, v)
	case []model.Column:
		for _, c := range v {
			writeColumn(&b, c)
		}
	case store.Grouping:
		for _, group := range v.Columns {
			fmt.Fprintf(&b, "== %s (%s) [%d]\n", group.Column.Title, group.Column.Status, len(group.Todos))
			for _, t := range group.Todos {
				b.WriteString("  ")
				writeTodo(&b, t)
			}
		}
		if len(v.Unmatched) > 0 {
			fmt.Fprintf(&b, "== unmatched [%d]\n", len(v.Unmatched))
			for _, t := range v.Unmatched {
				b.WriteString("  ")
				writeTodo(&b, t)
			}
		}
	case map[string]any:
		raw, _ := json.Marshal(v)
		return string(raw)
	default:
		return fmt.Sprintf("%v", v)
	}
	return b.String()
}

func writeUser(b *strings.Builder, u model.User) {
	fmt.Fprintf(b, "%s %s role=%s", u.ID, u.Username, u.Role)
	if u.Email != "" {
		fmt.Fprintf(b, " email=%s", u.Email)
	}
	b.WriteString("\n")
}

func writeTicket(b *strings.Builder, t model.Ticket) {
	fmt.Fprintf(b, "%s [%s] %s priority=%s category=%s", t.ID, t.Status, t.Title, t.Priority, t.Category)
	if t.AssignedToName != nil && *t.AssignedToName != "" {
		fmt.Fprintf(b, " assignee=%s", *t.AssignedToName)
	}
	b.WriteString("\n")
}

func writeTodo(b *strings.Builder, t model.Todo) {
	fmt.Fprintf(b, "%s [%s] %s", t.ID, t.Status, t.Title)
	if len(t.Tags) > 0 {
		fmt.Fprintf(b, " tags=%s", strings.Join(t.Tags, ","))
	}
	if len(t.Checklist) > 0 {
		done := 0
		for _, item := range t.Checklist {
			if item.Checked {
				done++
			}
		}
		fmt.Fprintf(b, " checklist=%d/%d", done, len(t.Checklist))
	}
	b.WriteString("\n")
}

func writeColumn(b *strings.Builder, c model.Column) {
	fmt.Fprintf(b, "%d %s %q status=%s color=%s\n", c.OrderIndex, c.ID, c.Title, c.Status, c.Color)
}

// watchFields flattens an event into the fields watch prints.
func watchFields(ev events.Event) map[string]any {
	fields := map[string]any{"type": string(ev.Kind())}
	switch e := ev.(type) {
	case events.Connected:
		fields["message"] = e.Message
	case events.Subscribed:
		fields["ticket_id"] = e.TicketID
	case events.Unsubscribed:
		fields["ticket_id"] = e.TicketID
	case events.TicketCreated:
		fields["ticket_id"] = e.Ticket.ID
		fields["ticket"] = e.Ticket
	case events.TicketUpdated:
		fields["ticket_id"] = e.Ticket.ID
		fields["ticket"] = e.Ticket
	case events.CommentAdded:
		fields["ticket_id"] = e.Ticket.ID
		fields["ticket"] = e.Ticket
	case events.TicketDeleted:
		fields["ticket_id"] = e.TicketID
	case events.TodoCreated:
		fields["todo_id"] = e.Todo.ID
		fields["todo"] = e.Todo
	case events.TodoUpdated:
		fields["todo_id"] = e.Todo.ID
		fields["todo"] = e.Todo
	case events.TodoCommentAdded:
		fields["todo_id"] = e.Todo.ID
		fields["todo"] = e.Todo
	case events.ChecklistItemAdded:
		fields["todo_id"] = e.Todo.ID
		fields["todo"] = e.Todo
	case events.ChecklistItemUpdated:
		fields["todo_id"] = e.Todo.ID
		fields["todo"] = e.Todo
	case events.ChecklistItemDeleted:
		fields["todo_id"] = e.Todo.ID
		fields["todo"] = e.Todo
	case events.TodoDeleted:
		fields["todo_id"] = e.TodoID
	case events.ColumnsUpdated:
		fields["columns"] = e.Columns
	case events.Disconnected:
		fields["code"] = e.Code
		fields["reason"] = e.Reason
	case events.TransportError:
		if e.Err != nil {
			fields["error"] = e.Err.Error()
		}
	}
	return fields
}

func FormatWatchLine(output Output, event map[string]any) (string, error) {
	if output == OutputJSON {
		raw, err := json.Marshal(event)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	parts := make([]string, 0, 4)
	for _, key := range []string{"type", "ticket_id", "todo_id", "code", "reason", "message", "error"} {
		value, ok := event[key]
		if !ok || fmt.Sprintf("%v", value) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", key, value))
	}
	if columns, ok := event["columns"].([]model.Column); ok {
		parts = append(parts, fmt.Sprintf("columns=%d", len(columns)))
	}
	if len(parts) == 0 {
		return "(event)", nil
	}

	return strings.Join(parts, " "), nil
}
