package mockserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/simonjohansson/deskboard/internal/localstore"
)

type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string { return e.msg }

func errNotFound(msg string) error  { return &statusError{status: http.StatusNotFound, msg: msg} }
func errConflict(msg string) error  { return &statusError{status: http.StatusConflict, msg: msg} }
func errForbidden(msg string) error { return &statusError{status: http.StatusForbidden, msg: msg} }

func statusForError(err error) int {
	var se *statusError
	switch {
	case errors.As(err, &se):
		return se.status
	case errors.Is(err, localstore.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func toHumaError(err error) error {
	msg := err.Error()
	switch statusForError(err) {
	case http.StatusNotFound:
		return huma.Error404NotFound(msg)
	case http.StatusConflict:
		return huma.Error409Conflict(msg)
	case http.StatusForbidden:
		return huma.Error403Forbidden(msg)
	default:
		return huma.Error400BadRequest(msg)
	}
}

// writeProblem answers native handlers with the same body huma errors use.
func writeProblem(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
