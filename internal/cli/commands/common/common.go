package common

import (
	"context"
	"io"

	"github.com/simonjohansson/deskboard/internal/session"
)

type Runtime interface {
	Output() string
	// Session returns a resumed session. Callers must Close it.
	Session(ctx context.Context) (*session.Session, error)
}

type HandleResultFunc func(output string, stdout io.Writer, result any, err error) error

type WrapErrorFunc func(status int, message string) error

// Run opens a session, runs fn with it and closes it again. A failure to
// close, such as a column save the server refused, is reported when fn
// itself succeeded.
func Run(ctx context.Context, runtime Runtime, fn func(*session.Session) (any, error)) (any, error) {
	s, err := runtime.Session(ctx)
	if err != nil {
		return nil, err
	}
	result, err := fn(s)
	closeErr := s.Close(ctx)
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, closeErr
	}
	return result, nil
}

// Deleted is the result of a delete command.
func Deleted(id string) map[string]any {
	return map[string]any{"id": id, "deleted": true}
}
