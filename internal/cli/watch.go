package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/simonjohansson/deskboard/internal/events"
	"github.com/simonjohansson/deskboard/internal/model"
	"github.com/simonjohansson/deskboard/internal/realtime"
	"github.com/simonjohansson/deskboard/internal/session"
)

var errWatchStopped = errors.New("server closed the connection")

func newWatchCommand(runtime commandRuntime, stdout io.Writer) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:     "watch",
		Aliases: []string{"events", "stream"},
		Short:   "Stream realtime events over websocket.",
		Long: strings.TrimSpace(`Connect to the server websocket and print every event until interrupted.
Dropped connections are retried with backoff. Watching ends when the server
rejects the session, closes the socket normally, or retries run out.`),
		Example: strings.TrimSpace(`deskboard watch
deskboard watch --ticket t-1 --ticket t-2
deskboard watch --todo c-7
deskboard events --output json`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			tickets, _ := cmd.Flags().GetStringSlice("ticket")
			todos, _ := cmd.Flags().GetStringSlice("todo")
			filter := newWatchFilter(tickets, todos)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancelCause(ctx)
			defer cancel(nil)

			s, err := runtime.resume(ctx, func(reason string) {
				cancel(&cliError{status: http.StatusUnauthorized, message: "session ended: " + reason})
			})
			if err != nil {
				return toCLIError(err)
			}
			defer func() { _ = s.Close(context.Background()) }()
			if s.Mode() != session.ModeRemote {
				return &cliError{status: http.StatusBadRequest, message: "watch needs remote mode"}
			}

			var mu sync.Mutex
			var writeErr error
			manager := s.Manager()
			manager.OnAny(func(ev events.Event) {
				if !filter.allows(ev) {
					return
				}
				line, err := FormatWatchLine(runtime.cfg.Output, watchFields(ev))
				mu.Lock()
				if err == nil {
					_, err = fmt.Fprintln(stdout, line)
				}
				if err != nil && writeErr == nil {
					writeErr = err
					cancel(&cliError{status: http.StatusInternalServerError, message: err.Error()})
				}
				mu.Unlock()

				if d, ok := ev.(events.Disconnected); ok {
					switch {
					case d.Code == realtime.CloseNormal:
						cancel(errWatchStopped)
					case d.Code != realtime.ClosePolicyViolation && manager.Attempts() >= realtime.DefaultMaxReconnectAttempts:
						cancel(&cliError{status: http.StatusBadGateway, message: "connection lost: " + d.Reason})
					}
				}
			})

			if err := s.Start(ctx); err != nil {
				runtime.logger().Warn("initial load incomplete", "error", err)
			}
			if router := s.Router(); router != nil {
				for _, id := range tickets {
					if id = strings.TrimSpace(id); id != "" {
						router.SubscribeToEntity(model.ID(id))
					}
				}
			}

			<-ctx.Done()
			cause := context.Cause(ctx)
			var cErr *cliError
			if errors.As(cause, &cErr) {
				return cErr
			}
			return nil
		},
	}

	watchCmd.Flags().StringSlice("ticket", nil, "Only print events for this ticket and subscribe to its detail events, repeatable")
	watchCmd.Flags().StringSlice("todo", nil, "Only print events for this todo, repeatable")
	return watchCmd
}

// watchFilter narrows entity events to the requested ids. Events that name
// no entity, such as connection lifecycle events, always pass.
type watchFilter struct {
	tickets map[model.ID]struct{}
	todos   map[model.ID]struct{}
}

func newWatchFilter(tickets, todos []string) watchFilter {
	return watchFilter{tickets: idSet(tickets), todos: idSet(todos)}
}

func idSet(values []string) map[model.ID]struct{} {
	out := make(map[model.ID]struct{}, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out[model.ID(v)] = struct{}{}
		}
	}
	return out
}

func (f watchFilter) allows(ev events.Event) bool {
	if len(f.tickets) == 0 && len(f.todos) == 0 {
		return true
	}
	if id, ok := events.TicketIDOf(ev); ok {
		_, want := f.tickets[id]
		return want
	}
	if id, ok := events.TodoIDOf(ev); ok {
		_, want := f.todos[id]
		return want
	}
	return true
}
