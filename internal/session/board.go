package session

import (
	"context"

	"github.com/simonjohansson/deskboard/internal/model"
	"github.com/simonjohansson/deskboard/internal/store"
)

// RemoveColumn drops a column and moves its cards into the first
// remaining column. It returns how many cards moved.
func (s *Session) RemoveColumn(ctx context.Context, id model.ID) (int, error) {
	removed, fallback, err := s.board.RemoveColumn(id)
	if err != nil {
		return 0, err
	}
	moved, err := s.todos.MoveAll(ctx, removed.Status, fallback)
	if err != nil {
		s.logger.Warn("move cards out of removed column", "status", removed.Status, "moved", moved, "error", err)
		return moved, err
	}
	return moved, nil
}

// VisibleTickets applies the role rule for the logged-in user.
func (s *Session) VisibleTickets() []model.Ticket {
	user, ok := s.User()
	if !ok {
		return nil
	}
	return s.tickets.SelectForRole(user.Role, user.ID)
}

func (s *Session) VisibleTodos() []model.Todo {
	user, ok := s.User()
	if !ok {
		return nil
	}
	return s.todos.SelectForRole(user.Role, user.ID)
}

// Grouping lays the visible cards out over the current board.
func (s *Session) Grouping() store.Grouping {
	return store.GroupByColumn(s.VisibleTodos(), s.board.Columns())
}

func (s *Session) CanComment(ticket model.Ticket) bool {
	user, ok := s.User()
	if !ok {
		return false
	}
	return store.CanComment(ticket, user.Role, user.ID)
}
