package localstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/simonjohansson/deskboard/internal/model"
)

func ticketRow(t model.Ticket) row {
	return row{id: t.ID, status: t.Status, createdBy: t.CreatedBy, createdAt: t.CreatedAt, updatedAt: t.UpdatedAt, data: t}
}

func (s *Store) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	return listRows[model.Ticket](ctx, s.db, `SELECT data FROM tickets ORDER BY created_at ASC, id ASC`)
}

func (s *Store) GetTicket(ctx context.Context, id model.ID) (model.Ticket, error) {
	return loadRow[model.Ticket](ctx, s.db, "tickets", id)
}

// CreateTicket fills the defaults a new ticket gets: medium priority,
// category other and status open.
func (s *Store) CreateTicket(ctx context.Context, draft model.TicketDraft) (model.Ticket, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return model.Ticket{}, fmt.Errorf("ticket title is required")
	}
	priority := draft.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if _, ok := model.AllowedPriorities[priority]; !ok {
		return model.Ticket{}, fmt.Errorf("invalid priority %q", priority)
	}
	category := draft.Category
	if category == "" {
		category = model.CategoryOther
	}
	actor := s.currentActor()
	now := s.now()
	ticket := model.Ticket{
		ID:             s.nextID(),
		Title:          title,
		Description:    draft.Description,
		Priority:       priority,
		Status:         model.TicketStatusOpen,
		Category:       category,
		CreatedBy:      actor.ID,
		CreatedByName:  actor.Username,
		CreatedByEmail: actor.Email,
		CreatedAt:      now,
		UpdatedAt:      now,
		Comments:       []model.Comment{},
	}
	if err := upsertRow(ctx, s.db, "tickets", ticketRow(ticket)); err != nil {
		return model.Ticket{}, err
	}
	s.logger.Debug("local ticket created", "ticket_id", ticket.ID)
	return ticket, nil
}

func (s *Store) UpdateTicket(ctx context.Context, id model.ID, patch model.TicketPatch) (model.Ticket, error) {
	return s.mutateTicket(ctx, id, func(t *model.Ticket) error {
		if patch.Title != nil {
			if strings.TrimSpace(*patch.Title) == "" {
				return fmt.Errorf("ticket title is required")
			}
			t.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		if patch.Priority != nil {
			if _, ok := model.AllowedPriorities[*patch.Priority]; !ok {
				return fmt.Errorf("invalid priority %q", *patch.Priority)
			}
			t.Priority = *patch.Priority
		}
		if patch.Status != nil {
			if _, ok := model.AllowedTicketStatus[*patch.Status]; !ok {
				return fmt.Errorf("invalid status %q", *patch.Status)
			}
			t.Status = *patch.Status
		}
		if patch.Category != nil {
			t.Category = *patch.Category
		}
		if patch.AssignedTo != nil {
			if patch.AssignedTo.IsZero() {
				t.AssignedTo = nil
				t.AssignedToName = nil
			} else {
				t.AssignedTo = model.Ptr(*patch.AssignedTo)
			}
		}
		if patch.AssignedToName != nil && t.AssignedTo != nil {
			t.AssignedToName = model.Ptr(*patch.AssignedToName)
		}
		if patch.EstimatedTime != nil {
			t.EstimatedTime = model.Ptr(*patch.EstimatedTime)
		}
		return nil
	})
}

func (s *Store) DeleteTicket(ctx context.Context, id model.ID) error {
	return deleteRow(ctx, s.db, "tickets", id)
}

func (s *Store) AddTicketComment(ctx context.Context, id model.ID, text string) (model.Ticket, error) {
	comment, err := s.newComment(text)
	if err != nil {
		return model.Ticket{}, err
	}
	return s.mutateTicket(ctx, id, func(t *model.Ticket) error {
		t.Comments = append(t.Comments, comment)
		return nil
	})
}

func (s *Store) mutateTicket(ctx context.Context, id model.ID, apply func(*model.Ticket) error) (model.Ticket, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ticket, err := loadRow[model.Ticket](ctx, s.db, "tickets", id)
	if err != nil {
		return model.Ticket{}, err
	}
	if err := apply(&ticket); err != nil {
		return model.Ticket{}, err
	}
	ticket.UpdatedAt = s.now()
	if err := upsertRow(ctx, s.db, "tickets", ticketRow(ticket)); err != nil {
		return model.Ticket{}, err
	}
	return ticket, nil
}
