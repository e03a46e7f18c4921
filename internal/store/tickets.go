package store

import (
	"context"
	"log/slog"

	"github.com/simonjohansson/deskboard/internal/model"
)

type TicketStoreOptions struct {
	Logger     *slog.Logger
	Visibility Visibility
}

type TicketStore struct {
	*entities[model.Ticket]
	api        TicketAPI
	visibility Visibility
}

func NewTicketStore(api TicketAPI, opts TicketStoreOptions) *TicketStore {
	visibility := opts.Visibility
	if visibility == "" {
		visibility = VisibilityOwner
	}
	return &TicketStore{
		entities:   newEntities("tickets", opts.Logger, api.ListTickets),
		api:        api,
		visibility: visibility,
	}
}

func (s *TicketStore) Create(ctx context.Context, draft model.TicketDraft) (model.Ticket, error) {
	return s.confirm(s.api.CreateTicket(ctx, draft))
}

func (s *TicketStore) Update(ctx context.Context, id model.ID, patch model.TicketPatch) (model.Ticket, error) {
	return s.confirm(s.api.UpdateTicket(ctx, id, patch))
}

// Assign sets the assignee; an empty userID unassigns.
func (s *TicketStore) Assign(ctx context.Context, id model.ID, userID model.ID, userName string) (model.Ticket, error) {
	patch := model.TicketPatch{AssignedTo: model.Ptr(userID), AssignedToName: model.Ptr(userName)}
	return s.Update(ctx, id, patch)
}

func (s *TicketStore) SetStatus(ctx context.Context, id model.ID, status string) (model.Ticket, error) {
	return s.Update(ctx, id, model.TicketPatch{Status: model.Ptr(status)})
}

func (s *TicketStore) SetEstimatedTime(ctx context.Context, id model.ID, estimate string) (model.Ticket, error) {
	return s.Update(ctx, id, model.TicketPatch{EstimatedTime: model.Ptr(estimate)})
}

func (s *TicketStore) AddComment(ctx context.Context, id model.ID, text string) (model.Ticket, error) {
	return s.confirm(s.api.AddTicketComment(ctx, id, text))
}

func (s *TicketStore) Delete(ctx context.Context, id model.ID) error {
	if err := s.api.DeleteTicket(ctx, id); err != nil {
		return err
	}
	s.ApplyRemoteDelete(id)
	return nil
}

// Comments returns the embedded comment list of a ticket.
func (s *TicketStore) Comments(id model.ID) []model.Comment {
	ticket, ok := s.Get(id)
	if !ok {
		return nil
	}
	out := make([]model.Comment, len(ticket.Comments))
	copy(out, ticket.Comments)
	return out
}

// SelectForRole returns the tickets role may see under the store's
// visibility rule.
func (s *TicketStore) SelectForRole(role model.Role, userID model.ID) []model.Ticket {
	if s.visibility == VisibilityTriage {
		return selectTicketsTriage(s.All(), role, userID)
	}
	return SelectForRole(s.All(), role, userID)
}
