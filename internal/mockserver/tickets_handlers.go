package mockserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/simonjohansson/deskboard/internal/events"
	"github.com/simonjohansson/deskboard/internal/model"
	"github.com/simonjohansson/deskboard/internal/store"
)

func (s *Server) registerTicketOperations() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTickets",
		Method:      http.MethodGet,
		Path:        "/tickets/",
		Summary:     "List tickets visible to the caller",
	}, s.listTickets)

	huma.Register(s.api, huma.Operation{
		OperationID: "myTickets",
		Method:      http.MethodGet,
		Path:        "/tickets/my",
		Summary:     "List tickets created by the caller",
	}, s.myTickets)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTicket",
		Method:      http.MethodGet,
		Path:        "/tickets/{id}",
		Summary:     "Get ticket",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, s.getTicket)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTicket",
		Method:        http.MethodPost,
		Path:          "/tickets/",
		DefaultStatus: http.StatusCreated,
		Summary:       "Create ticket",
		Errors:        []int{http.StatusBadRequest, http.StatusUnprocessableEntity},
	}, s.createTicket)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTicket",
		Method:      http.MethodPut,
		Path:        "/tickets/{id}",
		Summary:     "Update ticket",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, s.updateTicket)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteTicket",
		Method:        http.MethodDelete,
		Path:          "/tickets/{id}",
		DefaultStatus: http.StatusNoContent,
		Summary:       "Delete ticket",
		Errors:        []int{http.StatusForbidden, http.StatusNotFound},
	}, s.deleteTicket)

	huma.Register(s.api, huma.Operation{
		OperationID: "addTicketComment",
		Method:      http.MethodPost,
		Path:        "/tickets/{id}/comments",
		Summary:     "Comment on a ticket",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, s.addTicketComment)
}

func (s *Server) listTickets(ctx context.Context, _ *struct{}) (*output[[]model.Ticket], error) {
	user := userFrom(ctx)
	tickets, err := s.data.ListTickets(ctx)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &output[[]model.Ticket]{Body: store.SelectForRole(tickets, user.Role, user.ID)}, nil
}

func (s *Server) myTickets(ctx context.Context, _ *struct{}) (*output[[]model.Ticket], error) {
	user := userFrom(ctx)
	tickets, err := s.data.ListTickets(ctx)
	if err != nil {
		return nil, toHumaError(err)
	}
	out := make([]model.Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		if ticket.CreatedBy == user.ID {
			out = append(out, ticket)
		}
	}
	return &output[[]model.Ticket]{Body: out}, nil
}

// visibleTicket loads a ticket and applies the same rule as the list.
func (s *Server) visibleTicket(ctx context.Context, user model.User, id string) (model.Ticket, error) {
	ticket, err := s.data.GetTicket(ctx, model.ID(id))
	if err != nil {
		return model.Ticket{}, toHumaError(err)
	}
	if !user.Role.Privileged() && ticket.CreatedBy != user.ID {
		return model.Ticket{}, huma.Error403Forbidden("Not enough permissions")
	}
	return ticket, nil
}

func (s *Server) getTicket(ctx context.Context, input *idInput) (*output[model.Ticket], error) {
	ticket, err := s.visibleTicket(ctx, userFrom(ctx), input.ID)
	if err != nil {
		return nil, err
	}
	return &output[model.Ticket]{Body: ticket}, nil
}

type ticketDraftWire struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
}

func (s *Server) createTicket(ctx context.Context, input *rawInput) (*output[model.Ticket], error) {
	user := userFrom(ctx)
	var body ticketDraftWire
	if err := decodeBody(input.RawBody, &body); err != nil {
		return nil, err
	}
	var ticket model.Ticket
	err := s.mutate(user, func() error {
		var err error
		ticket, err = s.data.CreateTicket(ctx, model.TicketDraft(body))
		return err
	})
	if err != nil {
		return nil, toHumaError(err)
	}
	s.publish(events.TicketCreated{Ticket: ticket})
	return &output[model.Ticket]{Body: ticket}, nil
}

// decodeTicketPatch keeps explicit nulls: a null assignee clears it.
func decodeTicketPatch(raw []byte) (model.TicketPatch, error) {
	var fields map[string]json.RawMessage
	if err := decodeBody(raw, &fields); err != nil {
		return model.TicketPatch{}, err
	}
	var patch model.TicketPatch
	targets := map[string]any{
		"title":            &patch.Title,
		"description":      &patch.Description,
		"priority":         &patch.Priority,
		"status":           &patch.Status,
		"category":         &patch.Category,
		"estimated_time":   &patch.EstimatedTime,
		"assigned_to_name": &patch.AssignedToName,
	}
	for key, target := range targets {
		value, ok := fields[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, target); err != nil {
			return model.TicketPatch{}, huma.Error422UnprocessableEntity("invalid field "+key, err)
		}
	}
	if value, ok := fields["assigned_to"]; ok {
		var id model.ID
		if err := json.Unmarshal(value, &id); err != nil {
			return model.TicketPatch{}, huma.Error422UnprocessableEntity("invalid field assigned_to", err)
		}
		patch.AssignedTo = &id
	}
	if value, ok := fields["assigned_to_name"]; ok && string(value) == "null" {
		patch.AssignedToName = model.Ptr("")
	}
	return patch, nil
}

// Staff may edit any ticket; users only their own, and never the
// assignment.
func (s *Server) updateTicket(ctx context.Context, input *idRawInput) (*output[model.Ticket], error) {
	user := userFrom(ctx)
	if _, err := s.visibleTicket(ctx, user, input.ID); err != nil {
		return nil, err
	}
	patch, err := decodeTicketPatch(input.RawBody)
	if err != nil {
		return nil, err
	}
	if !user.Role.Privileged() && (patch.AssignedTo != nil || patch.AssignedToName != nil) {
		return nil, huma.Error403Forbidden("Not enough permissions")
	}
	var ticket model.Ticket
	err = s.mutate(user, func() error {
		var err error
		ticket, err = s.data.UpdateTicket(ctx, model.ID(input.ID), patch)
		return err
	})
	if err != nil {
		return nil, toHumaError(err)
	}
	s.publish(events.TicketUpdated{Ticket: ticket})
	return &output[model.Ticket]{Body: ticket}, nil
}

func (s *Server) deleteTicket(ctx context.Context, input *idInput) (*struct{}, error) {
	user := userFrom(ctx)
	if err := requireAdmin(user); err != nil {
		return nil, err
	}
	err := s.mutate(user, func() error {
		return s.data.DeleteTicket(ctx, model.ID(input.ID))
	})
	if err != nil {
		return nil, toHumaError(err)
	}
	s.publish(events.TicketDeleted{TicketID: model.ID(input.ID)})
	return nil, nil
}

type commentWire struct {
	Text string `json:"text"`
}

func (s *Server) addTicketComment(ctx context.Context, input *idRawInput) (*output[model.Ticket], error) {
	user := userFrom(ctx)
	var body commentWire
	if err := decodeBody(input.RawBody, &body); err != nil {
		return nil, err
	}
	current, err := s.data.GetTicket(ctx, model.ID(input.ID))
	if err != nil {
		return nil, toHumaError(err)
	}
	if !store.CanComment(current, user.Role, user.ID) {
		return nil, huma.Error403Forbidden("Not enough permissions")
	}
	var ticket model.Ticket
	err = s.mutate(user, func() error {
		var err error
		ticket, err = s.data.AddTicketComment(ctx, current.ID, body.Text)
		return err
	})
	if err != nil {
		return nil, toHumaError(err)
	}
	s.publish(events.CommentAdded{Ticket: ticket})
	return &output[model.Ticket]{Body: ticket}, nil
}
