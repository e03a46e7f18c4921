package apiclient

import (
	"context"
	"net/http"

	"github.com/simonjohansson/deskboard/internal/model"
)

func (c *Client) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	return c.listTickets(ctx, "/tickets/")
}

// MyTickets lists the tickets created by the current user.
func (c *Client) MyTickets(ctx context.Context) ([]model.Ticket, error) {
	return c.listTickets(ctx, "/tickets/my")
}

func (c *Client) listTickets(ctx context.Context, path string) ([]model.Ticket, error) {
	var out []model.Ticket
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTicket(ctx context.Context, id model.ID) (model.Ticket, error) {
	path, err := buildPath("/tickets/{id}", "id", id.String())
	if err != nil {
		return model.Ticket{}, err
	}
	var out model.Ticket
	err = c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) CreateTicket(ctx context.Context, draft model.TicketDraft) (model.Ticket, error) {
	body := map[string]any{
		"title":       draft.Title,
		"description": draft.Description,
	}
	if draft.Priority != "" {
		body["priority"] = draft.Priority
	}
	if draft.Category != "" {
		body["category"] = draft.Category
	}
	var out model.Ticket
	err := c.doJSON(ctx, http.MethodPost, "/tickets/", body, &out)
	return out, err
}

func (c *Client) UpdateTicket(ctx context.Context, id model.ID, patch model.TicketPatch) (model.Ticket, error) {
	path, err := buildPath("/tickets/{id}", "id", id.String())
	if err != nil {
		return model.Ticket{}, err
	}
	var out model.Ticket
	err = c.doJSON(ctx, http.MethodPut, path, ticketPatchBody(patch), &out)
	return out, err
}

// ticketPatchBody sends only the fields set on patch. An empty assignee
// clears the assignment.
func ticketPatchBody(patch model.TicketPatch) map[string]any {
	body := map[string]any{}
	if patch.Title != nil {
		body["title"] = *patch.Title
	}
	if patch.Description != nil {
		body["description"] = *patch.Description
	}
	if patch.Priority != nil {
		body["priority"] = *patch.Priority
	}
	if patch.Status != nil {
		body["status"] = *patch.Status
	}
	if patch.Category != nil {
		body["category"] = *patch.Category
	}
	if patch.AssignedTo != nil {
		if patch.AssignedTo.IsZero() {
			body["assigned_to"] = nil
		} else {
			body["assigned_to"] = *patch.AssignedTo
		}
	}
	if patch.AssignedToName != nil {
		if *patch.AssignedToName == "" {
			body["assigned_to_name"] = nil
		} else {
			body["assigned_to_name"] = *patch.AssignedToName
		}
	}
	if patch.EstimatedTime != nil {
		body["estimated_time"] = *patch.EstimatedTime
	}
	return body
}

func (c *Client) DeleteTicket(ctx context.Context, id model.ID) error {
	path, err := buildPath("/tickets/{id}", "id", id.String())
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) AddTicketComment(ctx context.Context, id model.ID, text string) (model.Ticket, error) {
	path, err := buildPath("/tickets/{id}/comments", "id", id.String())
	if err != nil {
		return model.Ticket{}, err
	}
	var out model.Ticket
	err = c.doJSON(ctx, http.MethodPost, path, map[string]string{"text": text}, &out)
	return out, err
}
