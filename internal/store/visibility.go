package store

import "github.com/simonjohansson/deskboard/internal/model"

// Visibility selects which rule decides what a role may see.
type Visibility string

const (
	// VisibilityOwner: admin and it see everything, users see what they
	// created.
	VisibilityOwner Visibility = "owner"
	// VisibilityTriage is the rule of the local-first mode: it staff see
	// tickets assigned to them plus every open ticket.
	VisibilityTriage Visibility = "triage"
)

// SelectForRole filters items at read time. The input is not modified.
func SelectForRole[T Entity](items []T, role model.Role, userID model.ID) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if role.Privileged() || item.CreatorID() == userID {
			out = append(out, item)
		}
	}
	return out
}

func selectTicketsTriage(items []model.Ticket, role model.Role, userID model.ID) []model.Ticket {
	out := make([]model.Ticket, 0, len(items))
	for _, ticket := range items {
		switch role {
		case model.RoleAdmin:
			out = append(out, ticket)
		case model.RoleIT:
			if ticket.AssignedToUser(userID) || ticket.Status == model.TicketStatusOpen {
				out = append(out, ticket)
			}
		default:
			if ticket.CreatedBy == userID {
				out = append(out, ticket)
			}
		}
	}
	return out
}

// CanComment reports whether a user may comment on a ticket.
func CanComment(ticket model.Ticket, role model.Role, userID model.ID) bool {
	return role.Privileged() || ticket.CreatedBy == userID
}
