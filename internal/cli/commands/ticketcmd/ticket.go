package ticketcmd

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonjohansson/deskboard/internal/cli/commands/common"
	"github.com/simonjohansson/deskboard/internal/model"
	"github.com/simonjohansson/deskboard/internal/session"
)

func New(runtime common.Runtime, stdout io.Writer, handle common.HandleResultFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	ticketCmd := &cobra.Command{
		Use:     "ticket",
		Aliases: []string{"tickets"},
		Short:   "Manage helpdesk tickets.",
		Long:    "Create, list, get, update, assign, comment on, and delete tickets.",
	}

	run := func(cmd *cobra.Command, fn func(context.Context, *session.Session) (any, error)) error {
		ctx := cmd.Context()
		result, err := common.Run(ctx, runtime, func(s *session.Session) (any, error) {
			return fn(ctx, s)
		})
		return handle(runtime.Output(), stdout, result, err)
	}

	createCmd := &cobra.Command{
		Use:     "create",
		Aliases: []string{"new"},
		Short:   "Open a ticket.",
		Long:    "Open a ticket. Priority defaults to medium and category to other.",
		Example: strings.TrimSpace(`deskboard ticket create --title "Laptop broken"
deskboard tickets new -t "VPN down" --priority high --category network`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			title, _ := cmd.Flags().GetString("title")
			description, _ := cmd.Flags().GetString("description")
			priority, _ := cmd.Flags().GetString("priority")
			category, _ := cmd.Flags().GetString("category")
			draft := model.TicketDraft{
				Title:       strings.TrimSpace(title),
				Description: strings.TrimSpace(description),
				Priority:    strings.TrimSpace(priority),
				Category:    strings.TrimSpace(category),
			}
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				return s.Tickets().Create(ctx, draft)
			})
		},
	}
	createCmd.Flags().StringP("title", "t", "", "Ticket title")
	createCmd.Flags().StringP("description", "d", "", "Ticket description")
	createCmd.Flags().String("priority", "", "Priority (low|medium|high)")
	createCmd.Flags().String("category", "", "Category (hardware|software|network|account|other)")
	_ = createCmd.MarkFlagRequired("title")

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tickets.",
		Long:    "List the tickets the logged-in user may see.",
		Example: strings.TrimSpace(`deskboard ticket ls
deskboard tickets ls --mine --status open`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			mine, _ := cmd.Flags().GetBool("mine")
			status, _ := cmd.Flags().GetString("status")
			status = strings.TrimSpace(status)
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				if err := s.Tickets().LoadAll(ctx); err != nil {
					return nil, err
				}
				user, _ := s.User()
				out := make([]model.Ticket, 0)
				for _, ticket := range s.VisibleTickets() {
					if status != "" && ticket.Status != status {
						continue
					}
					if mine && ticket.CreatedBy != user.ID && !ticket.AssignedToUser(user.ID) {
						continue
					}
					out = append(out, ticket)
				}
				return out, nil
			})
		},
	}
	listCmd.Flags().Bool("mine", false, "Only tickets created by or assigned to me")
	listCmd.Flags().StringP("status", "s", "", "Only tickets with this status")

	getCmd := &cobra.Command{
		Use:     "get",
		Aliases: []string{"show"},
		Short:   "Get one ticket.",
		Long:    "Fetch one ticket with its comments.",
		Example: strings.TrimSpace(`deskboard ticket get --id t-1
deskboard tickets show -i t-1 --output json`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := idFlag(cmd)
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				return visibleTicket(ctx, s, id, wrapErr)
			})
		},
	}
	addIDFlag(getCmd)

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update ticket fields.",
		Long:  "Change any of title, description, priority, status, category and estimate. Only flags given are sent.",
		Example: strings.TrimSpace(`deskboard ticket update --id t-1 --status in_progress
deskboard ticket update -i t-1 --estimate 2h --priority high`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := idFlag(cmd)
			patch := model.TicketPatch{
				Title:         changedString(cmd, "title"),
				Description:   changedString(cmd, "description"),
				Priority:      changedString(cmd, "priority"),
				Status:        changedString(cmd, "status"),
				Category:      changedString(cmd, "category"),
				EstimatedTime: changedString(cmd, "estimate"),
			}
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				return s.Tickets().Update(ctx, id, patch)
			})
		},
	}
	addIDFlag(updateCmd)
	updateCmd.Flags().StringP("title", "t", "", "New title")
	updateCmd.Flags().StringP("description", "d", "", "New description")
	updateCmd.Flags().String("priority", "", "New priority")
	updateCmd.Flags().StringP("status", "s", "", "New status (open|in_progress|closed)")
	updateCmd.Flags().String("category", "", "New category")
	updateCmd.Flags().String("estimate", "", "Estimated time, free text")

	assignCmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign or unassign a ticket.",
		Long:  "Assign a ticket to a user, or clear the assignee with --clear. Staff only.",
		Example: strings.TrimSpace(`deskboard ticket assign --id t-1 --user u-2 --name tech
deskboard ticket assign -i t-1 --clear`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := idFlag(cmd)
			userID, _ := cmd.Flags().GetString("user")
			name, _ := cmd.Flags().GetString("name")
			unassign, _ := cmd.Flags().GetBool("clear")
			if unassign {
				userID, name = "", ""
			} else if strings.TrimSpace(userID) == "" {
				return wrapErr(http.StatusBadRequest, "--user or --clear is required")
			}
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				return s.Tickets().Assign(ctx, id, model.ID(strings.TrimSpace(userID)), strings.TrimSpace(name))
			})
		},
	}
	addIDFlag(assignCmd)
	assignCmd.Flags().String("user", "", "Assignee user id")
	assignCmd.Flags().String("name", "", "Assignee display name")
	assignCmd.Flags().Bool("clear", false, "Remove the assignee")

	commentCmd := &cobra.Command{
		Use:   "comment",
		Short: "Comment on a ticket.",
		Long:  "Append a comment. Users may comment on their own tickets; staff on any.",
		Example: strings.TrimSpace(`deskboard ticket comment --id t-1 --body "Rebooted, still broken"
deskboard ticket comment -i t-1 -b "On my way"`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := idFlag(cmd)
			body, _ := cmd.Flags().GetString("body")
			body = strings.TrimSpace(body)
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				ticket, err := visibleTicket(ctx, s, id, wrapErr)
				if err != nil {
					return nil, err
				}
				if !s.CanComment(ticket) {
					return nil, wrapErr(http.StatusForbidden, "you cannot comment on this ticket")
				}
				return s.Tickets().AddComment(ctx, id, body)
			})
		},
	}
	addIDFlag(commentCmd)
	commentCmd.Flags().StringP("body", "b", "", "Comment text")
	_ = commentCmd.MarkFlagRequired("body")

	deleteCmd := &cobra.Command{
		Use:     "delete",
		Aliases: []string{"rm"},
		Short:   "Delete a ticket.",
		Long:    "Permanently delete a ticket. Admins only.",
		Example: strings.TrimSpace(`deskboard ticket rm --id t-1`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := idFlag(cmd)
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				if err := s.Tickets().Delete(ctx, id); err != nil {
					return nil, err
				}
				return common.Deleted(id.String()), nil
			})
		},
	}
	addIDFlag(deleteCmd)

	ticketCmd.AddCommand(createCmd, listCmd, getCmd, updateCmd, assignCmd, commentCmd, deleteCmd)
	return ticketCmd
}

func visibleTicket(ctx context.Context, s *session.Session, id model.ID, wrapErr common.WrapErrorFunc) (model.Ticket, error) {
	if err := s.Tickets().LoadAll(ctx); err != nil {
		return model.Ticket{}, err
	}
	for _, ticket := range s.VisibleTickets() {
		if ticket.ID == id {
			return ticket, nil
		}
	}
	return model.Ticket{}, wrapErr(http.StatusNotFound, "ticket "+id.String()+" not found")
}

func addIDFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("id", "i", "", "Ticket id")
	_ = cmd.MarkFlagRequired("id")
}

func idFlag(cmd *cobra.Command) model.ID {
	id, _ := cmd.Flags().GetString("id")
	return model.ID(strings.TrimSpace(id))
}

func changedString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	value, _ := cmd.Flags().GetString(name)
	return model.Ptr(strings.TrimSpace(value))
}
