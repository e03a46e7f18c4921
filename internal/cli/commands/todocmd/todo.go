package todocmd

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonjohansson/deskboard/internal/cli/commands/common"
	"github.com/simonjohansson/deskboard/internal/model"
	"github.com/simonjohansson/deskboard/internal/session"
)

func New(runtime common.Runtime, stdout io.Writer, handle common.HandleResultFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	todoCmd := &cobra.Command{
		Use:     "todo",
		Aliases: []string{"todos", "card"},
		Short:   "Manage cards on the todo board.",
		Long:    "Create, list, move, archive, restore, comment on, and delete todo cards and their checklist items.",
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
		Short:   "Create a card.",
		Long:    "Create a card. Status picks the column; it defaults to todo.",
		Example: strings.TrimSpace(`deskboard todo create --title "Order toner"
deskboard todos new -t "Patch servers" -s in_progress --tag ops --points 3`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			title, _ := cmd.Flags().GetString("title")
			description, _ := cmd.Flags().GetString("description")
			status, _ := cmd.Flags().GetString("status")
			tags, _ := cmd.Flags().GetStringSlice("tag")
			assignees, _ := cmd.Flags().GetStringSlice("assign")
			draft := model.TodoDraft{
				Title:       strings.TrimSpace(title),
				Description: strings.TrimSpace(description),
				Status:      strings.TrimSpace(status),
				Tags:        tags,
				AssignedTo:  toIDs(assignees),
			}
			if cmd.Flags().Changed("points") {
				points, _ := cmd.Flags().GetInt("points")
				draft.StoryPoints = model.Ptr(points)
			}
			if value := strings.TrimSpace(mustString(cmd, "project")); value != "" {
				draft.Project = model.Ptr(value)
			}
			if value := strings.TrimSpace(mustString(cmd, "due")); value != "" {
				draft.DueDate = model.Ptr(value)
			}
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				return s.Todos().Create(ctx, draft)
			})
		},
	}
	createCmd.Flags().StringP("title", "t", "", "Card title")
	createCmd.Flags().StringP("description", "d", "", "Card description")
	createCmd.Flags().StringP("status", "s", "", "Column status")
	createCmd.Flags().StringSlice("tag", nil, "Tag, repeatable")
	createCmd.Flags().StringSlice("assign", nil, "Assignee user id, repeatable")
	createCmd.Flags().Int("points", 0, "Story points")
	createCmd.Flags().String("project", "", "Project name")
	createCmd.Flags().String("due", "", "Due date (YYYY-MM-DD)")
	_ = createCmd.MarkFlagRequired("title")

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List cards.",
		Long:    "List the cards the logged-in user may see.",
		Example: strings.TrimSpace(`deskboard todo ls
deskboard todos ls --status done --mine`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			mine, _ := cmd.Flags().GetBool("mine")
			status := strings.TrimSpace(mustString(cmd, "status"))
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				if err := s.Todos().LoadAll(ctx); err != nil {
					return nil, err
				}
				user, _ := s.User()
				out := make([]model.Todo, 0)
				for _, todo := range s.VisibleTodos() {
					if status != "" && todo.Status != status {
						continue
					}
					if mine && todo.CreatedBy != user.ID && !todo.AssignedToUser(user.ID) {
						continue
					}
					out = append(out, todo)
				}
				return out, nil
			})
		},
	}
	listCmd.Flags().Bool("mine", false, "Only cards created by or assigned to me")
	listCmd.Flags().StringP("status", "s", "", "Only cards with this status")

	boardCmd := &cobra.Command{
		Use:   "board",
		Short: "Show cards grouped by column.",
		Long:  "Lay the visible cards out over the board's columns. Cards whose status matches no column are listed as unmatched.",
		Example: strings.TrimSpace(`deskboard todo board
deskboard --output json todo board`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				if err := errors.Join(s.Todos().LoadAll(ctx), s.Board().Load(ctx)); err != nil {
					return nil, err
				}
				return s.Grouping(), nil
			})
		},
	}

	getCmd := &cobra.Command{
		Use:     "get",
		Aliases: []string{"show"},
		Short:   "Get one card.",
		Long:    "Fetch one card with its checklist and comments.",
		Example: strings.TrimSpace(`deskboard todo get --id c-1`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := idFlag(cmd)
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				if err := s.Todos().LoadAll(ctx); err != nil {
					return nil, err
				}
				for _, todo := range s.VisibleTodos() {
					if todo.ID == id {
						return todo, nil
					}
				}
				return nil, wrapErr(http.StatusNotFound, "todo "+id.String()+" not found")
			})
		},
	}
	addIDFlag(getCmd)

	moveCmd := &cobra.Command{
		Use:   "move",
		Short: "Move a card to another column.",
		Long:  "Set the card's status to the status of the target column.",
		Example: strings.TrimSpace(`deskboard todo move --id c-1 --status done
deskboard todo move -i c-1 -s in_progress`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := idFlag(cmd)
			status := strings.TrimSpace(mustString(cmd, "status"))
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				return s.Todos().Move(ctx, id, status)
			})
		},
	}
	addIDFlag(moveCmd)
	moveCmd.Flags().StringP("status", "s", "", "Target column status")
	_ = moveCmd.MarkFlagRequired("status")

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update card fields.",
		Long:  "Change card fields. Only flags given are sent; --tag and --assign replace the whole list.",
		Example: strings.TrimSpace(`deskboard todo update --id c-1 --title "Order toner (black)"
deskboard todo update -i c-1 --focus --points 5`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := idFlag(cmd)
			patch := model.TodoPatch{
				Title:       changedString(cmd, "title"),
				Description: changedString(cmd, "description"),
				Project:     changedString(cmd, "project"),
				DueDate:     changedString(cmd, "due"),
			}
			if cmd.Flags().Changed("tag") {
				tags, _ := cmd.Flags().GetStringSlice("tag")
				patch.Tags = &tags
			}
			if cmd.Flags().Changed("assign") {
				assignees, _ := cmd.Flags().GetStringSlice("assign")
				ids := toIDs(assignees)
				patch.AssignedTo = &ids
			}
			if cmd.Flags().Changed("points") {
				points, _ := cmd.Flags().GetInt("points")
				patch.StoryPoints = model.Ptr(points)
			}
			if cmd.Flags().Changed("focus") {
				focus, _ := cmd.Flags().GetBool("focus")
				patch.InFocus = model.Ptr(focus)
			}
			if cmd.Flags().Changed("read") {
				read, _ := cmd.Flags().GetBool("read")
				patch.Read = model.Ptr(read)
			}
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				return s.Todos().Update(ctx, id, patch)
			})
		},
	}
	addIDFlag(updateCmd)
	updateCmd.Flags().StringP("title", "t", "", "New title")
	updateCmd.Flags().StringP("description", "d", "", "New description")
	updateCmd.Flags().StringSlice("tag", nil, "Tags, replaces the list")
	updateCmd.Flags().StringSlice("assign", nil, "Assignee user ids, replaces the list")
	updateCmd.Flags().Int("points", 0, "Story points")
	updateCmd.Flags().Bool("focus", false, "Mark the card in focus")
	updateCmd.Flags().Bool("read", false, "Mark the card read")
	updateCmd.Flags().String("project", "", "Project name")
	updateCmd.Flags().String("due", "", "Due date (YYYY-MM-DD)")

	archiveCmd := &cobra.Command{
		Use:     "archive",
		Short:   "Archive a card.",
		Long:    "Hide a card from the board without deleting it.",
		Example: strings.TrimSpace(`deskboard todo archive --id c-1`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := idFlag(cmd)
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				return s.Todos().Archive(ctx, id)
			})
		},
	}
	addIDFlag(archiveCmd)

	restoreCmd := &cobra.Command{
		Use:     "restore",
		Short:   "Restore an archived card.",
		Long:    "Put an archived card back on the board.",
		Example: strings.TrimSpace(`deskboard todo restore --id c-1`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := idFlag(cmd)
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				return s.Todos().Restore(ctx, id)
			})
		},
	}
	addIDFlag(restoreCmd)

	commentCmd := &cobra.Command{
		Use:     "comment",
		Short:   "Comment on a card.",
		Long:    "Append a comment to a card.",
		Example: strings.TrimSpace(`deskboard todo comment --id c-1 --body "Ordered"`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := idFlag(cmd)
			body := strings.TrimSpace(mustString(cmd, "body"))
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				return s.Todos().AddComment(ctx, id, body)
			})
		},
	}
	addIDFlag(commentCmd)
	commentCmd.Flags().StringP("body", "b", "", "Comment text")
	_ = commentCmd.MarkFlagRequired("body")

	deleteCmd := &cobra.Command{
		Use:     "delete",
		Aliases: []string{"rm"},
		Short:   "Delete a card.",
		Long:    "Permanently delete a card. Use archive to hide it instead.",
		Example: strings.TrimSpace(`deskboard todo rm --id c-1`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := idFlag(cmd)
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				if err := s.Todos().Delete(ctx, id); err != nil {
					return nil, err
				}
				return common.Deleted(id.String()), nil
			})
		},
	}
	addIDFlag(deleteCmd)

	todoCmd.AddCommand(createCmd, listCmd, boardCmd, getCmd, moveCmd, updateCmd, archiveCmd, restoreCmd, commentCmd, deleteCmd)
	todoCmd.AddCommand(newItemCommand(run))
	return todoCmd
}

func newItemCommand(run func(*cobra.Command, func(context.Context, *session.Session) (any, error)) error) *cobra.Command {
	itemCmd := &cobra.Command{
		Use:     "item",
		Aliases: []string{"items", "checklist"},
		Short:   "Manage a card's checklist.",
		Long:    "Add, check, uncheck, and remove checklist items. Every command prints the whole card.",
	}

	addCmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a checklist item.",
		Example: strings.TrimSpace(`deskboard todo item add --id c-1 --text "black"`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := idFlag(cmd)
			text := strings.TrimSpace(mustString(cmd, "text"))
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				return s.Todos().AddChecklistItem(ctx, id, text)
			})
		},
	}
	addIDFlag(addCmd)
	addCmd.Flags().String("text", "", "Item text")
	_ = addCmd.MarkFlagRequired("text")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check or uncheck a checklist item.",
		Example: strings.TrimSpace(`deskboard todo item check --id c-1 --item i-1
deskboard todo item check -i c-1 --item i-1 --off`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := idFlag(cmd)
			item := model.ID(strings.TrimSpace(mustString(cmd, "item")))
			off, _ := cmd.Flags().GetBool("off")
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				return s.Todos().SetChecklistItemChecked(ctx, id, item, !off)
			})
		},
	}
	addIDFlag(checkCmd)
	checkCmd.Flags().String("item", "", "Checklist item id")
	checkCmd.Flags().Bool("off", false, "Uncheck instead")
	_ = checkCmd.MarkFlagRequired("item")

	removeCmd := &cobra.Command{
		Use:     "delete",
		Aliases: []string{"rm"},
		Short:   "Remove a checklist item.",
		Example: strings.TrimSpace(`deskboard todo item rm --id c-1 --item i-1`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := idFlag(cmd)
			item := model.ID(strings.TrimSpace(mustString(cmd, "item")))
			return run(cmd, func(ctx context.Context, s *session.Session) (any, error) {
				return s.Todos().DeleteChecklistItem(ctx, id, item)
			})
		},
	}
	addIDFlag(removeCmd)
	removeCmd.Flags().String("item", "", "Checklist item id")
	_ = removeCmd.MarkFlagRequired("item")

	itemCmd.AddCommand(addCmd, checkCmd, removeCmd)
	return itemCmd
}

func addIDFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("id", "i", "", "Card id")
	_ = cmd.MarkFlagRequired("id")
}

func idFlag(cmd *cobra.Command) model.ID {
	return model.ID(strings.TrimSpace(mustString(cmd, "id")))
}

func mustString(cmd *cobra.Command, name string) string {
	value, _ := cmd.Flags().GetString(name)
	return value
}

func changedString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return model.Ptr(strings.TrimSpace(mustString(cmd, name)))
}

func toIDs(values []string) []model.ID {
	out := make([]model.ID, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, model.ID(v))
		}
	}
	return out
}
