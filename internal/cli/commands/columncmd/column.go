package columncmd

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
	"github.com/simonjohansson/deskboard/internal/store"
)

func New(runtime common.Runtime, stdout io.Writer, handle common.HandleResultFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	columnCmd := &cobra.Command{
		Use:     "column",
		Aliases: []string{"columns", "col"},
		Short:   "Manage the board's columns.",
		Long: strings.TrimSpace(`List, add, rename, recolor, reorder, and remove board columns.
Edits are saved as one layout when the command finishes; the server accepts
layouts from staff only.`),
	}

	// edit loads the layout, applies fn and saves the result before the
	// session closes. Remote writes need a staff role.
	edit := func(cmd *cobra.Command, write bool, fn func(context.Context, *session.Session) (any, error)) error {
		ctx := cmd.Context()
		result, err := common.Run(ctx, runtime, func(s *session.Session) (any, error) {
			if user, _ := s.User(); write && s.Mode() == session.ModeRemote && !user.Role.Privileged() {
				return nil, wrapErr(http.StatusForbidden, "only staff can change the board layout")
			}
			if err := s.Board().Load(ctx); err != nil {
				return nil, err
			}
			out, err := fn(ctx, s)
			if err != nil {
				return nil, err
			}
			if err := s.Board().Flush(ctx); err != nil {
				return nil, err
			}
			return out, nil
		})
		return handle(runtime.Output(), stdout, result, err)
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List columns in board order.",
		Long:    "List the stored layout, or the default columns when none is stored.",
		Example: strings.TrimSpace(`deskboard column ls
deskboard --output json columns ls`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return edit(cmd, false, func(_ context.Context, s *session.Session) (any, error) {
				return s.Board().Columns(), nil
			})
		},
	}

	addCmd := &cobra.Command{
		Use:     "add",
		Aliases: []string{"new"},
		Short:   "Append a column.",
		Long:    "Append a column. Status must be unique on the board; an empty status gets a generated key.",
		Example: strings.TrimSpace(`deskboard column add --title Review --status review
deskboard column add -t Blocked --color muted`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			title, _ := cmd.Flags().GetString("title")
			status, _ := cmd.Flags().GetString("status")
			color, _ := cmd.Flags().GetString("color")
			return edit(cmd, true, func(_ context.Context, s *session.Session) (any, error) {
				return s.Board().AddColumn(title, status, strings.TrimSpace(color))
			})
		},
	}
	addCmd.Flags().StringP("title", "t", "", "Column title")
	addCmd.Flags().StringP("status", "s", "", "Status key cards in this column carry")
	addCmd.Flags().String("color", "", "Color ("+strings.Join(store.ColumnColors, "|")+")")
	_ = addCmd.MarkFlagRequired("title")

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Rename, recolor, or rekey a column.",
		Long:  "Change a column's title, color, status key or background image. Only flags given are applied.",
		Example: strings.TrimSpace(`deskboard column update --id todo --title Backlog
deskboard column update -i done --color muted --background https://example.com/bg.png`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := model.ID(strings.TrimSpace(mustString(cmd, "id")))
			flags := cmd.Flags()
			return edit(cmd, true, func(_ context.Context, s *session.Session) (any, error) {
				board := s.Board()
				var err error
				if flags.Changed("title") {
					err = errors.Join(err, board.RenameColumn(id, mustString(cmd, "title")))
				}
				if flags.Changed("color") {
					err = errors.Join(err, board.SetColor(id, strings.TrimSpace(mustString(cmd, "color"))))
				}
				if flags.Changed("status") {
					err = errors.Join(err, board.SetStatus(id, mustString(cmd, "status")))
				}
				if flags.Changed("background") {
					var image *string
					if value := strings.TrimSpace(mustString(cmd, "background")); value != "" {
						image = &value
					}
					err = errors.Join(err, board.SetBackground(id, image))
				}
				if err != nil {
					return nil, err
				}
				column, _ := board.Column(id)
				return column, nil
			})
		},
	}
	updateCmd.Flags().StringP("id", "i", "", "Column id")
	updateCmd.Flags().StringP("title", "t", "", "New title")
	updateCmd.Flags().String("color", "", "New color")
	updateCmd.Flags().StringP("status", "s", "", "New status key")
	updateCmd.Flags().String("background", "", "Background image URL; empty clears it")
	_ = updateCmd.MarkFlagRequired("id")

	reorderCmd := &cobra.Command{
		Use:   "reorder <column-id>...",
		Short: "Reorder columns.",
		Long:  "Put the columns in the given order. Every column id must be named exactly once.",
		Example: strings.TrimSpace(`deskboard column reorder done in_progress todo`),
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]model.ID, 0, len(args))
			for _, arg := range args {
				ids = append(ids, model.ID(strings.TrimSpace(arg)))
			}
			return edit(cmd, true, func(_ context.Context, s *session.Session) (any, error) {
				if err := s.Board().Reorder(ids); err != nil {
					return nil, err
				}
				return s.Board().Columns(), nil
			})
		},
	}

	removeCmd := &cobra.Command{
		Use:     "delete <column-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a column.",
		Long:    "Remove a column and move its cards into the first remaining column.",
		Example: strings.TrimSpace(`deskboard column rm in_progress`),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := model.ID(strings.TrimSpace(args[0]))
			return edit(cmd, true, func(ctx context.Context, s *session.Session) (any, error) {
				if err := s.Todos().LoadAll(ctx); err != nil {
					return nil, err
				}
				moved, err := s.RemoveColumn(ctx, id)
				if err != nil {
					return nil, err
				}
				return map[string]any{"id": id.String(), "deleted": true, "moved": moved}, nil
			})
		},
	}

	resetCmd := &cobra.Command{
		Use:     "reset",
		Short:   "Restore the default columns.",
		Example: strings.TrimSpace(`deskboard column reset`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return edit(cmd, true, func(_ context.Context, s *session.Session) (any, error) {
				s.Board().Reset()
				return s.Board().Columns(), nil
			})
		},
	}

	columnCmd.AddCommand(listCmd, addCmd, updateCmd, reorderCmd, removeCmd, resetCmd)
	return columnCmd
}

func mustString(cmd *cobra.Command, name string) string {
	value, _ := cmd.Flags().GetString(name)
	return value
}
