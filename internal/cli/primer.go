package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonjohansson/deskboard/internal/model"
)

func newPrimerCommand(cfg *Config, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "primer",
		Short: "Print concise usage guidance.",
		Long:  "Prints quick command examples and usage conventions for scripting.",
		Example: strings.TrimSpace(`deskboard primer
deskboard --output json primer`),
		RunE: func(_ *cobra.Command, _ []string) error {
			return printPrimer(cfg.Output, stdout)
		},
	}
}

var primerTemplates = [][2]string{
	{"login", "echo \"$PASSWORD\" | deskboard login -u \"$USER\""},
	{"whoami", "deskboard --output json whoami"},
	{"list_tickets", "deskboard --output json ticket ls [--mine] [--status open]"},
	{"create_ticket", "deskboard --output json ticket create -t \"$TITLE\" [--priority high] [--category network]"},
	{"get_ticket", "deskboard --output json ticket get -i \"$ID\""},
	{"update_ticket", "deskboard --output json ticket update -i \"$ID\" -s in_progress"},
	{"assign_ticket", "deskboard --output json ticket assign -i \"$ID\" --user \"$USER_ID\" --name \"$NAME\""},
	{"comment_ticket", "deskboard --output json ticket comment -i \"$ID\" -b \"$BODY\""},
	{"delete_ticket", "deskboard --output json ticket rm -i \"$ID\""},
	{"list_todos", "deskboard --output json todo ls [--status \"$STATUS\"]"},
	{"board", "deskboard --output json todo board"},
	{"create_todo", "deskboard --output json todo create -t \"$TITLE\" [-s \"$STATUS\"]"},
	{"move_todo", "deskboard --output json todo move -i \"$ID\" -s \"$STATUS\""},
	{"archive_todo", "deskboard --output json todo archive -i \"$ID\""},
	{"restore_todo", "deskboard --output json todo restore -i \"$ID\""},
	{"check_item", "deskboard --output json todo item check -i \"$ID\" --item \"$ITEM\" [--off]"},
	{"list_columns", "deskboard --output json column ls"},
	{"add_column", "deskboard --output json column add -t \"$TITLE\" -s \"$STATUS\""},
	{"remove_column", "deskboard --output json column rm \"$COLUMN_ID\""},
	{"watch_events", "deskboard --output json watch [--ticket \"$ID\"] [--todo \"$ID\"]"},
}

func printPrimer(output Output, stdout io.Writer) error {
	executionRules := []string{
		"Prefer `--output json` for any command whose output will be parsed.",
		"Run `login` once; later commands reuse the stored session until `logout` or a 401.",
		"Single-entity operations take `--id` (`-i`).",
		"Todo status is the status key of a board column; list columns first.",
		"Column edits are saved as one layout when the command ends; only staff may save.",
		"`watch` is long-running and must be explicitly stopped by the caller.",
	}

	columns := make([]string, 0, 3)
	for _, c := range model.DefaultColumns() {
		columns = append(columns, c.Status)
	}

	if output == OutputJSON {
		templates := make(map[string]string, len(primerTemplates))
		for _, t := range primerTemplates {
			templates[t[0]] = t[1]
		}
		payload := map[string]any{
			"name":           "deskboard",
			"mode":           "machine",
			"purpose":        "Helpdesk tickets and a shared todo board, kept in sync over websocket.",
			"default_output": "json",
			"usage": map[string]any{
				"global_flags": []string{"--server-url", "--output", "--mode", "--log-level"},
				"commands": []string{
					"login|logout|whoami|register",
					"ticket create|list|get|update|assign|comment|delete",
					"todo create|list|board|get|move|update|archive|restore|comment|delete",
					"todo item add|check|delete",
					"column list|add|update|reorder|delete|reset",
					"watch [--ticket <id>] [--todo <id>]",
					"primer",
				},
			},
			"execution_rules":   executionRules,
			"command_templates": templates,
			"ticket_statuses":   []string{model.TicketStatusOpen, model.TicketStatusInProgress, model.TicketStatusClosed},
			"priorities":        []string{model.PriorityLow, model.PriorityMedium, model.PriorityHigh},
			"default_columns":   columns,
			"roles": map[string]string{
				"admin": "sees and manages everything, deletes tickets",
				"it":    "sees every ticket, assigns, edits the board",
				"user":  "sees and comments on own tickets",
			},
			"error_shape": map[string]any{
				"status": 404,
				"error":  "ticket t-1 not found",
			},
			"watch_event_shape": map[string]any{
				"type":      "ticket_updated",
				"ticket_id": "t-1",
				"ticket":    map[string]any{"id": "t-1", "status": "in_progress"},
			},
		}
		raw, _ := json.Marshal(payload)
		_, _ = fmt.Fprintln(stdout, string(raw))
		return nil
	}

	lines := []string{
		"DESKBOARD PRIMER (MACHINE MODE)",
		"",
		"EXECUTION RULES",
	}
	for i, rule := range executionRules {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, rule))
	}
	lines = append(lines, "", "COMMAND TEMPLATES")
	for _, t := range primerTemplates {
		lines = append(lines, strings.ToUpper(t[0])+": "+t[1])
	}
	lines = append(lines,
		"",
		"TICKET STATUSES: open | in_progress | closed",
		"PRIORITIES: low | medium | high",
		"DEFAULT COLUMNS: "+strings.Join(columns, " | "),
		"",
		"ERROR SHAPE",
		"- JSON: {\"status\":<int>,\"error\":\"<message>\"}",
		"- text: error (<status>): <message>",
		"",
		"WATCH EVENT SHAPE",
		"- {\"type\":\"ticket_updated\",\"ticket_id\":\"t-1\",\"ticket\":{...}}",
	)
	_, _ = fmt.Fprintln(stdout, strings.Join(lines, "\n"))
	return nil
}
