// Package cli is the deskboard command line: one binary that logs in,
// manages tickets, todo cards and board columns, and streams realtime
// events.
package cli

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonjohansson/deskboard/internal/cli/commands/columncmd"
	"github.com/simonjohansson/deskboard/internal/cli/commands/ticketcmd"
	"github.com/simonjohansson/deskboard/internal/cli/commands/todocmd"
	"github.com/simonjohansson/deskboard/internal/session"
)

type globalFlags struct {
	serverURL string
	output    string
	mode      string
	logLevel  string
}

func NewRootCommand(initial Config, stdout, stderr io.Writer) *cobra.Command {
	cfg := initial
	flags := globalFlags{
		serverURL: initial.ServerURL,
		output:    string(initial.Output),
		mode:      initial.Mode,
		logLevel:  initial.LogLevel,
	}
	runtime := commandRuntime{cfg: &cfg, stderr: stderr}

	root := &cobra.Command{
		Use:   "deskboard",
		Short: "Work the helpdesk queue and the team todo board from a terminal.",
		Long: strings.TrimSpace(`deskboard is a client for the helpdesk API:
- tickets with comments, assignment and role-based visibility
- a shared todo board with configurable columns and checklists
- a realtime event stream over websocket

Use deskboard help <command> for command-specific examples.

Global settings:
- --server-url selects the API base (for example http://127.0.0.1:8000/api/v1)
- --mode remote talks to the server; --mode local keeps data in a SQLite file
- --output selects text/json formatting`),
		Example: strings.TrimSpace(`deskboard login -u alice
deskboard ticket create -t "Laptop broken"
deskboard ticket ls --mine
deskboard todo board
deskboard column add -t Review -s review
deskboard watch
deskboard --output json primer`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return applyGlobalFlags(&cfg, flags)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&flags.serverURL, "server-url", flags.serverURL, "API base URL (e.g. http://127.0.0.1:8000/api/v1)")
	root.PersistentFlags().StringVar(&flags.output, "output", flags.output, "Output format: text or json")
	root.PersistentFlags().StringVar(&flags.mode, "mode", flags.mode, "Backend: remote or local")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", flags.logLevel, "Log level on stderr: debug, info, warn or error")

	root.AddCommand(newLoginCommand(runtime, stdout, stderr))
	root.AddCommand(newLogoutCommand(runtime, stdout))
	root.AddCommand(newWhoamiCommand(runtime, stdout))
	root.AddCommand(newRegisterCommand(runtime, stdout, stderr))
	root.AddCommand(newPrimerCommand(&cfg, stdout))
	root.AddCommand(ticketcmd.New(runtime, stdout, handleResultFromString, wrapCLIError))
	root.AddCommand(todocmd.New(runtime, stdout, handleResultFromString, wrapCLIError))
	root.AddCommand(columncmd.New(runtime, stdout, handleResultFromString, wrapCLIError))
	root.AddCommand(newWatchCommand(runtime, stdout))

	return root
}

func applyGlobalFlags(cfg *Config, flags globalFlags) error {
	output := strings.TrimSpace(flags.output)
	if !isValidOutput(output) {
		return &cliError{status: http.StatusBadRequest, message: fmt.Sprintf("invalid --output: %s", output)}
	}
	mode := strings.TrimSpace(flags.mode)
	if !isValidMode(mode) {
		return &cliError{status: http.StatusBadRequest, message: fmt.Sprintf("invalid --mode: %s", mode)}
	}
	logLevel := strings.TrimSpace(flags.logLevel)
	if _, ok := parseLogLevel(logLevel); !ok {
		return &cliError{status: http.StatusBadRequest, message: fmt.Sprintf("invalid --log-level: %s", logLevel)}
	}

	cfg.ServerURL = strings.TrimSpace(flags.serverURL)
	cfg.Output = Output(output)
	cfg.Mode = mode
	cfg.LogLevel = logLevel

	if cfg.ServerURL == "" && cfg.Mode == string(session.ModeRemote) {
		return &cliError{status: http.StatusBadRequest, message: "--server-url cannot be empty"}
	}

	return nil
}

func handleResultFromString(output string, stdout io.Writer, result any, err error) error {
	if !isValidOutput(output) {
		return &cliError{status: http.StatusBadRequest, message: fmt.Sprintf("invalid --output: %s", output)}
	}
	return handleResult(Output(output), stdout, result, err)
}

func wrapCLIError(status int, message string) error {
	return &cliError{status: status, message: message}
}
