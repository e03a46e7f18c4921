package cli

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/simonjohansson/deskboard/internal/model"
	"github.com/simonjohansson/deskboard/internal/session"
)

func newLoginCommand(runtime commandRuntime, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session.",
		Long: strings.TrimSpace(`Log in against the helpdesk server and store the token for later commands.
Without --password the password is prompted for on a terminal, or read from
the first line of stdin otherwise. In local mode no password is needed; the
username becomes the local actor.`),
		Example: strings.TrimSpace(`deskboard login --username alice
echo "$PASSWORD" | deskboard login -u alice
deskboard --mode local login -u me`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")

			s, err := runtime.open(nil)
			if err != nil {
				return toCLIError(err)
			}
			defer func() { _ = s.Close(cmd.Context()) }()

			if s.Mode() == session.ModeRemote && password == "" {
				password, err = readPassword(cmd.InOrStdin(), stderr)
				if err != nil {
					return &cliError{status: http.StatusBadRequest, message: err.Error()}
				}
			}

			user, err := s.Login(cmd.Context(), username, password)
			return handleResult(runtime.cfg.Output, stdout, user, err)
		},
	}
	cmd.Flags().StringP("username", "u", "", "Username")
	cmd.Flags().StringP("password", "p", "", "Password; prompted for when omitted")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// readPassword prompts without echo on a terminal and reads one line
// otherwise.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(prompt, "Password: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("password is required")
	}
	return line, nil
}

func newLogoutCommand(runtime commandRuntime, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		Short:   "Forget the stored session.",
		Long:    "Clear the stored token and cached profile. Succeeds when no one is logged in.",
		Example: "deskboard logout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := runtime.open(nil)
			if err != nil {
				return toCLIError(err)
			}
			defer func() { _ = s.Close(cmd.Context()) }()
			s.Logout()
			return handleResult(runtime.cfg.Output, stdout, map[string]any{"logged_out": true}, nil)
		},
	}
}

func newWhoamiCommand(runtime commandRuntime, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		Short:   "Print the logged-in user.",
		Long:    "Check the stored token with the server and print the profile behind it.",
		Example: "deskboard --output json whoami",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := runtime.Session(cmd.Context())
			if err != nil {
				return toCLIError(err)
			}
			defer func() { _ = s.Close(cmd.Context()) }()
			user, _ := s.User()
			return handleResult(runtime.cfg.Output, stdout, user, nil)
		},
	}
}

func newRegisterCommand(runtime commandRuntime, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the server.",
		Long: strings.TrimSpace(`Sign up with a username, email and password. The input is checked before
it is sent: usernames are 3 to 30 letters, digits, _ or -; passwords are 8 to
100 characters with at least one letter and one digit; the email must belong
to the configured email domain when one is set.`),
		Example: strings.TrimSpace(`deskboard register -u alice --email alice@example.com`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			username, _ := cmd.Flags().GetString("username")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")

			s, err := runtime.open(nil)
			if err != nil {
				return toCLIError(err)
			}
			defer func() { _ = s.Close(cmd.Context()) }()
			if s.Mode() != session.ModeRemote {
				return &cliError{status: http.StatusBadRequest, message: "register needs remote mode"}
			}

			if password == "" {
				password, err = readPassword(cmd.InOrStdin(), stderr)
				if err != nil {
					return &cliError{status: http.StatusBadRequest, message: err.Error()}
				}
			}
			reg := model.Registration{
				Username:        strings.TrimSpace(username),
				Email:           strings.TrimSpace(email),
				Password:        password,
				ConfirmPassword: password,
			}
			if err := reg.Validate(runtime.cfg.EmailDomain); err != nil {
				return &cliError{status: http.StatusBadRequest, message: err.Error()}
			}

			res, err := s.API().Register(cmd.Context(), reg)
			if err != nil {
				return toCLIError(err)
			}
			var result any = map[string]any{"registered": true}
			if res.User != nil {
				result = *res.User
			}
			return handleResult(runtime.cfg.Output, stdout, result, nil)
		},
	}
	cmd.Flags().StringP("username", "u", "", "Username")
	cmd.Flags().String("email", "", "Email address")
	cmd.Flags().StringP("password", "p", "", "Password; prompted for when omitted")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
