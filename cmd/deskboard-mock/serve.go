package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/simonjohansson/deskboard/internal/mockserver"
	"github.com/simonjohansson/deskboard/internal/model"
	"github.com/simonjohansson/deskboard/pkg/deskconfig"
)

const (
	defaultListenAddr    = "127.0.0.1:8000"
	defaultAdminUsername = "admin"
	defaultAdminPassword = "adminpass1"
)

type runtimeDefaults struct {
	Addr        string
	DataPath    string
	EmailDomain string
	Users       []mockserver.SeedUser
}

type serveOptions struct {
	Addr        string
	DataPath    string
	EmailDomain string
	Users       []mockserver.SeedUser
	Logger      *slog.Logger
}

var runServeFunc = runServe

func loadRuntimeDefaults(home string) (runtimeDefaults, error) {
	cfg, err := deskconfig.LoadOrInit(home)
	if err != nil {
		return runtimeDefaults{}, err
	}
	return runtimeDefaults{
		Addr:        addrFromServerURL(cfg.ServerURL),
		DataPath:    cfg.Mock.DataPath,
		EmailDomain: cfg.EmailDomain,
		Users:       seedUsers(cfg.Mock.Users, cfg.EmailDomain),
	}, nil
}

// seedUsers maps configured accounts, falling back to a single admin so a
// fresh install can log in.
func seedUsers(seeds []deskconfig.UserSeed, emailDomain string) []mockserver.SeedUser {
	if len(seeds) == 0 {
		domain := emailDomain
		if domain == "" {
			domain = "example.com"
		}
		return []mockserver.SeedUser{{
			Username: defaultAdminUsername,
			Email:    defaultAdminUsername + "@" + domain,
			Password: defaultAdminPassword,
			Role:     model.RoleAdmin,
		}}
	}
	out := make([]mockserver.SeedUser, 0, len(seeds))
	for _, s := range seeds {
		out = append(out, mockserver.SeedUser{
			Username: s.Username,
			Email:    s.Email,
			Password: s.Password,
			Role:     model.Role(s.Role),
		})
	}
	return out
}

// addrFromServerURL derives a listen address from the configured API base
// URL; the path is ignored.
func addrFromServerURL(serverURL string) string {
	raw := strings.TrimSpace(serverURL)
	if raw == "" {
		return defaultListenAddr
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return defaultListenAddr
	}

	host := u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr == nil {
		return host
	}

	switch u.Scheme {
	case "https":
		return net.JoinHostPort(host, "443")
	case "http":
		return net.JoinHostPort(host, "80")
	default:
		return defaultListenAddr
	}
}

func newServeCommand(defaults runtimeDefaults) *cobra.Command {
	var (
		addr        = defaults.Addr
		dataPath    = defaults.DataPath
		emailDomain = defaults.EmailDomain
		memory      bool
		logLevel    = "info"
	)

	cmd := &cobra.Command{
		Use:   "deskboard-mock",
		Short: "Serve the helpdesk REST and WebSocket contract for local testing.",
		Long:  "Runs an in-process contract server with tickets, todos, board columns, inventory and a WebSocket event hub under /api/v1.",
		Example: strings.TrimSpace(`deskboard-mock
deskboard-mock --addr 127.0.0.1:8090
deskboard-mock --memory --email-domain example.com`),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			serveAddr := strings.TrimSpace(addr)
			if serveAddr == "" {
				return errors.New("--addr cannot be empty")
			}
			servePath := strings.TrimSpace(dataPath)
			if memory {
				servePath = ""
			} else if servePath == "" {
				return errors.New("--data-path cannot be empty (use --memory for an in-memory store)")
			}

			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("invalid --log-level: %s", logLevel)
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			return runServeFunc(serveOptions{
				Addr:        serveAddr,
				DataPath:    servePath,
				EmailDomain: strings.TrimPrefix(strings.TrimSpace(emailDomain), "@"),
				Users:       defaults.Users,
				Logger:      logger,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", addr, "server listen address")
	cmd.Flags().StringVar(&dataPath, "data-path", dataPath, "sqlite file for tickets, todos and columns")
	cmd.Flags().BoolVar(&memory, "memory", false, "keep all data in memory")
	cmd.Flags().StringVar(&emailDomain, "email-domain", emailDomain, "required domain for registration emails")
	cmd.Flags().StringVar(&logLevel, "log-level", logLevel, "log level: debug|info|warn|error")
	return cmd
}

func runServe(opts serveOptions) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	return runServeWithSignals(opts, sigCh)
}

func runServeWithSignals(opts serveOptions, sigCh <-chan os.Signal) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.DataPath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.DataPath), 0o755); err != nil {
			return fmt.Errorf("create data parent dir failed: %w", err)
		}
	}

	app, err := mockserver.New(mockserver.Options{
		DataPath:    opts.DataPath,
		Users:       opts.Users,
		EmailDomain: opts.EmailDomain,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("init server failed: %w", err)
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			logger.Error("close server failed", "error", closeErr)
		}
	}()

	httpServer := &http.Server{
		Addr:              opts.Addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("starting deskboard mock server", "addr", opts.Addr, "data_path", opts.DataPath, "api_prefix", mockserver.APIPrefix)

	serverErrCh := make(chan error, 1)
	go func() {
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			serverErrCh <- listenErr
			return
		}
		serverErrCh <- nil
	}()

	select {
	case listenErr := <-serverErrCh:
		if listenErr != nil {
			return fmt.Errorf("listen failed: %w", listenErr)
		}
		return nil
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	app.DropConnections(websocket.CloseGoingAway, "server shutting down")
	if err := httpServer.Close(); err != nil {
		return fmt.Errorf("http server close failed: %w", err)
	}
	if listenErr := <-serverErrCh; listenErr != nil {
		return fmt.Errorf("listen failed after shutdown: %w", listenErr)
	}
	logger.Info("server stopped")
	return nil
}
