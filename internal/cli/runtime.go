package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/simonjohansson/deskboard/internal/session"
	"github.com/simonjohansson/deskboard/pkg/deskconfig"
)

type commandRuntime struct {
	cfg    *Config
	stderr io.Writer
}

func (r commandRuntime) Output() string {
	return string(r.cfg.Output)
}

func (r commandRuntime) logger() *slog.Logger {
	level, _ := parseLogLevel(r.cfg.LogLevel)
	return slog.New(slog.NewTextHandler(r.stderr, &slog.HandlerOptions{Level: level}))
}

// open builds a session from the merged config without logging in.
func (r commandRuntime) open(onLogout func(reason string)) (*session.Session, error) {
	mode := session.Mode(r.cfg.Mode)
	if mode == session.ModeLocal && r.cfg.LocalPath != "" {
		if err := os.MkdirAll(filepath.Dir(r.cfg.LocalPath), 0o755); err != nil {
			return nil, fmt.Errorf("create local data dir failed: %w", err)
		}
	}
	return session.New(session.Options{
		Mode:        mode,
		APIBaseURL:  r.cfg.ServerURL,
		Logger:      r.logger(),
		Credentials: &deskconfig.SessionFile{Path: r.cfg.SessionPath},
		EmailDomain: r.cfg.EmailDomain,
		LocalPath:   r.cfg.LocalPath,
		OnLogout:    onLogout,
	})
}

func (r commandRuntime) Session(ctx context.Context) (*session.Session, error) {
	return r.resume(ctx, nil)
}

func (r commandRuntime) resume(ctx context.Context, onLogout func(reason string)) (*session.Session, error) {
	s, err := r.open(onLogout)
	if err != nil {
		return nil, err
	}
	if _, err := s.Resume(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	return s, nil
}
