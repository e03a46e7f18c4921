// Package session wires the connection manager, the subscription router
// and the entity stores to one backend, and owns the login lifecycle.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/simonjohansson/deskboard/internal/apiclient"
	"github.com/simonjohansson/deskboard/internal/clock"
	"github.com/simonjohansson/deskboard/internal/events"
	"github.com/simonjohansson/deskboard/internal/localstore"
	"github.com/simonjohansson/deskboard/internal/model"
	"github.com/simonjohansson/deskboard/internal/realtime"
	"github.com/simonjohansson/deskboard/internal/store"
	"github.com/simonjohansson/deskboard/internal/subscription"
)

type Mode string

const (
	// ModeRemote confirms every mutation with the server and follows the
	// websocket for changes made elsewhere.
	ModeRemote Mode = "remote"
	// ModeLocal persists to a SQLite file and never talks to a server.
	ModeLocal Mode = "local"
)

const resyncTimeout = 30 * time.Second

var ErrNotLoggedIn = errors.New("not logged in")

// Credentials persists the token and the cached profile between runs.
type Credentials interface {
	LoadSession() (token string, user *model.User, err error)
	SaveSession(token string, user model.User) error
	ClearSession() error
}

type Options struct {
	Mode        Mode
	APIBaseURL  string
	HTTPClient  *http.Client
	Dialer      realtime.Dialer
	Clock       clock.Clock
	Logger      *slog.Logger
	Credentials Credentials
	EmailDomain string
	SaveDelay   time.Duration

	// LocalPath is the SQLite file used in local mode.
	LocalPath string
	// LocalRole is the role a local login acts with. Defaults to admin.
	LocalRole model.Role

	// OnLogout runs after a logout the user did not ask for.
	OnLogout func(reason string)
}

type backend interface {
	store.TicketAPI
	store.TodoAPI
	store.ColumnAPI
}

type Session struct {
	mode      Mode
	clock     clock.Clock
	logger    *slog.Logger
	creds     Credentials
	onLogout  func(string)
	localRole model.Role

	api     *apiclient.Client
	local   *localstore.Store
	manager *realtime.Manager

	tickets *store.TicketStore
	todos   *store.TodoStore
	board   *store.Board

	// bg scopes background resyncs; Close cancels it and waits for them.
	bg       context.Context
	stopBg   context.CancelFunc
	resyncWG sync.WaitGroup

	mu      sync.Mutex
	user    *model.User
	router  *subscription.Router
	started bool
	resync  bool
	closed  bool
}

func New(opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeRemote
	}
	s := &Session{
		mode:      mode,
		clock:     clk,
		logger:    logger,
		creds:     opts.Credentials,
		onLogout:  opts.OnLogout,
		localRole: opts.LocalRole,
	}
	s.bg, s.stopBg = context.WithCancel(context.Background())
	if s.localRole == "" {
		s.localRole = model.RoleAdmin
	}

	var (
		be         backend
		visibility store.Visibility
	)
	switch mode {
	case ModeRemote:
		api, err := apiclient.New(apiclient.Options{
			BaseURL:        opts.APIBaseURL,
			HTTPClient:     opts.HTTPClient,
			Logger:         logger.With("component", "api"),
			EmailDomain:    opts.EmailDomain,
			OnUnauthorized: func() { s.forceLogout("unauthorized") },
		})
		if err != nil {
			return nil, err
		}
		s.api = api
		s.manager = realtime.New(realtime.Options{
			APIBaseURL: api.BaseURL(),
			Dialer:     opts.Dialer,
			Clock:      clk,
			Logger:     logger.With("component", "realtime"),
		})
		be = api
		visibility = store.VisibilityOwner
	case ModeLocal:
		local, err := localstore.Open(localstore.Options{
			Path:   opts.LocalPath,
			Clock:  clk,
			Logger: logger.With("component", "localstore"),
		})
		if err != nil {
			return nil, err
		}
		s.local = local
		be = local
		visibility = store.VisibilityTriage
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	s.tickets = store.NewTicketStore(be, store.TicketStoreOptions{Logger: logger, Visibility: visibility})
	s.todos = store.NewTodoStore(be, logger)
	s.board = store.NewBoard(be, store.BoardOptions{
		Clock:     clk,
		Logger:    logger,
		SaveDelay: opts.SaveDelay,
		OnSaveError: func(err error) {
			logger.Warn("column layout not saved", "error", err)
		},
	})
	return s, nil
}

func (s *Session) Mode() Mode { return s.mode }

// API is nil in local mode.
func (s *Session) API() *apiclient.Client { return s.api }

// Manager is nil in local mode.
func (s *Session) Manager() *realtime.Manager { return s.manager }

func (s *Session) Tickets() *store.TicketStore { return s.tickets }

func (s *Session) Todos() *store.TodoStore { return s.todos }

func (s *Session) Board() *store.Board { return s.board }

// Router returns the subscription router of a started remote session.
func (s *Session) Router() *subscription.Router {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.router
}

func (s *Session) User() (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// Login authenticates and persists the session. In local mode there is no
// server; the username becomes the local actor.
func (s *Session) Login(ctx context.Context, username, password string) (model.User, error) {
	username = strings.TrimSpace(username)
	if s.mode == ModeLocal {
		if username == "" {
			return model.User{}, fmt.Errorf("username is required")
		}
		user := model.User{ID: model.ID(username), Username: username, Role: s.localRole}
		s.local.SetActor(user)
		s.setUser(&user)
		s.save("", user)
		return user, nil
	}

	res, err := s.api.Login(ctx, model.Credentials{Username: username, Password: password})
	if err != nil {
		return model.User{}, err
	}
	var user model.User
	if res.User != nil {
		user = *res.User
	} else if user, err = s.api.Me(ctx); err != nil {
		return model.User{}, err
	}
	s.setUser(&user)
	s.save(res.AccessToken, user)
	s.logger.Info("logged in", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Resume restores a persisted session. The token is checked against the
// server; when the server cannot be reached the cached profile is used.
func (s *Session) Resume(ctx context.Context) (model.User, error) {
	if s.creds == nil {
		return model.User{}, ErrNotLoggedIn
	}
	token, cached, err := s.creds.LoadSession()
	if err != nil {
		return model.User{}, err
	}
	if s.mode == ModeLocal {
		if cached == nil {
			return model.User{}, ErrNotLoggedIn
		}
		s.local.SetActor(*cached)
		s.setUser(cached)
		return *cached, nil
	}
	if token == "" {
		return model.User{}, ErrNotLoggedIn
	}
	s.api.Tokens().SetToken(token)
	user, err := s.api.Me(ctx)
	switch {
	case err == nil:
	case apiclient.IsUnauthorized(err):
		return model.User{}, fmt.Errorf("%w: session expired", ErrNotLoggedIn)
	case apiclient.CodeOf(err) == apiclient.CodeTransport && cached != nil:
		s.logger.Warn("server unreachable, using cached profile", "error", err)
		user = *cached
	default:
		return model.User{}, err
	}
	s.setUser(&user)
	s.save(token, user)
	return user, nil
}

// Start opens the socket in remote mode and loads every store. Load
// failures are joined; the session stays usable.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return ErrNotLoggedIn
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.resync = false
	if s.manager != nil {
		s.manager.OnAny(func(ev events.Event) { ev.Accept(s) })
		s.router = subscription.New(s.manager, subscription.Options{
			Clock:  s.clock,
			Logger: s.logger.With("component", "subscription"),
		})
	}
	s.mu.Unlock()

	if s.manager != nil {
		s.manager.Connect(s.api.Tokens().Token())
	}
	return s.load(ctx)
}

func (s *Session) load(ctx context.Context) error {
	return errors.Join(
		s.tickets.LoadAll(ctx),
		s.todos.LoadAll(ctx),
		s.board.Load(ctx),
	)
}

// Logout ends the session and forgets everything it cached.
func (s *Session) Logout() {
	s.logout()
	s.logger.Info("logged out")
}

func (s *Session) forceLogout(reason string) {
	s.mu.Lock()
	active := s.user != nil || s.started
	s.mu.Unlock()
	s.logout()
	if !active {
		return
	}
	s.logger.Warn("session ended", "reason", reason)
	if s.onLogout != nil {
		s.onLogout(reason)
	}
}

func (s *Session) logout() {
	s.mu.Lock()
	router := s.router
	s.router = nil
	s.user = nil
	s.started = false
	s.resync = false
	s.mu.Unlock()

	if router != nil {
		router.Close()
	}
	if s.manager != nil {
		s.manager.Disconnect()
	}
	if s.api != nil {
		s.api.Tokens().ClearToken()
	}
	s.board.Discard()
	s.tickets.Reset()
	s.todos.Reset()
	if s.creds != nil {
		if err := s.creds.ClearSession(); err != nil {
			s.logger.Warn("clear persisted session", "error", err)
		}
	}
}

// Close flushes pending layout edits and releases the backend.
func (s *Session) Close(ctx context.Context) error {
	err := s.board.Flush(ctx)
	s.mu.Lock()
	router := s.router
	s.router = nil
	s.started = false
	s.closed = true
	s.mu.Unlock()
	if router != nil {
		router.Close()
	}
	if s.manager != nil {
		s.manager.Disconnect()
	}
	s.stopBg()
	s.resyncWG.Wait()
	if s.local != nil {
		err = errors.Join(err, s.local.Close())
	}
	return err
}

func (s *Session) setUser(user *model.User) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
}

func (s *Session) save(token string, user model.User) {
	if s.creds == nil {
		return
	}
	if err := s.creds.SaveSession(token, user); err != nil {
		s.logger.Warn("persist session", "error", err)
	}
}

func (s *Session) runResync() {
	defer s.resyncWG.Done()
	ctx, cancel := context.WithTimeout(s.bg, resyncTimeout)
	defer cancel()
	if err := s.load(ctx); err != nil {
		s.logger.Warn("resync failed", "error", err)
		return
	}
	s.logger.Info("resynced after reconnect")
}
