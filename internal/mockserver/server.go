// Package mockserver is an in-process implementation of the helpdesk REST
// and websocket contract. It backs the contract tests and the
// deskboard-mock command.
package mockserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/simonjohansson/deskboard/internal/clock"
	"github.com/simonjohansson/deskboard/internal/events"
	"github.com/simonjohansson/deskboard/internal/localstore"
	"github.com/simonjohansson/deskboard/internal/model"
)

// APIPrefix is where the REST contract and the websocket live.
const APIPrefix = "/api/v1"

type Options struct {
	// DataPath is the SQLite file for tickets, todos and columns.
	// Empty keeps everything in memory.
	DataPath    string
	Users       []SeedUser
	EmailDomain string
	Clock       clock.Clock
	Logger      *slog.Logger
}

type Server struct {
	logger      *slog.Logger
	clock       clock.Clock
	emailDomain string
	router      *chi.Mux
	api         huma.API
	hub         *hub
	users       *directory

	// mu serialises mutations so the data store's actor is per request.
	mu   sync.Mutex
	data *localstore.Store

	invMu     sync.RWMutex
	inventory map[model.ID]model.InventoryItem
	images    map[model.ID][]byte
}

func New(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	path := opts.DataPath
	if path == "" {
		path = ":memory:"
	}
	data, err := localstore.Open(localstore.Options{Path: path, Clock: clk, Logger: logger})
	if err != nil {
		return nil, err
	}

	s := &Server{
		logger:      logger,
		clock:       clk,
		emailDomain: opts.EmailDomain,
		router:      chi.NewRouter(),
		data:        data,
		inventory:   make(map[model.ID]model.InventoryItem),
		images:      make(map[model.ID][]byte),
	}
	s.users = newDirectory(uuid.NewString, s.now)
	for _, seed := range opts.Users {
		if _, err := s.users.create(seed); err != nil {
			_ = data.Close()
			return nil, err
		}
	}
	s.hub = newHub(s.users.authenticate, logger)
	s.routes()
	s.logger.Info("mock server initialized", "data_path", path, "users", len(opts.Users))
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.api.OpenAPI()
}

func (s *Server) Close() error {
	s.hub.Close()
	return s.data.Close()
}

// DropConnections closes every websocket with code, as a restarting or
// misbehaving server would. It returns how many sockets were closed.
func (s *Server) DropConnections(code int, reason string) int {
	return s.hub.Drop(code, reason)
}

// Connections reports the number of live websockets.
func (s *Server) Connections() int {
	return s.hub.Clients()
}

// RevokeToken invalidates a bearer token for REST and websocket.
func (s *Server) RevokeToken(token string) {
	s.users.revoke(token)
}

func (s *Server) now() model.Timestamp {
	return model.NewTimestamp(s.clock.Now())
}

func (s *Server) routes() {
	s.router.Use(s.requestLoggingMiddleware)

	s.router.Route(APIPrefix, func(r chi.Router) {
		r.Use(s.authMiddleware)

		config := huma.DefaultConfig("Helpdesk API", "1.0.0")
		config.OpenAPIPath = "/openapi"
		config.DocsPath = ""
		config.Servers = []*huma.Server{{URL: APIPrefix}}

		s.api = humachi.New(r, config)
		s.registerOperations()
		s.registerWebSocketOperationDocs()

		// Websocket upgrade and multipart uploads stay native HTTP handlers.
		r.Get("/ws", s.hub.ServeWS)
		r.Post("/inventory/", s.createInventoryItem)
		r.Put("/inventory/{id}", s.updateInventoryItem)
		r.Get("/inventory/{id}/image", s.inventoryImage)
	})
}

func (s *Server) registerWebSocketOperationDocs() {
	oapi := s.api.OpenAPI()
	if oapi.Paths == nil {
		oapi.Paths = map[string]*huma.PathItem{}
	}
	kinds := make([]string, 0)
	for _, kind := range model.WebSocketEventTypes() {
		kinds = append(kinds, string(kind))
	}
	oapi.Paths["/ws"] = &huma.PathItem{
		Get: &huma.Operation{
			OperationID: "websocketEvents",
			Summary:     "Websocket event stream",
			Description: "Authenticate with the token query parameter. Invalid tokens are closed with 1008. " +
				"Clients may send ping, subscribe_ticket and unsubscribe_ticket frames. Server frames: " +
				strings.Join(kinds, ", ") + ".",
			Responses: map[string]*huma.Response{
				"101": {Description: "Switching protocols to websocket"},
			},
		},
	}
}

type userKey struct{}

func userFrom(ctx context.Context) model.User {
	user, _ := ctx.Value(userKey{}).(model.User)
	return user
}

var publicPaths = map[string]bool{
	"/auth/login":    true,
	"/auth/register": true,
	"/health":        true,
	"/ws":            true,
	"/openapi.json":  true,
	"/openapi.yaml":  true,
}

// authMiddleware resolves the bearer token for every non-public route.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, APIPrefix)
		if publicPaths[path] || strings.HasPrefix(path, "/schemas/") {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeProblem(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		user, ok := s.users.authenticate(strings.TrimSpace(token))
		if !ok {
			writeProblem(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		if info, ok := r.Context().Value(requestInfoKey{}).(*requestInfo); ok {
			info.userID = user.ID.String()
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

// mutate runs fn with the data store acting as user.
func (s *Server) mutate(user model.User, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.SetActor(user)
	return fn()
}

func (s *Server) publish(ev events.Event) {
	s.hub.Publish(ev)
}

type output[T any] struct {
	Body T
}

type idInput struct {
	ID string `path:"id"`
}

type rawInput struct {
	RawBody []byte
}

type idRawInput struct {
	ID      string `path:"id"`
	RawBody []byte
}

func decodeBody(raw []byte, v any) error {
	if len(raw) == 0 {
		return huma.Error400BadRequest("request body is required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return huma.Error422UnprocessableEntity("invalid request body", err)
	}
	return nil
}

func requirePrivileged(user model.User) error {
	if !user.Role.Privileged() {
		return huma.Error403Forbidden("Not enough permissions")
	}
	return nil
}

func requireAdmin(user model.User) error {
	if user.Role != model.RoleAdmin {
		return huma.Error403Forbidden("Not enough permissions")
	}
	return nil
}

type healthBody struct {
	Ok bool `json:"ok"`
}

func (s *Server) health(_ context.Context, _ *struct{}) (*output[healthBody], error) {
	return &output[healthBody]{Body: healthBody{Ok: true}}, nil
}

func (s *Server) registerOperations() {
	huma.Get(s.api, "/health", s.health)
	s.registerAuthOperations()
	s.registerUserOperations()
	s.registerTicketOperations()
	s.registerTodoOperations()
	s.registerInventoryOperations()
}
