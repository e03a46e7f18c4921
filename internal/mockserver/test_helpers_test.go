package mockserver_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/simonjohansson/deskboard/internal/mockserver"
	"github.com/simonjohansson/deskboard/internal/model"
)

var seedUsers = []mockserver.SeedUser{
	{Username: "admin", Email: "admin@example.com", Password: "adminpass1", Role: model.RoleAdmin},
	{Username: "tech", Email: "tech@example.com", Password: "techpass1", Role: model.RoleIT},
	{Username: "alice", Email: "alice@example.com", Password: "alicepass1", Role: model.RoleUser},
	{Username: "bob", Email: "bob@example.com", Password: "bobpass12", Role: model.RoleUser},
}

func passwordFor(username string) string {
	for _, seed := range seedUsers {
		if seed.Username == username {
			return seed.Password
		}
	}
	return ""
}

func newTestServer(t *testing.T, opts ...func(*mockserver.Options)) (*mockserver.Server, *httptest.Server) {
	t.Helper()
	options := mockserver.Options{
		Users:       seedUsers,
		EmailDomain: "example.com",
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&options)
	}
	app, err := mockserver.New(options)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	httpServer := httptest.NewServer(app.Handler())
	t.Cleanup(httpServer.Close)
	return app, httpServer
}

func apiURL(httpServer *httptest.Server, path string) string {
	return httpServer.URL + mockserver.APIPrefix + path
}

func doJSON(t *testing.T, url, method, token string, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeMap(t *testing.T, reader io.Reader) map[string]any {
	t.Helper()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func decodeInto[T any](t *testing.T, reader io.Reader) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(reader).Decode(&out))
	return out
}

func login(t *testing.T, httpServer *httptest.Server, username string) string {
	t.Helper()
	resp := doJSON(t, apiURL(httpServer, "/auth/login"), http.MethodPost, "", map[string]string{
		"username": username,
		"password": passwordFor(username),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeInto[model.AuthResult](t, resp.Body)
	require.NotEmpty(t, result.AccessToken)
	return result.AccessToken
}

func dialWS(t *testing.T, httpServer *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + mockserver.APIPrefix + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}
