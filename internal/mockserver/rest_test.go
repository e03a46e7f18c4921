package mockserver_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simonjohansson/deskboard/internal/model"
)

func TestHealthIsPublicAndEverythingElseNeedsAToken(t *testing.T) {
	t.Parallel()

	_, httpServer := newTestServer(t)

	health := doJSON(t, apiURL(httpServer, "/health"), http.MethodGet, "", nil)
	require.Equal(t, http.StatusOK, health.StatusCode)

	missing := doJSON(t, apiURL(httpServer, "/tickets/"), http.MethodGet, "", nil)
	require.Equal(t, http.StatusUnauthorized, missing.StatusCode)
	require.Equal(t, "Not authenticated", decodeMap(t, missing.Body)["detail"])

	invalid := doJSON(t, apiURL(httpServer, "/tickets/"), http.MethodGet, "nope", nil)
	require.Equal(t, http.StatusUnauthorized, invalid.StatusCode)
	require.Equal(t, "Could not validate credentials", decodeMap(t, invalid.Body)["detail"])
}

func TestLoginAndMe(t *testing.T) {
	t.Parallel()

	_, httpServer := newTestServer(t)

	wrong := doJSON(t, apiURL(httpServer, "/auth/login"), http.MethodPost, "", map[string]string{"username": "alice", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, wrong.StatusCode)
	require.Equal(t, "Incorrect username or password", decodeMap(t, wrong.Body)["detail"])

	token := login(t, httpServer, "alice")
	me := doJSON(t, apiURL(httpServer, "/auth/me"), http.MethodGet, token, nil)
	require.Equal(t, http.StatusOK, me.StatusCode)
	user := decodeInto[model.User](t, me.Body)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, model.RoleUser, user.Role)
}

func TestRegisterValidatesAndIssuesToken(t *testing.T) {
	t.Parallel()

	_, httpServer := newTestServer(t)
	url := apiURL(httpServer, "/auth/register")

	badDomain := doJSON(t, url, http.MethodPost, "", map[string]string{"username": "carol", "email": "carol@elsewhere.org", "password": "carolpass1"})
	require.Equal(t, http.StatusBadRequest, badDomain.StatusCode)

	created := doJSON(t, url, http.MethodPost, "", map[string]string{"username": "carol", "email": "carol@example.com", "password": "carolpass1"})
	require.Equal(t, http.StatusCreated, created.StatusCode)
	result := decodeInto[model.AuthResult](t, created.Body)
	require.NotEmpty(t, result.AccessToken)
	require.NotNil(t, result.User)
	require.Equal(t, model.RoleUser, result.User.Role)

	duplicate := doJSON(t, url, http.MethodPost, "", map[string]string{"username": "carol", "email": "carol@example.com", "password": "carolpass1"})
	require.Equal(t, http.StatusConflict, duplicate.StatusCode)
}

func TestUsersAreAdminManaged(t *testing.T) {
	t.Parallel()

	_, httpServer := newTestServer(t)
	admin := login(t, httpServer, "admin")
	alice := login(t, httpServer, "alice")

	forbidden := doJSON(t, apiURL(httpServer, "/users"), http.MethodPost, alice, map[string]string{"username": "mallory", "password": "x12345678"})
	require.Equal(t, http.StatusForbidden, forbidden.StatusCode)

	created := doJSON(t, apiURL(httpServer, "/users"), http.MethodPost, admin, map[string]string{
		"username": "dave", "email": "dave@example.com", "password": "davepass1", "role": "it",
	})
	require.Equal(t, http.StatusCreated, created.StatusCode)
	dave := decodeInto[model.User](t, created.Body)
	require.Equal(t, model.RoleIT, dave.Role)

	blocked := doJSON(t, apiURL(httpServer, "/users/"+dave.ID.String()), http.MethodPut, admin, map[string]any{"blocked": true})
	require.Equal(t, http.StatusOK, blocked.StatusCode)
	require.True(t, decodeInto[model.User](t, blocked.Body).Blocked)

	refused := doJSON(t, apiURL(httpServer, "/auth/login"), http.MethodPost, "", map[string]string{"username": "dave", "password": "davepass1"})
	require.Equal(t, http.StatusUnauthorized, refused.StatusCode)

	deleted := doJSON(t, apiURL(httpServer, "/users/"+dave.ID.String()), http.MethodDelete, admin, nil)
	require.Equal(t, http.StatusNoContent, deleted.StatusCode)

	list := doJSON(t, apiURL(httpServer, "/users/"), http.MethodGet, admin, nil)
	require.Equal(t, http.StatusOK, list.StatusCode)
	require.Len(t, decodeInto[[]model.User](t, list.Body), len(seedUsers))
}

func TestTicketVisibilityFollowsRole(t *testing.T) {
	t.Parallel()

	_, httpServer := newTestServer(t)
	alice := login(t, httpServer, "alice")
	bob := login(t, httpServer, "bob")
	tech := login(t, httpServer, "tech")

	created := doJSON(t, apiURL(httpServer, "/tickets/"), http.MethodPost, alice, map[string]string{"title": "Printer jammed", "description": "Third floor"})
	require.Equal(t, http.StatusCreated, created.StatusCode)
	ticket := decodeInto[model.Ticket](t, created.Body)
	require.Equal(t, model.TicketStatusOpen, ticket.Status)
	require.Equal(t, model.PriorityMedium, ticket.Priority)
	require.Equal(t, "alice", ticket.CreatedByName)

	bobList := doJSON(t, apiURL(httpServer, "/tickets/"), http.MethodGet, bob, nil)
	require.Empty(t, decodeInto[[]model.Ticket](t, bobList.Body))

	bobGet := doJSON(t, apiURL(httpServer, "/tickets/"+ticket.ID.String()), http.MethodGet, bob, nil)
	require.Equal(t, http.StatusForbidden, bobGet.StatusCode)

	techList := doJSON(t, apiURL(httpServer, "/tickets/"), http.MethodGet, tech, nil)
	require.Len(t, decodeInto[[]model.Ticket](t, techList.Body), 1)

	mine := doJSON(t, apiURL(httpServer, "/tickets/my"), http.MethodGet, alice, nil)
	require.Len(t, decodeInto[[]model.Ticket](t, mine.Body), 1)
}

func TestTicketAssignmentAndComments(t *testing.T) {
	t.Parallel()

	_, httpServer := newTestServer(t)
	alice := login(t, httpServer, "alice")
	bob := login(t, httpServer, "bob")
	tech := login(t, httpServer, "tech")
	admin := login(t, httpServer, "admin")

	created := doJSON(t, apiURL(httpServer, "/tickets/"), http.MethodPost, alice, map[string]string{"title": "VPN down"})
	ticket := decodeInto[model.Ticket](t, created.Body)
	ticketURL := apiURL(httpServer, "/tickets/"+ticket.ID.String())

	selfAssign := doJSON(t, ticketURL, http.MethodPut, alice, map[string]any{"assigned_to": "someone"})
	require.Equal(t, http.StatusForbidden, selfAssign.StatusCode)

	assigned := doJSON(t, ticketURL, http.MethodPut, tech, map[string]any{"assigned_to": "u-tech", "assigned_to_name": "tech", "status": "in_progress"})
	require.Equal(t, http.StatusOK, assigned.StatusCode)
	ticket = decodeInto[model.Ticket](t, assigned.Body)
	require.NotNil(t, ticket.AssignedTo)
	require.Equal(t, model.TicketStatusInProgress, ticket.Status)

	cleared := doJSON(t, ticketURL, http.MethodPut, tech, map[string]any{"assigned_to": nil, "assigned_to_name": nil})
	require.Equal(t, http.StatusOK, cleared.StatusCode)
	ticket = decodeInto[model.Ticket](t, cleared.Body)
	require.Nil(t, ticket.AssignedTo)
	require.Nil(t, ticket.AssignedToName)

	badPriority := doJSON(t, ticketURL, http.MethodPut, tech, map[string]any{"priority": "urgent"})
	require.Equal(t, http.StatusBadRequest, badPriority.StatusCode)

	strangerComment := doJSON(t, ticketURL+"/comments", http.MethodPost, bob, map[string]string{"text": "me too"})
	require.Equal(t, http.StatusForbidden, strangerComment.StatusCode)

	comment := doJSON(t, ticketURL+"/comments", http.MethodPost, alice, map[string]string{"text": "still down"})
	require.Equal(t, http.StatusOK, comment.StatusCode)
	ticket = decodeInto[model.Ticket](t, comment.Body)
	require.Len(t, ticket.Comments, 1)
	require.Equal(t, "alice", ticket.Comments[0].AuthorName)

	techDelete := doJSON(t, ticketURL, http.MethodDelete, tech, nil)
	require.Equal(t, http.StatusForbidden, techDelete.StatusCode)
	adminDelete := doJSON(t, ticketURL, http.MethodDelete, admin, nil)
	require.Equal(t, http.StatusNoContent, adminDelete.StatusCode)
	gone := doJSON(t, ticketURL, http.MethodGet, admin, nil)
	require.Equal(t, http.StatusNotFound, gone.StatusCode)
}

func TestTodoLifecycle(t *testing.T) {
	t.Parallel()

	_, httpServer := newTestServer(t)
	alice := login(t, httpServer, "alice")

	created := doJSON(t, apiURL(httpServer, "/todos/"), http.MethodPost, alice, map[string]any{"title": "Rotate keys", "tags": []string{"security"}})
	require.Equal(t, http.StatusCreated, created.StatusCode)
	todo := decodeInto[model.Todo](t, created.Body)
	require.Equal(t, "todo", todo.Status)
	todoURL := apiURL(httpServer, "/todos/"+todo.ID.String())

	moved := doJSON(t, todoURL, http.MethodPut, alice, map[string]any{"status": "in_progress", "in_focus": true})
	require.Equal(t, http.StatusOK, moved.StatusCode)
	todo = decodeInto[model.Todo](t, moved.Body)
	require.Equal(t, "in_progress", todo.Status)
	require.True(t, todo.InFocus)

	withItem := doJSON(t, todoURL+"/todo-list-items", http.MethodPost, alice, map[string]string{"text": "staging"})
	require.Equal(t, http.StatusOK, withItem.StatusCode)
	todo = decodeInto[model.Todo](t, withItem.Body)
	require.Len(t, todo.Checklist, 1)
	itemURL := todoURL + "/todo-list-items/" + todo.Checklist[0].ID.String()

	checked := doJSON(t, itemURL, http.MethodPut, alice, map[string]bool{"checked": true})
	require.Equal(t, http.StatusOK, checked.StatusCode)
	require.True(t, decodeInto[model.Todo](t, checked.Body).Checklist[0].Checked)

	removed := doJSON(t, itemURL, http.MethodDelete, alice, nil)
	require.Equal(t, http.StatusOK, removed.StatusCode)
	require.Empty(t, decodeInto[model.Todo](t, removed.Body).Checklist)

	missingItem := doJSON(t, itemURL, http.MethodDelete, alice, nil)
	require.Equal(t, http.StatusNotFound, missingItem.StatusCode)

	archived := doJSON(t, todoURL+"/archive", http.MethodPost, alice, nil)
	require.Equal(t, http.StatusOK, archived.StatusCode)
	require.Equal(t, model.TodoStatusArchived, decodeInto[model.Todo](t, archived.Body).Status)

	active := doJSON(t, apiURL(httpServer, "/todos/"), http.MethodGet, alice, nil)
	require.Empty(t, decodeInto[[]model.Todo](t, active.Body))
	archivedList := doJSON(t, apiURL(httpServer, "/todos/status/archived"), http.MethodGet, alice, nil)
	require.Len(t, decodeInto[[]model.Todo](t, archivedList.Body), 1)

	restored := doJSON(t, todoURL+"/restore", http.MethodPost, alice, nil)
	require.Equal(t, http.StatusOK, restored.StatusCode)
	require.Equal(t, "todo", decodeInto[model.Todo](t, restored.Body).Status)

	restoreAgain := doJSON(t, todoURL+"/restore", http.MethodPost, alice, nil)
	require.Equal(t, http.StatusBadRequest, restoreAgain.StatusCode)

	deleted := doJSON(t, todoURL, http.MethodDelete, alice, nil)
	require.Equal(t, http.StatusNoContent, deleted.StatusCode)
	gone := doJSON(t, todoURL, http.MethodGet, alice, nil)
	require.Equal(t, http.StatusNotFound, gone.StatusCode)
}

func TestColumnsDefaultAndReplace(t *testing.T) {
	t.Parallel()

	_, httpServer := newTestServer(t)
	alice := login(t, httpServer, "alice")
	tech := login(t, httpServer, "tech")
	url := apiURL(httpServer, "/todos/columns")

	defaults := doJSON(t, url, http.MethodGet, alice, nil)
	require.Equal(t, http.StatusOK, defaults.StatusCode)
	body := decodeInto[struct {
		Columns []model.Column `json:"columns"`
	}](t, defaults.Body)
	require.Equal(t, model.DefaultColumns(), body.Columns)

	layout := map[string]any{"columns": []map[string]any{
		{"column_id": "c1", "title": "Inbox", "status": "inbox"},
		{"column_id": "c2", "title": "Done", "status": "done", "color": "success"},
	}}
	forbidden := doJSON(t, url, http.MethodPost, alice, layout)
	require.Equal(t, http.StatusForbidden, forbidden.StatusCode)

	saved := doJSON(t, url, http.MethodPost, tech, layout)
	require.Equal(t, http.StatusOK, saved.StatusCode)
	body = decodeInto[struct {
		Columns []model.Column `json:"columns"`
	}](t, saved.Body)
	require.Len(t, body.Columns, 2)
	require.Equal(t, model.DefaultColumnColor, body.Columns[0].Color)
	require.Equal(t, 1, body.Columns[1].OrderIndex)

	duplicate := doJSON(t, url, http.MethodPost, tech, map[string]any{"columns": []map[string]any{
		{"column_id": "a", "title": "A", "status": "same"},
		{"column_id": "b", "title": "B", "status": "same"},
	}})
	require.Equal(t, http.StatusBadRequest, duplicate.StatusCode)
}

func TestOpenAPIDocumentsRESTAndWebsocket(t *testing.T) {
	t.Parallel()

	app, httpServer := newTestServer(t)

	resp := doJSON(t, apiURL(httpServer, "/openapi.json"), http.MethodGet, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := decodeMap(t, resp.Body)
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	for _, path := range []string{"/auth/login", "/tickets/", "/tickets/{id}/comments", "/todos/columns", "/todos/{id}/todo-list-items/{item_id}", "/inventory/", "/ws"} {
		require.Contains(t, paths, path)
	}

	require.Equal(t, "websocketEvents", app.OpenAPI().Paths["/ws"].Get.OperationID)
}
