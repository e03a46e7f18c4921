package apiclient

import (
	"context"
	"net/http"

	"github.com/simonjohansson/deskboard/internal/model"
)

func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var out []model.User
	if err := c.doJSON(ctx, http.MethodGet, "/users/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUser(ctx context.Context, id model.ID) (model.User, error) {
	path, err := buildPath("/users/{id}", "id", id.String())
	if err != nil {
		return model.User{}, err
	}
	var out model.User
	err = c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) CreateUser(ctx context.Context, draft model.UserDraft) (model.User, error) {
	body := map[string]any{
		"username": draft.Username,
		"email":    draft.Email,
		"password": draft.Password,
	}
	if draft.Role != "" {
		body["role"] = draft.Role
	}
	var out model.User
	err := c.doJSON(ctx, http.MethodPost, "/users", body, &out)
	return out, err
}

func (c *Client) UpdateUser(ctx context.Context, id model.ID, patch model.UserPatch) (model.User, error) {
	path, err := buildPath("/users/{id}", "id", id.String())
	if err != nil {
		return model.User{}, err
	}
	body := map[string]any{}
	if patch.Username != nil {
		body["username"] = *patch.Username
	}
	if patch.Email != nil {
		body["email"] = *patch.Email
	}
	if patch.Password != nil {
		body["password"] = *patch.Password
	}
	if patch.Role != nil {
		body["role"] = *patch.Role
	}
	if patch.Blocked != nil {
		body["blocked"] = *patch.Blocked
	}
	var out model.User
	err = c.doJSON(ctx, http.MethodPut, path, body, &out)
	return out, err
}

func (c *Client) DeleteUser(ctx context.Context, id model.ID) error {
	path, err := buildPath("/users/{id}", "id", id.String())
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}
