package apiclient

import (
	"context"
	"net/http"
	"strings"

	"github.com/simonjohansson/deskboard/internal/model"
)

// Register validates the form locally, then creates the account. A
// returned access token is stored.
func (c *Client) Register(ctx context.Context, reg model.Registration) (model.AuthResult, error) {
	if err := reg.Validate(c.emailDomain); err != nil {
		return model.AuthResult{}, newError(CodeValidation, 0, err.Error(), err)
	}
	var out model.AuthResult
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", reg, &out); err != nil {
		return model.AuthResult{}, err
	}
	if out.AccessToken != "" {
		c.tokens.SetToken(out.AccessToken)
	}
	return out, nil
}

func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.AuthResult, error) {
	if strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		return model.AuthResult{}, newError(CodeValidation, 0, "username and password are required", nil)
	}
	var out model.AuthResult
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", creds, &out); err != nil {
		return model.AuthResult{}, err
	}
	if out.AccessToken != "" {
		c.tokens.SetToken(out.AccessToken)
	}
	return out, nil
}

// Me returns the profile behind the current token.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var out model.User
	err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &out)
	return out, err
}
