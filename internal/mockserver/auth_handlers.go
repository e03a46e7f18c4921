package mockserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/simonjohansson/deskboard/internal/model"
)

func (s *Server) registerAuthOperations() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		DefaultStatus: http.StatusCreated,
		Summary:       "Register an account",
		Errors:        []int{http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity},
	}, s.register)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Exchange credentials for a bearer token",
		Errors:      []int{http.StatusUnauthorized, http.StatusUnprocessableEntity},
	}, s.login)

	huma.Register(s.api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Current user",
		Errors:      []int{http.StatusUnauthorized},
	}, s.me)
}

func (s *Server) register(_ context.Context, input *rawInput) (*output[model.AuthResult], error) {
	var body model.Registration
	if err := decodeBody(input.RawBody, &body); err != nil {
		return nil, err
	}
	for _, msg := range []string{
		model.ValidateUsername(body.Username),
		model.ValidateEmail(body.Email, s.emailDomain),
		model.ValidatePassword(body.Password),
	} {
		if msg != "" {
			return nil, huma.Error400BadRequest(msg)
		}
	}
	user, err := s.users.create(SeedUser{Username: body.Username, Email: body.Email, Password: body.Password, Role: model.RoleUser})
	if err != nil {
		return nil, toHumaError(err)
	}
	token, _ := s.users.issue(user.ID)
	s.logger.Info("user registered", "user_id", user.ID)
	return &output[model.AuthResult]{Body: model.AuthResult{AccessToken: token, TokenType: "bearer", User: &user}}, nil
}

func (s *Server) login(_ context.Context, input *rawInput) (*output[model.AuthResult], error) {
	var body model.Credentials
	if err := decodeBody(input.RawBody, &body); err != nil {
		return nil, err
	}
	token, user, ok := s.users.login(strings.TrimSpace(body.Username), body.Password)
	if !ok {
		return nil, huma.Error401Unauthorized("Incorrect username or password")
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return &output[model.AuthResult]{Body: model.AuthResult{AccessToken: token, TokenType: "bearer", User: &user}}, nil
}

func (s *Server) me(ctx context.Context, _ *struct{}) (*output[model.User], error) {
	return &output[model.User]{Body: userFrom(ctx)}, nil
}
