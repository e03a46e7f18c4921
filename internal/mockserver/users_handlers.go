package mockserver

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/simonjohansson/deskboard/internal/model"
)

func (s *Server) registerUserOperations() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listUsers",
		Method:      http.MethodGet,
		Path:        "/users/",
		Summary:     "List users",
		Errors:      []int{http.StatusForbidden},
	}, s.listUsers)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUser",
		Method:      http.MethodGet,
		Path:        "/users/{id}",
		Summary:     "Get user",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, s.getUser)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createUser",
		Method:        http.MethodPost,
		Path:          "/users",
		DefaultStatus: http.StatusCreated,
		Summary:       "Create user",
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusConflict},
	}, s.createUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateUser",
		Method:      http.MethodPut,
		Path:        "/users/{id}",
		Summary:     "Update user",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, s.updateUser)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteUser",
		Method:        http.MethodDelete,
		Path:          "/users/{id}",
		DefaultStatus: http.StatusNoContent,
		Summary:       "Delete user",
		Errors:        []int{http.StatusForbidden, http.StatusNotFound},
	}, s.deleteUser)
}

// Privileged staff may read the directory; only admins change it.
func (s *Server) listUsers(ctx context.Context, _ *struct{}) (*output[[]model.User], error) {
	if err := requirePrivileged(userFrom(ctx)); err != nil {
		return nil, err
	}
	return &output[[]model.User]{Body: s.users.list()}, nil
}

func (s *Server) getUser(ctx context.Context, input *idInput) (*output[model.User], error) {
	caller := userFrom(ctx)
	if caller.ID != model.ID(input.ID) {
		if err := requirePrivileged(caller); err != nil {
			return nil, err
		}
	}
	user, ok := s.users.get(model.ID(input.ID))
	if !ok {
		return nil, huma.Error404NotFound("user not found")
	}
	return &output[model.User]{Body: user}, nil
}

type userDraftWire struct {
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

func (s *Server) createUser(ctx context.Context, input *rawInput) (*output[model.User], error) {
	if err := requireAdmin(userFrom(ctx)); err != nil {
		return nil, err
	}
	var body userDraftWire
	if err := decodeBody(input.RawBody, &body); err != nil {
		return nil, err
	}
	user, err := s.users.create(SeedUser(body))
	if err != nil {
		return nil, toHumaError(err)
	}
	s.logger.Info("user created", "user_id", user.ID, "role", user.Role)
	return &output[model.User]{Body: user}, nil
}

type userPatchWire struct {
	Username *string     `json:"username"`
	Email    *string     `json:"email"`
	Password *string     `json:"password"`
	Role     *model.Role `json:"role"`
	Blocked  *bool       `json:"blocked"`
}

func (s *Server) updateUser(ctx context.Context, input *idRawInput) (*output[model.User], error) {
	if err := requireAdmin(userFrom(ctx)); err != nil {
		return nil, err
	}
	var body userPatchWire
	if err := decodeBody(input.RawBody, &body); err != nil {
		return nil, err
	}
	user, err := s.users.update(model.ID(input.ID), model.UserPatch(body))
	if err != nil {
		return nil, toHumaError(err)
	}
	return &output[model.User]{Body: user}, nil
}

func (s *Server) deleteUser(ctx context.Context, input *idInput) (*struct{}, error) {
	if err := requireAdmin(userFrom(ctx)); err != nil {
		return nil, err
	}
	if err := s.users.delete(model.ID(input.ID)); err != nil {
		return nil, toHumaError(err)
	}
	return nil, nil
}
