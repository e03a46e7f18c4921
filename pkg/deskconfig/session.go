package deskconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/simonjohansson/deskboard/internal/model"
)

func SessionPath(home string) string {
	return filepath.Join(StateDir(home), "session.yaml")
}

// SessionFile persists the bearer token and the cached profile between
// CLI runs.
type SessionFile struct {
	Path string
}

type sessionDoc struct {
	Token string   `yaml:"token,omitempty"`
	User  *profile `yaml:"user,omitempty"`
}

type profile struct {
	ID       string `yaml:"id"`
	Username string `yaml:"username"`
	Email    string `yaml:"email,omitempty"`
	Role     string `yaml:"role"`
}

func NewSessionFile(home string) *SessionFile {
	return &SessionFile{Path: SessionPath(home)}
}

// LoadSession returns an empty session when nothing was saved yet.
func (f *SessionFile) LoadSession() (string, *model.User, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, nil
		}
		return "", nil, err
	}

	var doc sessionDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", nil, err
	}
	if doc.User == nil {
		return strings.TrimSpace(doc.Token), nil, nil
	}
	user := model.User{
		ID:       model.ID(doc.User.ID),
		Username: doc.User.Username,
		Email:    doc.User.Email,
		Role:     model.Role(doc.User.Role),
	}
	return strings.TrimSpace(doc.Token), &user, nil
}

func (f *SessionFile) SaveSession(token string, user model.User) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(sessionDoc{
		Token: token,
		User: &profile{
			ID:       user.ID.String(),
			Username: user.Username,
			Email:    user.Email,
			Role:     string(user.Role),
		},
	})
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, data, 0o600)
}

func (f *SessionFile) ClearSession() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
