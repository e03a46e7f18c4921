package mockserver

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/simonjohansson/deskboard/internal/model"
)

// SeedUser is an account the server starts with.
type SeedUser struct {
	Username string
	Email    string
	Password string
	Role     model.Role
}

type account struct {
	user     model.User
	password string
}

// directory holds accounts and issued tokens in memory.
type directory struct {
	mu       sync.RWMutex
	accounts map[model.ID]*account
	tokens   map[string]model.ID
	newID    func() string
	now      func() model.Timestamp
}

func newDirectory(newID func() string, now func() model.Timestamp) *directory {
	return &directory{
		accounts: make(map[model.ID]*account),
		tokens:   make(map[string]model.ID),
		newID:    newID,
		now:      now,
	}
}

func (d *directory) create(seed SeedUser) (model.User, error) {
	username := strings.TrimSpace(seed.Username)
	if username == "" || seed.Password == "" {
		return model.User{}, fmt.Errorf("username and password are required")
	}
	role := seed.Role
	if role == "" {
		role = model.RoleUser
	}
	switch role {
	case model.RoleAdmin, model.RoleIT, model.RoleUser:
	default:
		return model.User{}, fmt.Errorf("invalid role %q", role)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, acc := range d.accounts {
		if strings.EqualFold(acc.user.Username, username) {
			return model.User{}, errConflict("username already registered")
		}
		if seed.Email != "" && strings.EqualFold(acc.user.Email, seed.Email) {
			return model.User{}, errConflict("email already registered")
		}
	}
	user := model.User{
		ID:        model.ID("u-" + d.newID()),
		Username:  username,
		Email:     strings.TrimSpace(seed.Email),
		Role:      role,
		CreatedAt: d.now(),
	}
	d.accounts[user.ID] = &account{user: user, password: seed.Password}
	return user, nil
}

// login issues a new bearer token.
func (d *directory) login(username, password string) (string, model.User, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, acc := range d.accounts {
		if acc.user.Username != username || acc.password != password || acc.user.Blocked {
			continue
		}
		token := uuid.NewString()
		d.tokens[token] = acc.user.ID
		return token, acc.user, true
	}
	return "", model.User{}, false
}

func (d *directory) issue(id model.ID) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.accounts[id]; !ok {
		return "", false
	}
	token := uuid.NewString()
	d.tokens[token] = id
	return token, true
}

// authenticate resolves a token to its user. Blocked users are rejected.
func (d *directory) authenticate(token string) (model.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.tokens[token]
	if !ok {
		return model.User{}, false
	}
	acc, ok := d.accounts[id]
	if !ok || acc.user.Blocked {
		return model.User{}, false
	}
	return acc.user, true
}

func (d *directory) revoke(token string) {
	d.mu.Lock()
	delete(d.tokens, token)
	d.mu.Unlock()
}

func (d *directory) get(id model.ID) (model.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acc, ok := d.accounts[id]
	if !ok {
		return model.User{}, false
	}
	return acc.user, true
}

func (d *directory) list() []model.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]model.User, 0, len(d.accounts))
	for _, acc := range d.accounts {
		out = append(out, acc.user)
	}
	slices.SortFunc(out, func(a, b model.User) int { return strings.Compare(a.Username, b.Username) })
	return out
}

func (d *directory) update(id model.ID, patch model.UserPatch) (model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	acc, ok := d.accounts[id]
	if !ok {
		return model.User{}, errNotFound("user not found")
	}
	if patch.Username != nil {
		acc.user.Username = strings.TrimSpace(*patch.Username)
	}
	if patch.Email != nil {
		acc.user.Email = strings.TrimSpace(*patch.Email)
	}
	if patch.Password != nil {
		acc.password = *patch.Password
	}
	if patch.Role != nil {
		acc.user.Role = *patch.Role
	}
	if patch.Blocked != nil {
		acc.user.Blocked = *patch.Blocked
	}
	return acc.user, nil
}

func (d *directory) delete(id model.ID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.accounts[id]; !ok {
		return errNotFound("user not found")
	}
	delete(d.accounts, id)
	for token, owner := range d.tokens {
		if owner == id {
			delete(d.tokens, token)
		}
	}
	return nil
}
