package deskconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simonjohansson/deskboard/internal/model"
)

func TestLoadOrInitCreatesDefaults(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	cfg, err := LoadOrInit(home)
	require.NoError(t, err)

	require.Equal(t, DefaultServerURL, cfg.ServerURL)
	require.Equal(t, DefaultMode, cfg.Mode)
	require.NotEmpty(t, cfg.Local.Path)
	require.NotEmpty(t, cfg.Mock.DataPath)
	require.Equal(t, DefaultOutput, cfg.CLI.Output)
	require.Equal(t, DefaultLogLevel, cfg.CLI.LogLevel)
	require.Equal(t, filepath.Join(home, ".config", "deskboard", "config.yaml"), ConfigPath(home))

	_, err = os.Stat(ConfigPath(home))
	require.NoError(t, err)
}

func TestLoadOrInitMergesMissingFields(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	path := ConfigPath(home)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`
server_url: http://desk:9000/api/v1/
email_domain: "@corp.example"
mock:
  users:
    - username: " admin "
      email: admin@corp.example
      password: adminpass1
      role: admin
cli:
  output: json
`), 0o644))

	cfg, err := LoadOrInit(home)
	require.NoError(t, err)

	require.Equal(t, "http://desk:9000/api/v1", cfg.ServerURL)
	require.Equal(t, "corp.example", cfg.EmailDomain)
	require.Equal(t, DefaultMode, cfg.Mode)
	require.NotEmpty(t, cfg.Local.Path)
	require.Equal(t, "json", cfg.CLI.Output)
	require.Equal(t, DefaultLogLevel, cfg.CLI.LogLevel)
	require.Len(t, cfg.Mock.Users, 1)
	require.Equal(t, "admin", cfg.Mock.Users[0].Username)

	roundTrip, err := LoadFile(path)
	require.NoError(t, err)
	require.True(t, Equal(cfg, roundTrip))
}

func TestSessionFileRoundTrip(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	file := NewSessionFile(home)

	token, user, err := file.LoadSession()
	require.NoError(t, err)
	require.Empty(t, token)
	require.Nil(t, user)

	require.NoError(t, file.SaveSession("tok-1", model.User{ID: "u-1", Username: "alice", Role: model.RoleUser}))

	info, err := os.Stat(SessionPath(home))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	token, user, err = file.LoadSession()
	require.NoError(t, err)
	require.Equal(t, "tok-1", token)
	require.NotNil(t, user)
	require.Equal(t, model.ID("u-1"), user.ID)
	require.Equal(t, model.RoleUser, user.Role)

	require.NoError(t, file.ClearSession())
	require.NoError(t, file.ClearSession())
	token, user, err = file.LoadSession()
	require.NoError(t, err)
	require.Empty(t, token)
	require.Nil(t, user)
}
