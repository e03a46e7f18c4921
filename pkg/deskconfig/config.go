package deskconfig

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultServerURL = "http://127.0.0.1:8000/api/v1"
	DefaultMode      = "remote"
	DefaultOutput    = "text"
	DefaultLogLevel  = "warn"
)

type Config struct {
	ServerURL   string      `yaml:"server_url"`
	Mode        string      `yaml:"mode"`
	EmailDomain string      `yaml:"email_domain"`
	Local       LocalConfig `yaml:"local"`
	Mock        MockConfig  `yaml:"mock"`
	CLI         CLIConfig   `yaml:"cli"`
}

// LocalConfig configures the offline mode, which keeps everything in one
// SQLite file.
type LocalConfig struct {
	Path string `yaml:"path"`
}

type MockConfig struct {
	DataPath string     `yaml:"data_path"`
	Users    []UserSeed `yaml:"users,omitempty"`
}

type UserSeed struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type CLIConfig struct {
	Output   string `yaml:"output"`
	LogLevel string `yaml:"log_level"`
}

func Default(home string) Config {
	stateDir := StateDir(home)

	return Config{
		ServerURL: DefaultServerURL,
		Mode:      DefaultMode,
		Local: LocalConfig{
			Path: filepath.Join(stateDir, "local.db"),
		},
		Mock: MockConfig{
			DataPath: filepath.Join(stateDir, "mock.db"),
		},
		CLI: CLIConfig{
			Output:   DefaultOutput,
			LogLevel: DefaultLogLevel,
		},
	}
}

func ConfigPath(home string) string {
	return filepath.Join(home, ".config", "deskboard", "config.yaml")
}

func StateDir(home string) string {
	return filepath.Join(home, ".local", "state", "deskboard")
}

func LoadOrInit(home string) (Config, error) {
	path := ConfigPath(home)
	defaults := Default(home)

	cfg, err := LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := SaveFile(path, defaults); err != nil {
				return Config{}, err
			}
			return defaults, nil
		}
		return Config{}, err
	}

	merged := Merge(defaults, cfg)
	if !Equal(merged, cfg) {
		if err := SaveFile(path, merged); err != nil {
			return Config{}, err
		}
	}

	return merged, nil
}

func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	return normalize(cfg), nil
}

func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(normalize(cfg))
	if err != nil {
		return err
	}

	// Seed users may carry passwords.
	return os.WriteFile(path, data, 0o600)
}

func Merge(defaults Config, user Config) Config {
	out := normalize(defaults)
	in := normalize(user)

	if in.ServerURL != "" {
		out.ServerURL = in.ServerURL
	}
	if in.Mode != "" {
		out.Mode = in.Mode
	}
	if in.EmailDomain != "" {
		out.EmailDomain = in.EmailDomain
	}

	if in.Local.Path != "" {
		out.Local.Path = in.Local.Path
	}

	if in.Mock.DataPath != "" {
		out.Mock.DataPath = in.Mock.DataPath
	}
	if len(in.Mock.Users) > 0 {
		out.Mock.Users = in.Mock.Users
	}

	if in.CLI.Output != "" {
		out.CLI.Output = in.CLI.Output
	}
	if in.CLI.LogLevel != "" {
		out.CLI.LogLevel = in.CLI.LogLevel
	}

	return out
}

// Equal compares two configs field by field; Config holds a slice so it
// is not comparable with ==.
func Equal(a, b Config) bool {
	users := slices.Equal(a.Mock.Users, b.Mock.Users)
	a.Mock.Users, b.Mock.Users = nil, nil
	return users && a == b
}

func normalize(cfg Config) Config {
	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	cfg.EmailDomain = strings.TrimPrefix(strings.TrimSpace(cfg.EmailDomain), "@")
	cfg.Local.Path = strings.TrimSpace(cfg.Local.Path)
	cfg.Mock.DataPath = strings.TrimSpace(cfg.Mock.DataPath)
	cfg.Mock.Users = slices.Clone(cfg.Mock.Users)
	for i, u := range cfg.Mock.Users {
		cfg.Mock.Users[i] = UserSeed{
			Username: strings.TrimSpace(u.Username),
			Email:    strings.TrimSpace(u.Email),
			Password: u.Password,
			Role:     strings.TrimSpace(u.Role),
		}
	}
	cfg.CLI.Output = strings.TrimSpace(cfg.CLI.Output)
	cfg.CLI.LogLevel = strings.ToLower(strings.TrimSpace(cfg.CLI.LogLevel))
	return cfg
}
