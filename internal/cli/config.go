package cli

import (
	"strings"

	"github.com/simonjohansson/deskboard/pkg/deskconfig"
)

type Config struct {
	ServerURL   string `yaml:"server_url"`
	Mode        string `yaml:"mode"`
	Output      Output `yaml:"output"`
	LogLevel    string `yaml:"log_level"`
	LocalPath   string `yaml:"local_path"`
	EmailDomain string `yaml:"email_domain"`
	SessionPath string `yaml:"session_path"`
}

func DefaultConfig(home string) Config {
	shared := deskconfig.Default(home)
	return Config{
		ServerURL:   shared.ServerURL,
		Mode:        shared.Mode,
		Output:      Output(shared.CLI.Output),
		LogLevel:    shared.CLI.LogLevel,
		LocalPath:   shared.Local.Path,
		EmailDomain: shared.EmailDomain,
		SessionPath: deskconfig.SessionPath(home),
	}
}

func ParseEnvConfig(env []string) Config {
	cfg := Config{}

	for _, kv := range env {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "DESKBOARD_SERVER_URL":
			cfg.ServerURL = value
		case "DESKBOARD_MODE":
			if isValidMode(value) {
				cfg.Mode = value
			}
		case "DESKBOARD_OUTPUT":
			if isValidOutput(value) {
				cfg.Output = Output(value)
			}
		case "DESKBOARD_LOG_LEVEL":
			if _, ok := parseLogLevel(value); ok {
				cfg.LogLevel = value
			}
		case "DESKBOARD_LOCAL_PATH":
			cfg.LocalPath = value
		case "DESKBOARD_EMAIL_DOMAIN":
			cfg.EmailDomain = value
		case "DESKBOARD_SESSION_PATH":
			cfg.SessionPath = value
		}
	}

	return cfg
}

func MergeConfig(defaults, fileCfg, envCfg, flagCfg Config) Config {
	out := defaults
	applyConfig(&out, fileCfg)
	applyConfig(&out, envCfg)
	applyConfig(&out, flagCfg)
	return out
}

func applyConfig(dst *Config, src Config) {
	if value := strings.TrimSpace(src.ServerURL); value != "" {
		dst.ServerURL = value
	}
	if value := strings.TrimSpace(src.Mode); value != "" {
		dst.Mode = value
	}
	if src.Output != "" {
		dst.Output = src.Output
	}
	if value := strings.TrimSpace(src.LogLevel); value != "" {
		dst.LogLevel = value
	}
	if value := strings.TrimSpace(src.LocalPath); value != "" {
		dst.LocalPath = value
	}
	if value := strings.TrimSpace(src.EmailDomain); value != "" {
		dst.EmailDomain = value
	}
	if value := strings.TrimSpace(src.SessionPath); value != "" {
		dst.SessionPath = value
	}
}

func LoadOrInitConfig(home string) (Config, error) {
	shared, err := deskconfig.LoadOrInit(home)
	if err != nil {
		return Config{}, err
	}
	return mapSharedToCLI(shared), nil
}

func ConfigPath(home string) string {
	return deskconfig.ConfigPath(home)
}

func LoadConfigFile(path string) (Config, error) {
	shared, err := deskconfig.LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	return mapSharedToCLI(shared), nil
}

func mapSharedToCLI(shared deskconfig.Config) Config {
	cfg := Config{
		ServerURL:   strings.TrimSpace(shared.ServerURL),
		Mode:        strings.TrimSpace(shared.Mode),
		Output:      Output(strings.TrimSpace(shared.CLI.Output)),
		LogLevel:    strings.TrimSpace(shared.CLI.LogLevel),
		LocalPath:   strings.TrimSpace(shared.Local.Path),
		EmailDomain: strings.TrimSpace(shared.EmailDomain),
	}
	if cfg.Output != "" && !isValidOutput(string(cfg.Output)) {
		cfg.Output = ""
	}
	if cfg.Mode != "" && !isValidMode(cfg.Mode) {
		cfg.Mode = ""
	}
	return cfg
}
