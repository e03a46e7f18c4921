package realtime

import (
	"fmt"
	"net/url"
	"strings"
)

const socketPath = "/api/v1/ws"

// BuildWebsocketURL derives the socket endpoint from the REST API base
// URL. A trailing /api/v1 on the base is dropped before the socket path
// is appended; the token travels as a query parameter.
func BuildWebsocketURL(apiBase string, token string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(apiBase))
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid api url %q", apiBase)
	}

	var wsScheme string
	switch parsed.Scheme {
	case "http", "ws":
		wsScheme = "ws"
	case "https", "wss":
		wsScheme = "wss"
	default:
		return "", fmt.Errorf("api url must start with http:// or https://")
	}

	prefix := strings.TrimRight(parsed.Path, "/")
	prefix = strings.TrimSuffix(prefix, "/api/v1")

	wsURL := &url.URL{
		Scheme: wsScheme,
		Host:   parsed.Host,
		Path:   prefix + socketPath,
	}
	if value := strings.TrimSpace(token); value != "" {
		q := wsURL.Query()
		q.Set("token", value)
		wsURL.RawQuery = q.Encode()
	}
	return wsURL.String(), nil
}
