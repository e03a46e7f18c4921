// Package apiclient is the REST collaborator of the sync layer.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/oapi-codegen/runtime"
)

// TokenStore holds the bearer token between calls.
type TokenStore interface {
	Token() string
	SetToken(token string)
	ClearToken()
}

// MemoryTokens is a TokenStore that lives only as long as the process.
type MemoryTokens struct {
	mu    sync.RWMutex
	token string
}

func (m *MemoryTokens) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *MemoryTokens) SetToken(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
}

func (m *MemoryTokens) ClearToken() {
	m.SetToken("")
}

type Options struct {
	// BaseURL is the API root, for example https://host/api/v1.
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenStore
	Logger     *slog.Logger
	// OnUnauthorized runs after any 401, once the token is cleared.
	OnUnauthorized func()
	// EmailDomain is the domain Register requires. Empty disables the check.
	EmailDomain string
}

type Client struct {
	baseURL     string
	http        *http.Client
	tokens      TokenStore
	logger      *slog.Logger
	emailDomain string

	mu             sync.RWMutex
	onUnauthorized func()
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" || parsed.Host == "" {
		return nil, fmt.Errorf("api url must start with http:// or https://")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = &MemoryTokens{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:        base,
		http:           httpClient,
		tokens:         tokens,
		logger:         logger,
		emailDomain:    opts.EmailDomain,
		onUnauthorized: opts.OnUnauthorized,
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Tokens() TokenStore { return c.tokens }

// SetOnUnauthorized replaces the 401 hook.
func (c *Client) SetOnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// pathParam renders one path segment the way generated clients do.
func pathParam(name string, value string) (string, error) {
	return runtime.StyleParamWithLocation("simple", false, name, runtime.ParamLocationPath, value)
}

// buildPath joins a template like "/todos/{id}/archive" with its params.
func buildPath(template string, params ...string) (string, error) {
	if len(params)%2 != 0 {
		return "", fmt.Errorf("path params must be name/value pairs")
	}
	out := template
	for i := 0; i < len(params); i += 2 {
		encoded, err := pathParam(params[i], params[i+1])
		if err != nil {
			return "", newError(CodeValidation, 0, fmt.Sprintf("invalid %s", params[i]), err)
		}
		out = strings.Replace(out, "{"+params[i]+"}", encoded, 1)
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return newError(CodeValidation, 0, "encode request", err)
		}
		reader = bytes.NewReader(raw)
	}
	contentType := ""
	if body != nil {
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, reader, out)
}

// do sends one request. A 204 leaves out untouched.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return newError(CodeInternal, 0, "build request", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("api request failed", "method", method, "path", path, "error", err)
		return newError(CodeTransport, 0, err.Error(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return newError(CodeTransport, resp.StatusCode, "read response", err)
	}
	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.ClearToken()
		c.mu.RLock()
		hook := c.onUnauthorized
		c.mu.RUnlock()
		if hook != nil {
			hook()
		}
		return newError(CodeUnauthorized, resp.StatusCode, "Unauthorized", nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := extractErrorMessage(raw)
		if msg == "" {
			msg = fmt.Sprintf("Request failed with status %d", resp.StatusCode)
		}
		return newError(codeForStatus(resp.StatusCode), resp.StatusCode, msg, nil)
	}
	if resp.StatusCode == http.StatusNoContent || out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return newError(CodeInternal, resp.StatusCode, "decode response", err)
	}
	return nil
}

// extractErrorMessage reads detail, then message, then title and error.
// A list-valued detail, as validation failures carry, is joined.
func extractErrorMessage(raw []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	switch detail := obj["detail"].(type) {
	case string:
		if strings.TrimSpace(detail) != "" {
			return detail
		}
	case []any:
		msgs := make([]string, 0, len(detail))
		for _, item := range detail {
			if entry, ok := item.(map[string]any); ok {
				if msg, ok := entry["msg"].(string); ok && msg != "" {
					msgs = append(msgs, msg)
				}
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	for _, key := range []string{"message", "title", "error"} {
		if value, ok := obj[key].(string); ok && strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
