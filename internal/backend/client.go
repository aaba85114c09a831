// Package backend is the HTTP client for the storefront REST backend. Every
// request goes through one authorize step that attaches the bearer token, and
// every 401 response fires the registered unauthorized hook, which is the
// global forced-sign-out side channel.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aduboahen/juicekart/pkg/config"
	pkgerrors "github.com/aduboahen/juicekart/pkg/errors"
	"github.com/aduboahen/juicekart/pkg/logger"
)

const responseBodyReadLimit int64 = 4096

var errBaseURLRequired = errors.New("backend base url is required")

// TokenSource supplies the current bearer credential. An empty token means
// the request goes out unauthenticated (guest traffic).
type TokenSource interface {
	Token() string
}

// UnauthorizedHook observes every 401 the backend returns.
type UnauthorizedHook func()

// Client talks to the storefront backend.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	tokens         TokenSource
	onUnauthorized UnauthorizedHook
	logger         *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTokenSource wires the session token into outbound requests.
func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// WithUnauthorizedHook registers the forced-sign-out side channel.
func WithUnauthorizedHook(hook UnauthorizedHook) Option {
	return func(c *Client) {
		c.onUnauthorized = hook
	}
}

// NewClient builds the backend client from configuration.
func NewClient(cfg config.BackendConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logg,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}

	return client, nil
}

func (c *Client) buildURL(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// do executes one backend call and decodes a 2xx body into dest (when dest
// is non-nil). Failures come back as pkg/errors values.
func (c *Client) do(ctx context.Context, method, path string, body any, dest any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "backend client not configured")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build backend request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	c.log(ctx, "request", method, path, nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx, "error", method, path, err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute backend request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "backend rejected credentials")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		code := codeForStatus(resp.StatusCode)
		err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		c.log(ctx, "error", method, path, err)
		return pkgerrors.Wrap(code, err, fmt.Sprintf("backend %s %s failed", method, path))
	}

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode backend response")
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.tokens == nil {
		return
	}
	token := strings.TrimSpace(c.tokens.Token())
	if token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

func (c *Client) log(ctx context.Context, phase, method, path string, err error) {
	if c == nil || c.logger == nil {
		return
	}
	ctx = c.logger.WithFields(ctx, map[string]any{
		"phase":  phase,
		"method": method,
		"path":   path,
	})
	if phase == "error" {
		c.logger.Error(ctx, "backend call failed", err)
		return
	}
	c.logger.Info(ctx, "backend "+phase)
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}
