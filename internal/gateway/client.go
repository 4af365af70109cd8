// Package gateway is the single authenticated client for the hosted backend:
// relational rows, authentication, and object storage.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"mvp/internal/observability"
)

// Config holds gateway configuration.
type Config struct {
	// BaseURL is the project URL, e.g. https://xyz.supabase.co
	BaseURL string
	// AnonKey is sent as the apikey header on every request.
	AnonKey string
	// Timeout bounds a single round-trip. Zero keeps the transport default.
	Timeout time.Duration
	// HTTPClient overrides the client used for requests.
	HTTPClient *http.Client
}

// Client is the backend gateway. It is safe for concurrent use; the only
// mutable field is the access token of the signed-in user.
type Client struct {
	baseURL    string
	restURL    string
	authURL    string
	storageURL string
	anonKey    string

	http   *http.Client
	logger *slog.Logger

	mu          sync.RWMutex
	accessToken string

	storage *StorageClient
}

// New creates a gateway client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend URL is required")
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("backend anon key is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		baseURL:    baseURL,
		restURL:    baseURL + "/rest/v1",
		authURL:    baseURL + "/auth/v1",
		storageURL: baseURL + "/storage/v1",
		anonKey:    cfg.AnonKey,
		http:       httpClient,
		logger:     observability.GlobalLogger.With(slog.String("component", "gateway")),
	}
	c.storage = &StorageClient{client: c}
	return c, nil
}

// BaseURL returns the normalized project URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Storage returns the object storage client.
func (c *Client) Storage() *StorageClient {
	return c.storage
}

// SetAccessToken installs the bearer token used for subsequent requests.
// An empty token falls back to the anon key.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

// AccessToken returns the current user's token, or "" when signed out.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

type response struct {
	body       []byte
	statusCode int
	header     http.Header
}

// do performs one instrumented round-trip. Status codes >= 400 are decoded
// into *Error.
func (c *Client) do(ctx context.Context, op, target, method, rawURL string, body []byte, headers map[string]string) (*response, error) {
	span, ctx := observability.StartGatewaySpan(ctx, op, target)
	defer span.End()
	done := observability.TrackGatewayRequest(op)
	start := time.Now()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		done(0)
		span.SetError(err)
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}

	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.bearer())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		done(0)
		span.SetError(err)
		c.logger.WarnContext(ctx, "backend request failed",
			slog.String("operation", op),
			slog.String("target", target),
			slog.String("trace_id", span.TraceID()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%s %s: %w", op, target, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	done(resp.StatusCode)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}

	c.logger.DebugContext(ctx, "backend request",
		slog.String("operation", op),
		slog.String("method", method),
		slog.String("target", target),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		apiErr := parseError(respBody, resp.StatusCode)
		span.SetError(apiErr)
		return nil, apiErr
	}

	return &response{body: respBody, statusCode: resp.StatusCode, header: resp.Header}, nil
}

func (c *Client) bearer() string {
	if token := c.AccessToken(); token != "" {
		return token
	}
	return c.anonKey
}
