// ABOUTME: HTTP client implementing store.Repository against a folio entity API
// ABOUTME: Transport failures and 5xx replies surface as store.ErrRepositoryUnavailable

package remote

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
	"time"

	"github.com/2389/folio/internal/api"
	"github.com/2389/folio/internal/store"
)

// DefaultTimeout bounds each request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Client talks to a folio server's /api/entities endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger.With("component", "remote")
		}
	}
}

// New creates a client for the server at baseURL (e.g. http://localhost:8080).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing remote url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote url must be http or https, got %q", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("remote url has no host: %q", baseURL)
	}

	c := &Client{
		baseURL: u.String(),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default().With("component", "remote"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List fetches every record of kind ordered by sortKey.
func (c *Client) List(ctx context.Context, kind store.Kind, sortKey string) ([]*store.Record, error) {
	path := "/api/entities/" + url.PathEscape(string(kind))
	if sortKey != "" {
		path += "?sort=" + url.QueryEscape(sortKey)
	}

	var resp api.ListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// Create stores a new record.
func (c *Client) Create(ctx context.Context, kind store.Kind, fields store.Fields) (*store.Record, error) {
	var rec store.Record
	path := "/api/entities/" + url.PathEscape(string(kind))
	if err := c.do(ctx, http.MethodPost, path, &api.WriteRequest{Fields: fields}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update merges fields into record id.
func (c *Client) Update(ctx context.Context, kind store.Kind, id string, fields store.Fields) (*store.Record, error) {
	var rec store.Record
	path := "/api/entities/" + url.PathEscape(string(kind)) + "/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPatch, path, &api.WriteRequest{Fields: fields}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes record id.
func (c *Client) Delete(ctx context.Context, kind store.Kind, id string) error {
	path := "/api/entities/" + url.PathEscape(string(kind)) + "/" + url.PathEscape(id)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// Health checks the server's /health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", store.ErrRepositoryUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("remote request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode >= 300 {
		return statusError(method, path, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s %s response: %w", store.ErrRepositoryUnavailable, method, path, err)
	}
	return nil
}

func statusError(method, path string, resp *http.Response) error {
	var e api.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &e) != nil || e.Error == "" {
		e.Error = strings.TrimSpace(string(raw))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", store.ErrNotFound, e.Error)
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%s %s rejected: %s", method, path, e.Error)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s: status %d: %s", store.ErrRepositoryUnavailable, method, path, resp.StatusCode, e.Error)
	default:
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, e.Error)
	}
}
