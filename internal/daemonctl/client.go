package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"reelsync/internal/api"
	"reelsync/internal/config"
)

const defaultRequestTimeout = 10 * time.Second

var (
	// ErrDaemonNotRunning indicates nothing is listening on the control API.
	ErrDaemonNotRunning = errors.New("daemon not running")
	// ErrAPIDisabled is returned when paths.api_bind is empty.
	ErrAPIDisabled = errors.New("control api disabled (paths.api_bind is empty)")
)

// APIError carries a non-2xx control API response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("daemon returned status %d: %s", e.StatusCode, e.Message)
}

// Client talks to a running daemon's control API.
type Client struct {
	base *url.URL
	http *http.Client
	// stream has no overall timeout; follow requests block until events arrive.
	stream *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout for non-streaming calls.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New builds a client for the control API at bind (host:port or URL).
func New(bind string, opts ...Option) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, ErrAPIDisabled
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api bind: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = defaultRequestTimeout
	c := &Client{base: base, http: httpClient, stream: cleanhttp.DefaultPooledClient()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromConfig builds a client for cfg's control API. Scrape requests can run
// as long as the scraper timeout plus the readiness budget, so the request
// timeout is widened accordingly.
func NewFromConfig(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	return New(cfg.Paths.APIBind, WithTimeout(cfg.ScrapeRequestTimeout()+30*time.Second))
}

// Health reports whether the control API answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, c.http, http.MethodGet, "/api/health", nil, nil, nil)
}

// Status fetches the daemon status snapshot.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var out api.DaemonStatus
	err := c.do(ctx, c.http, http.MethodGet, "/api/status", nil, nil, &out)
	return out, err
}

// RestartSync cancels the current sync run and starts a new one.
func (c *Client) RestartSync(ctx context.Context) (api.RestartResponse, error) {
	var out api.RestartResponse
	err := c.do(ctx, c.http, http.MethodPost, "/api/sync/restart", nil, nil, &out)
	return out, err
}

// Scrape asks the daemon to run a bulk scrape.
func (c *Client) Scrape(ctx context.Context, criteria string, quantity int) (api.ScrapeResponse, error) {
	var out api.ScrapeResponse
	err := c.do(ctx, c.http, http.MethodPost, "/api/scrape", nil, api.ScrapeRequest{Criteria: criteria, Quantity: quantity}, &out)
	return out, err
}

// Catalog lists catalog rows through the daemon.
func (c *Client) Catalog(ctx context.Context) (api.CatalogListResponse, error) {
	var out api.CatalogListResponse
	err := c.do(ctx, c.http, http.MethodGet, "/api/catalog", nil, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, client *http.Client, method, path string, query url.Values, body any, out any) error {
	if c == nil {
		return ErrDaemonNotRunning
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		if isDaemonUnavailable(err) {
			return ErrDaemonNotRunning
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload api.ErrorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&payload); err == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func isDaemonUnavailable(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENOENT)
}
