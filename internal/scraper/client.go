package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"reelsync/internal/catalog"
	"reelsync/internal/config"
	"reelsync/internal/services"
)

const (
	userAgent      = "reelsync/0.1.0"
	defaultTimeout = 120 * time.Second
	maxErrorBody   = 2048
)

// HTTPDoer describes the HTTP client used by the scraper client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the scraper service.
type Client struct {
	baseURL    string
	healthPath string
	timeout    time.Duration
	http       HTTPDoer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the pooled default transport.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithHealthPath overrides the liveness endpoint path.
func WithHealthPath(path string) Option {
	return func(c *Client) {
		if path = strings.TrimSpace(path); path != "" {
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}
			c.healthPath = path
		}
	}
}

// New constructs a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		healthPath: "/health",
		timeout:    defaultTimeout,
		http:       cleanhttp.DefaultPooledClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a client from the [scraper] config section.
func NewFromConfig(cfg *config.Config) *Client {
	return New(cfg.Scraper.BaseURL,
		WithTimeout(cfg.ScraperTimeout()),
		WithHealthPath(cfg.Scraper.HealthPath),
	)
}

// HealthURL returns the absolute liveness endpoint.
func (c *Client) HealthURL() string {
	return c.baseURL + c.healthPath
}

// Health performs a single liveness request.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, c.healthPath, nil, "health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type scrapeRequest struct {
	Criteria string `json:"criteria"`
	Quantity int    `json:"quantity"`
}

type scrapeResponse struct {
	Result int `json:"result"`
}

// Scrape asks the service to discover up to quantity new catalog items
// matching criteria and returns how many were inserted.
func (c *Client) Scrape(ctx context.Context, criteria string, quantity int) (int, error) {
	body, err := json.Marshal(scrapeRequest{Criteria: strings.TrimSpace(criteria), Quantity: quantity})
	if err != nil {
		return 0, fmt.Errorf("encode scrape request: %w", err)
	}
	var out scrapeResponse
	if err := c.doJSON(ctx, http.MethodPost, "/scrape", body, "scrape", &out); err != nil {
		return 0, err
	}
	return out.Result, nil
}

// ScrapeItem fetches fresh metadata for one catalog item.
func (c *Client) ScrapeItem(ctx context.Context, id string) (catalog.Metadata, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/scrape/"+url.PathEscape(id), nil, "scrape item", &raw); err != nil {
		return catalog.Metadata{}, err
	}
	raw = unwrapResult(raw)

	var meta catalog.Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return catalog.Metadata{}, services.Wrap(services.ErrExternalTool, "scraper", "scrape item", "decode metadata for "+id, err)
	}
	meta.Raw = raw
	return meta, nil
}

// FetchEpisodes returns episode air dates for a series with seasons seasons.
func (c *Client) FetchEpisodes(ctx context.Context, id string, seasons int) ([]catalog.EpisodeDate, error) {
	query := url.Values{}
	query.Set("title_id", id)
	query.Set("season_count", strconv.Itoa(seasons))

	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/fetch_episodes?"+query.Encode(), nil, "fetch episodes", &raw); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)

	var episodes []catalog.EpisodeDate
	if len(raw) > 0 && raw[0] == '{' {
		var wrapped struct {
			Episodes []catalog.EpisodeDate `json:"episodes"`
			Result   []catalog.EpisodeDate `json:"result"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "scraper", "fetch episodes", "decode episodes for "+id, err)
		}
		episodes = wrapped.Episodes
		if episodes == nil {
			episodes = wrapped.Result
		}
		return episodes, nil
	}
	if err := json.Unmarshal(raw, &episodes); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "scraper", "fetch episodes", "decode episodes for "+id, err)
	}
	return episodes, nil
}

func unwrapResult(raw json.RawMessage) json.RawMessage {
	var wrapped struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Result) > 0 && wrapped.Result[0] == '{' {
		return wrapped.Result
	}
	return raw
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, operation string, out any) error {
	resp, err := c.do(ctx, method, path, body, operation)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrExternalTool, "scraper", operation, "decode response", err)
	}
	return nil
}

// do issues one request bounded by the client timeout. The caller owns the
// response body on success.
func (c *Client) do(ctx context.Context, method, path string, body []byte, operation string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		cancel()
		return nil, services.Wrap(services.ErrConfiguration, "scraper", operation, "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, classifyTransportError(ctx, operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer cancel()
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, statusError(operation, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func classifyTransportError(ctx context.Context, operation string, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "scraper", operation, "request timed out", err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return services.Wrap(services.ErrTransient, "scraper", operation, "request failed", err)
	}
}

// StatusError reports a non-2xx response from the scraper service.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("scraper %s returned %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("scraper %s returned %d: %s", e.Operation, e.StatusCode, e.Body)
}

func statusError(operation string, code int, body string) error {
	marker := services.ErrExternalTool
	switch {
	case code == http.StatusNotFound:
		marker = services.ErrNotFound
	case code == http.StatusServiceUnavailable, code == http.StatusTooManyRequests, code >= 500:
		marker = services.ErrTransient
	}
	return services.Wrap(marker, "scraper", operation, "", &StatusError{Operation: operation, StatusCode: code, Body: body})
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
