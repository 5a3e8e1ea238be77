// Package readiness gates dependent work behind a bounded health poll.
//
// A Gate never caches results: every AwaitReady call runs its own loop, so
// concurrent callers (each pipeline phase, the supervisor start check) observe
// the service independently. Exhausting the attempt budget raises exactly one
// user-facing notification per call; cancellation raises none.
package readiness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/hashicorp/go-cleanhttp"

	"reelsync/internal/config"
	"reelsync/internal/logging"
	"reelsync/internal/metrics"
	"reelsync/internal/notifications"
	"reelsync/internal/services"
)

// State is the derived outcome of one gate call.
type State int

const (
	StateUnknown State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrNotReady is returned by callers that need an error rather than a State.
var ErrNotReady = fmt.Errorf("scraper service not ready: %w", services.ErrUnavailable)

const (
	DefaultMaxAttempts  = 20
	DefaultInterval     = 500 * time.Millisecond
	defaultProbeTimeout = config.ReadinessProbeTimeout
)

// HTTPDoer describes the HTTP client used for probes.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Notifier receives the service unavailable event. *notifications.Dispatcher
// satisfies it.
type Notifier interface {
	Notify(event notifications.Event, payload notifications.Payload) bool
}

// Gate polls a health endpoint until it answers 2xx or the budget runs out.
type Gate struct {
	client       HTTPDoer
	notifier     Notifier
	logger       *slog.Logger
	metrics      *metrics.Metrics
	probeTimeout time.Duration
}

// Option customizes a Gate.
type Option func(*Gate)

// WithHTTPClient overrides the probe transport.
func WithHTTPClient(client HTTPDoer) Option {
	return func(g *Gate) {
		if client != nil {
			g.client = client
		}
	}
}

// WithMetrics records gate outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// WithProbeTimeout bounds each individual probe request.
func WithProbeTimeout(timeout time.Duration) Option {
	return func(g *Gate) {
		if timeout > 0 {
			g.probeTimeout = timeout
		}
	}
}

// NewGate constructs a gate that reports exhaustion through notifier.
func NewGate(notifier Notifier, logger *slog.Logger, opts ...Option) *Gate {
	g := &Gate{
		client:       cleanhttp.DefaultPooledClient(),
		notifier:     notifier,
		logger:       logging.NewComponentLogger(logger, "readiness"),
		probeTimeout: defaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Probe performs exactly one health request and reports whether it succeeded.
func (g *Gate) Probe(ctx context.Context, endpoint string) bool {
	err := g.probe(ctx, endpoint)
	if err != nil {
		g.logger.Debug("health probe failed", logging.String("endpoint", endpoint), logging.Error(err))
	}
	return err == nil
}

// AwaitReady polls endpoint every interval, up to maxAttempts probes. Values
// below one fall back to the defaults.
func (g *Gate) AwaitReady(ctx context.Context, endpoint string, maxAttempts int, interval time.Duration) State {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := logging.WithContext(ctx, g.logger).With(logging.String("endpoint", endpoint))
	if ctx.Err() != nil {
		logger.Debug("readiness check skipped; context cancelled")
		g.metrics.RecordReadiness("cancelled", 0)
		return StateFailed
	}

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		return struct{}{}, g.probe(ctx, endpoint)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(interval)),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug("scraper not ready; retrying",
				logging.Int("attempt", attempts),
				logging.Int("max_attempts", maxAttempts),
				logging.Duration("retry_in", next),
				logging.Error(err),
			)
		}),
	)

	switch {
	case err == nil:
		logger.Debug("scraper ready", logging.Int("attempts", attempts))
		g.metrics.RecordReadiness("ready", attempts)
		return StateReady
	case ctx.Err() != nil:
		logger.Debug("readiness check cancelled", logging.Int("attempts", attempts))
		g.metrics.RecordReadiness("cancelled", attempts)
		return StateFailed
	}

	logging.WarnWithContext(logger, "scraper did not become ready", "scraper_unavailable",
		logging.Int("attempts", attempts),
		logging.Error(err),
		logging.String(logging.FieldErrorKind, "degraded"),
		logging.String(logging.FieldErrorHint, "check the scraper process logs or scraper.base_url"),
		logging.String(logging.FieldImpact, "dependent sync work is skipped until the service recovers"),
	)
	g.metrics.RecordReadiness("failed", attempts)
	if g.notifier != nil {
		g.notifier.Notify(notifications.EventServiceUnavailable, notifications.Payload{
			"endpoint": endpoint,
			"attempts": attempts,
		})
	}
	return StateFailed
}

func (g *Gate) probe(ctx context.Context, endpoint string) error {
	ctx, cancel := context.WithTimeout(ctx, g.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build health request: %w", err))
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health endpoint returned %d", resp.StatusCode)
	}
	return nil
}
