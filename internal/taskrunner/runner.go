package taskrunner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"reelsync/internal/logging"
	"reelsync/internal/services"
)

// DefaultLimit is used when callers pass a limit below one.
const DefaultLimit = 2

// Action processes one item.
type Action func(ctx context.Context, item string) error

// Outcome labels how an item resolved.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Observer receives each item's outcome. It is called from worker goroutines.
type Observer func(item string, outcome Outcome, elapsed time.Duration, err error)

// Summary reports counts for one Run call.
type Summary struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

// Option customizes a Run call.
type Option func(*runConfig)

type runConfig struct {
	logger   *slog.Logger
	observer Observer
}

// WithLogger sets the logger used for per-item outcomes.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers a per-item outcome hook.
func WithObserver(observer Observer) Option {
	return func(c *runConfig) { c.observer = observer }
}

// Run invokes action for every item with at most limit invocations in flight
// and returns once every item has resolved.
func Run(ctx context.Context, items []string, limit int, action Action, opts ...Option) Summary {
	cfg := runConfig{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	start := time.Now()
	summary := Summary{Total: len(items)}
	var mu sync.Mutex
	record := func(item string, outcome Outcome, elapsed time.Duration, err error) {
		mu.Lock()
		switch outcome {
		case OutcomeSucceeded:
			summary.Succeeded++
		case OutcomeFailed:
			summary.Failed++
		case OutcomeSkipped:
			summary.Skipped++
		}
		mu.Unlock()
		if cfg.observer != nil {
			cfg.observer(item, outcome, elapsed, err)
		}
	}

	// Plain group: a failing item never cancels its siblings.
	var group errgroup.Group
	group.SetLimit(limit)
	for _, item := range items {
		group.Go(func() error {
			itemCtx := services.WithItemID(ctx, item)
			logger := logging.WithContext(itemCtx, cfg.logger)
			if err := ctx.Err(); err != nil {
				logger.Debug("item skipped; run cancelled")
				record(item, OutcomeSkipped, 0, err)
				return nil
			}

			began := time.Now()
			err := invoke(itemCtx, item, action)
			elapsed := time.Since(began)
			if err != nil {
				logItemFailure(logger, elapsed, err)
				record(item, OutcomeFailed, elapsed, err)
				return nil
			}
			logger.Debug("item processed", logging.Duration("elapsed", elapsed))
			record(item, OutcomeSucceeded, elapsed, nil)
			return nil
		})
	}
	_ = group.Wait()

	summary.Duration = time.Since(start)
	return summary
}

func invoke(ctx context.Context, item string, action Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing %s: %v\n%s", item, r, debug.Stack())
		}
	}()
	return action(ctx, item)
}

func logItemFailure(logger *slog.Logger, elapsed time.Duration, err error) {
	kind := services.Classify(err)
	attrs := []logging.Attr{
		logging.Duration("elapsed", elapsed),
		logging.String(logging.FieldErrorKind, string(kind)),
		logging.Error(err),
	}
	if kind == services.KindCancelled {
		logger.Debug("item cancelled", logging.Args(attrs...)...)
		return
	}
	logging.WarnWithContext(logger, "item failed", "item_failed",
		append(attrs,
			logging.String(logging.FieldImpact, "item left for the next sync run"),
			logging.String(logging.FieldErrorHint, "check scraper logs for this item"),
		)...,
	)
}
