package workflow

import (
	"context"
	"log/slog"
	"time"

	"reelsync/internal/config"
	"reelsync/internal/logging"
	"reelsync/internal/metrics"
	"reelsync/internal/readiness"
	"reelsync/internal/services"
	"reelsync/internal/taskrunner"
)

// Pipeline runs the ordered sync phases against the catalog and scraper.
type Pipeline struct {
	store       Store
	scraper     Scraper
	gate        Gate
	logger      *slog.Logger
	metrics     *metrics.Metrics
	endpoint    string
	maxAttempts int
	interval    time.Duration
	concurrency int
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithMetrics records phase and item outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline wires the pipeline from configuration and its collaborators.
func NewPipeline(cfg *config.Config, store Store, scraper Scraper, gate Gate, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:       store,
		scraper:     scraper,
		gate:        gate,
		logger:      logging.NewComponentLogger(logger, "workflow"),
		maxAttempts: readiness.DefaultMaxAttempts,
		interval:    readiness.DefaultInterval,
		concurrency: taskrunner.DefaultLimit,
	}
	if cfg != nil {
		p.endpoint = cfg.HealthURL()
		p.maxAttempts = cfg.Readiness.MaxAttempts
		p.interval = cfg.ReadinessInterval()
		p.concurrency = cfg.Sync.Concurrency
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Phases returns the ordered phase list for one run.
func (p *Pipeline) Phases() []Phase {
	return []Phase{
		{Name: PhaseMetadata, Select: p.selectPendingMetadata, Action: p.refreshMetadata},
		{Name: PhaseEpisodes, Select: p.selectAiringSeries, Action: p.refreshEpisodes},
	}
}

// Run executes every phase in order and returns once the last one resolves.
func (p *Pipeline) Run(ctx context.Context) Result {
	start := time.Now()
	var result Result
	for _, phase := range p.Phases() {
		phaseResult := p.runPhase(ctx, phase)
		result.Phases = append(result.Phases, phaseResult)
		if phaseResult.Reason == ReasonCancelled {
			result.Cancelled = true
		}
	}
	if ctx.Err() != nil {
		result.Cancelled = true
	}
	result.Duration = time.Since(start)

	logger := logging.WithContext(ctx, p.logger)
	if result.Cancelled {
		logger.Info("sync run cancelled",
			logging.Duration("elapsed", result.Duration),
			logging.String(logging.FieldEventType, "sync_cancelled"),
		)
	} else {
		logger.Info("sync run complete",
			logging.Duration("elapsed", result.Duration),
			logging.String(logging.FieldEventType, "sync_complete"),
		)
	}
	return result
}

func (p *Pipeline) runPhase(ctx context.Context, phase Phase) PhaseResult {
	ctx = services.WithPhase(ctx, phase.Name)
	logger := logging.WithContext(ctx, p.logger)
	result := PhaseResult{Name: phase.Name}

	skip := func(reason string) PhaseResult {
		result.Skipped = true
		result.Reason = reason
		p.metrics.RecordPhase(phase.Name, "skipped")
		return result
	}

	if ctx.Err() != nil {
		logger.Debug("phase skipped; run cancelled")
		return skip(ReasonCancelled)
	}

	if state := p.gate.AwaitReady(ctx, p.endpoint, p.maxAttempts, p.interval); state != readiness.StateReady {
		if ctx.Err() != nil {
			logger.Debug("phase skipped; run cancelled while waiting for scraper")
			return skip(ReasonCancelled)
		}
		logging.WarnWithContext(logger, "phase skipped; scraper unavailable", "phase_skipped",
			logging.String(logging.FieldErrorKind, string(services.KindDegraded)),
			logging.String(logging.FieldImpact, "items in this phase wait for the next sync run"),
			logging.String(logging.FieldErrorHint, "check scraper health or restart the sync once it recovers"),
		)
		return skip(ReasonUnavailable)
	}

	items, err := phase.Select(ctx)
	if err != nil {
		if services.IsCancellation(err) || ctx.Err() != nil {
			return skip(ReasonCancelled)
		}
		logging.ErrorWithContext(logger, "phase item selection failed", "phase_select_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, string(services.Classify(err))),
			logging.String(logging.FieldErrorHint, "check catalog database access"),
		)
		return skip(ReasonSelectFailed)
	}

	logger.Info("phase started",
		logging.Int("items", len(items)),
		logging.Int("concurrency", p.concurrency),
		logging.String(logging.FieldEventType, "phase_started"),
	)
	result.Summary = taskrunner.Run(ctx, items, p.concurrency, phase.Action,
		taskrunner.WithLogger(logger),
		taskrunner.WithObserver(func(_ string, outcome taskrunner.Outcome, elapsed time.Duration, _ error) {
			p.metrics.RecordItem(phase.Name, string(outcome), elapsed)
		}),
	)
	p.metrics.RecordPhase(phase.Name, "completed")
	logger.Info("phase complete",
		logging.Int("total", result.Summary.Total),
		logging.Int("succeeded", result.Summary.Succeeded),
		logging.Int("failed", result.Summary.Failed),
		logging.Int("skipped", result.Summary.Skipped),
		logging.Duration("elapsed", result.Summary.Duration),
		logging.String(logging.FieldEventType, "phase_complete"),
	)
	return result
}
