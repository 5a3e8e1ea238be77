package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelsync/internal/logging"
	"reelsync/internal/metrics"
	"reelsync/internal/services"
	"reelsync/internal/workflow"
)

// State is the controller's run state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// ErrShutdown is returned by operations attempted after Shutdown.
var ErrShutdown = errors.New("lifecycle controller shut down")

// Runner executes one sync run. *workflow.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context) workflow.Result
}

// Stopper halts the supervised service. *supervisor.Supervisor satisfies it.
type Stopper interface {
	Stop()
}

// RunToken identifies one controller run. Cancelling it aborts all work that
// has not been admitted yet.
type RunToken struct {
	ID string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Valid reports whether the token refers to a launched run.
func (t RunToken) Valid() bool { return t.ID != "" }

// Context returns the run's context.
func (t RunToken) Context() context.Context {
	if t.ctx == nil {
		return context.Background()
	}
	return t.ctx
}

// Cancelled reports whether the run has been retired.
func (t RunToken) Cancelled() bool {
	return t.ctx != nil && t.ctx.Err() != nil
}

// Done is closed once the run's goroutine exits.
func (t RunToken) Done() <-chan struct{} {
	if t.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return t.done
}

// Status is a snapshot of the controller.
type Status struct {
	State      State            `json:"state"`
	RunID      string           `json:"run_id,omitempty"`
	StartedAt  time.Time        `json:"started_at,omitzero"`
	FinishedAt time.Time        `json:"finished_at,omitzero"`
	Runs       int              `json:"runs"`
	LastResult *workflow.Result `json:"last_result,omitempty"`
	ShutDown   bool             `json:"shut_down,omitempty"`
}

// Controller serializes sync runs.
type Controller struct {
	runner     Runner
	supervisor Stopper
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu       sync.Mutex
	current  *RunToken
	status   Status
	shutdown bool
	once     sync.Once
}

// Option customizes a Controller.
type Option func(*Controller)

// WithMetrics counts run starts and outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// New constructs an idle controller. supervisor may be nil.
func New(runner Runner, supervisor Stopper, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		runner:     runner,
		supervisor: supervisor,
		logger:     logging.NewComponentLogger(logger, "lifecycle"),
		status:     Status{State: StateIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start retires the current run, if any, and launches a fresh one. After
// Shutdown it returns an invalid token and launches nothing.
func (c *Controller) Start() RunToken {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		c.logger.Info("start ignored; controller shut down",
			logging.String(logging.FieldEventType, "sync_start_ignored"),
		)
		return RunToken{}
	}

	previous := c.current
	if previous != nil {
		previous.cancel()
		c.logger.Info("sync run superseded",
			logging.String(logging.FieldRunID, previous.ID),
			logging.String(logging.FieldEventType, "sync_superseded"),
		)
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(services.WithRunID(context.Background(), id))
	token := &RunToken{ID: id, ctx: ctx, cancel: cancel, done: make(chan struct{})}
	c.current = token
	c.status.State = StateRunning
	c.status.RunID = id
	c.status.StartedAt = time.Now().UTC()
	c.status.FinishedAt = time.Time{}
	c.status.Runs++
	c.metrics.RecordRun("started")

	go c.execute(token, previous)
	return *token
}

func (c *Controller) execute(token, previous *RunToken) {
	defer close(token.done)
	defer token.cancel()

	if previous != nil {
		<-previous.done
	}

	logger := logging.WithContext(token.ctx, c.logger)
	var result workflow.Result
	if token.ctx.Err() != nil {
		result.Cancelled = true
		logger.Debug("sync run retired before it began")
	} else {
		logger.Info("sync run started", logging.String(logging.FieldEventType, "sync_started"))
		result = c.runner.Run(token.ctx)
	}
	cancelled := result.Cancelled || token.ctx.Err() != nil

	c.mu.Lock()
	if c.current == token {
		c.status.FinishedAt = time.Now().UTC()
		c.status.LastResult = &result
		if cancelled {
			c.status.State = StateCancelled
		} else {
			c.status.State = StateCompleted
		}
	}
	c.mu.Unlock()

	if cancelled {
		c.metrics.RecordRun("cancelled")
	} else {
		c.metrics.RecordRun("completed")
	}
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := c.status
	status.ShutDown = c.shutdown
	return status
}

// Current returns the current run token, if any.
func (c *Controller) Current() (RunToken, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return RunToken{}, false
	}
	return *c.current, true
}

// Wait blocks until the current run exits or ctx ends.
func (c *Controller) Wait(ctx context.Context) error {
	token, ok := c.Current()
	if !ok {
		return nil
	}
	select {
	case <-token.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels the active run, waits for it within ctx, and stops the
// supervisor. Only the first call has any effect.
func (c *Controller) Shutdown(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		c.shutdown = true
		token := c.current
		c.mu.Unlock()

		if token != nil {
			token.cancel()
			select {
			case <-token.done:
			case <-ctx.Done():
				err = ctx.Err()
				logging.WarnWithContext(c.logger, "sync run did not exit before shutdown deadline", "shutdown_timeout",
					logging.String(logging.FieldRunID, token.ID),
					logging.String(logging.FieldImpact, "in-flight scraper requests may be abandoned"),
					logging.String(logging.FieldErrorHint, "raise the shutdown timeout or lower scraper.request_timeout"),
				)
			}
		}
		if c.supervisor != nil {
			c.supervisor.Stop()
		}
		c.logger.Info("lifecycle controller shut down", logging.String(logging.FieldEventType, "controller_shutdown"))
	})
	return err
}
