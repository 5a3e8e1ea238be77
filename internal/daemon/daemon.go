package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"reelsync/internal/api"
	"reelsync/internal/catalog"
	"reelsync/internal/config"
	"reelsync/internal/lifecycle"
	"reelsync/internal/logging"
	"reelsync/internal/metrics"
	"reelsync/internal/notifications"
	"reelsync/internal/readiness"
	"reelsync/internal/scraper"
	"reelsync/internal/services"
	"reelsync/internal/supervisor"
)

// ErrNotRunning is returned by operations that need a started daemon.
var ErrNotRunning = errors.New("daemon not running")

// Dependencies bundles the collaborators constructed by the daemon runner.
type Dependencies struct {
	Store      *catalog.Store
	Scraper    *scraper.Client
	Gate       *readiness.Gate
	Supervisor *supervisor.Supervisor
	Controller *lifecycle.Controller
	Notifier   *notifications.Dispatcher
	Metrics    *metrics.Metrics
	LogHub     *logging.StreamHub
	LogPath    string
}

// Daemon hosts the sync orchestrator and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	deps   Dependencies

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	mu        sync.Mutex
	running   atomic.Bool
	startedAt atomic.Int64
	cancel    context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, deps Dependencies) (*Daemon, error) {
	if cfg == nil || deps.Store == nil || deps.Scraper == nil || deps.Gate == nil || deps.Controller == nil {
		return nil, errors.New("daemon requires config, store, scraper, gate, and controller")
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		deps:     deps,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, launches the scraper when configured,
// opens the control API, and kicks off the first sync run.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reelsync daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel

	if d.cfg.Scraper.Autostart && d.deps.Supervisor != nil {
		if state, err := d.deps.Supervisor.Start(runCtx); err != nil {
			logging.WarnWithContext(d.logger, "scraper launch failed", "scraper_launch_failed",
				logging.Error(err),
				logging.String("supervisor_state", state.String()),
				logging.String(logging.FieldErrorKind, string(services.Classify(err))),
				logging.String(logging.FieldImpact, "sync phases are skipped until the scraper becomes reachable"),
				logging.String(logging.FieldErrorHint, "check scraper.executable and scraper.workdir_candidates or start the scraper manually"),
			)
		}
	}

	d.startedAt.Store(time.Now().UnixNano())
	d.running.Store(true)
	d.logger.Info("reelsync daemon started",
		logging.String("lock", d.lockPath),
		logging.String("catalog", d.cfg.CatalogPath()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)

	if d.cfg.Sync.StartOnBoot {
		d.deps.Controller.Start()
	}
	return nil
}

// Stop shuts the controller and supervisor down, closes the control API, and
// releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.shutdownTimeout())
	defer cancel()
	if err := d.deps.Controller.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("sync shutdown incomplete", logging.Error(err))
	}
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.deps.Notifier != nil {
		if err := d.deps.Notifier.Close(shutdownCtx); err != nil {
			d.logger.Warn("notification queue not drained", logging.Error(err))
		}
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("reelsync daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.deps.Store.Close()
}

func (d *Daemon) shutdownTimeout() time.Duration {
	return d.cfg.ScraperTimeout() + 10*time.Second
}

// Running reports whether Start succeeded and Stop has not run.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddress returns the bound control API address, if listening.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// LogStream returns the in-memory log hub backing the logs endpoint.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.deps.LogHub
}

// RestartSync retires the current sync run and starts a fresh one.
func (d *Daemon) RestartSync() (string, error) {
	if !d.running.Load() {
		return "", ErrNotRunning
	}
	token := d.deps.Controller.Start()
	if !token.Valid() {
		return "", lifecycle.ErrShutdown
	}
	return token.ID, nil
}

// Scrape runs a bulk scrape once the scraper is ready, announces the result,
// and restarts the sync so newly inserted rows are picked up.
func (d *Daemon) Scrape(ctx context.Context, criteria string, quantity int) (api.ScrapeResponse, error) {
	if !d.running.Load() {
		return api.ScrapeResponse{}, ErrNotRunning
	}
	criteria = strings.TrimSpace(criteria)
	if criteria == "" {
		return api.ScrapeResponse{}, services.Wrap(services.ErrValidation, "daemon", "scrape", "criteria is required", nil)
	}
	if quantity < 1 {
		return api.ScrapeResponse{}, services.Wrap(services.ErrValidation, "daemon", "scrape", "quantity must be at least 1", nil)
	}

	logger := d.logger.With(logging.String("criteria", criteria), logging.Int("quantity", quantity))
	state := d.deps.Gate.AwaitReady(ctx, d.cfg.HealthURL(), d.cfg.Readiness.MaxAttempts, d.cfg.ReadinessInterval())
	if state != readiness.StateReady {
		if err := ctx.Err(); err != nil {
			return api.ScrapeResponse{}, err
		}
		d.deps.Metrics.RecordScrape("unavailable", 0)
		return api.ScrapeResponse{}, readiness.ErrNotReady
	}

	logger.Info("bulk scrape started", logging.String(logging.FieldEventType, "scrape_started"))
	inserted, err := d.deps.Scraper.Scrape(context.WithoutCancel(ctx), criteria, quantity)
	if err != nil {
		d.deps.Metrics.RecordScrape("failed", 0)
		logging.WarnWithContext(logger, "bulk scrape failed", "scrape_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, string(services.Classify(err))),
			logging.String(logging.FieldImpact, "no new catalog items were added"),
			logging.String(logging.FieldErrorHint, "check scraper logs and retry the scrape"),
		)
		return api.ScrapeResponse{}, err
	}
	d.deps.Metrics.RecordScrape("completed", inserted)
	logger.Info("bulk scrape complete",
		logging.Int("inserted", inserted),
		logging.String(logging.FieldEventType, "scrape_completed"),
	)
	if d.deps.Notifier != nil {
		d.deps.Notifier.Notify(notifications.EventScrapeCompleted, notifications.Payload{
			"count":    inserted,
			"criteria": criteria,
		})
	}

	runID, err := d.RestartSync()
	if err != nil {
		return api.ScrapeResponse{Inserted: inserted}, err
	}
	return api.ScrapeResponse{Inserted: inserted, RunID: runID}, nil
}

// ListCatalog returns every catalog row with aggregate counts.
func (d *Daemon) ListCatalog(ctx context.Context) (api.CatalogListResponse, error) {
	items, err := d.deps.Store.ListItems(ctx)
	if err != nil {
		return api.CatalogListResponse{}, err
	}
	stats, err := d.deps.Store.Stats(ctx)
	if err != nil {
		return api.CatalogListResponse{}, err
	}
	return api.CatalogListResponse{
		Items: api.FromCatalogItems(items),
		Stats: api.FromCatalogStats(stats),
	}, nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	status := api.DaemonStatus{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		LockFilePath:  d.lockPath,
		CatalogDBPath: d.cfg.CatalogPath(),
		LogPath:       d.deps.LogPath,
		Sync:          api.FromLifecycleStatus(d.deps.Controller.Status()),
		Supervisor: api.SupervisorStatus{
			State:      supervisor.StateNotStarted.String(),
			ScraperURL: d.cfg.Scraper.BaseURL,
		},
	}
	if started := d.startedAt.Load(); started != 0 {
		status.StartedAt = api.FormatTime(time.Unix(0, started))
	}

	if sup := d.deps.Supervisor; sup != nil {
		status.Supervisor.State = sup.State().String()
		status.Supervisor.WorkDir = sup.WorkDir()
	}
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	status.Supervisor.Healthy = d.deps.Gate.Probe(probeCtx, d.cfg.HealthURL())
	cancel()

	if stats, err := d.deps.Store.Stats(ctx); err == nil {
		status.Catalog = api.FromCatalogStats(stats)
	} else {
		d.logger.Debug("catalog stats unavailable", logging.Error(err))
	}
	if d.deps.Notifier != nil {
		status.NotificationsDropped = d.deps.Notifier.Dropped()
	}
	return status
}
