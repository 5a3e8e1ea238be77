package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"reelsync/internal/catalog"
	"reelsync/internal/config"
	"reelsync/internal/daemon"
	"reelsync/internal/lifecycle"
	"reelsync/internal/logging"
	"reelsync/internal/metrics"
	"reelsync/internal/notifications"
	"reelsync/internal/readiness"
	"reelsync/internal/scraper"
	"reelsync/internal/supervisor"
	"reelsync/internal/workflow"
)

const logHubCapacity = 4096

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the reelsync daemon and blocks until SIGINT/SIGTERM or until
// cmdCtx is cancelled.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = strings.ToLower(level)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logPath := logging.SessionLogPath(cfg.Paths.LogDir, time.Now())
	logHub := logging.NewStreamHub(logHubCapacity)
	logger, err := logging.NewFromConfig(cfg, logPath, logHub)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := logging.UpdateCurrentPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", logging.LogFileName, err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: logging.SessionLogPattern, Exclude: []string{logPath}},
	)
	logDependencySnapshot(logger, cfg)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := catalog.Open(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open catalog store", "catalog_open_failed",
			logging.Error(err),
			logging.String("catalog", cfg.CatalogPath()),
			logging.String(logging.FieldErrorHint, "check paths.data_dir permissions"),
		)
		return err
	}

	d, err := NewDaemon(cfg, store, logger, logHub, logPath)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check for another running reelsync daemon and the catalog path"),
			logging.String(logging.FieldImpact, "catalog sync is not running"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("reelsync daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

// NewDaemon wires the scraper client, readiness gate, supervisor, sync
// pipeline, lifecycle controller, notifier, and metrics around store.
func NewDaemon(cfg *config.Config, store *catalog.Store, logger *slog.Logger, hub *logging.StreamHub, logPath string) (*daemon.Daemon, error) {
	m := metrics.New()
	dispatcher := notifications.NewDispatcher(notifications.NewService(cfg), cfg.Notifications.QueueSize, logger)
	gate := readiness.NewGate(dispatcher, logger, readiness.WithMetrics(m))
	client := scraper.NewFromConfig(cfg)
	sup := supervisor.New(cfg, gate, logger, supervisor.WithMetrics(m))
	pipeline := workflow.NewPipeline(cfg, store, client, gate, logger, workflow.WithMetrics(m))
	controller := lifecycle.New(pipeline, sup, logger, lifecycle.WithMetrics(m))

	return daemon.New(cfg, logger, daemon.Dependencies{
		Store:      store,
		Scraper:    client,
		Gate:       gate,
		Supervisor: sup,
		Controller: controller,
		Notifier:   dispatcher,
		Metrics:    m,
		LogHub:     hub,
		LogPath:    logPath,
	})
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	executable := cfg.Scraper.Executable
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("scraper_url", cfg.Scraper.BaseURL),
		logging.Bool("scraper_autostart", cfg.Scraper.Autostart),
		logging.String("scraper_executable", executable),
		logging.Bool("scraper_executable_available", binaryAvailable(executable)),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Int("sync_concurrency", cfg.Sync.Concurrency),
		logging.String("api_bind", cfg.Paths.APIBind),
	)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
