package config

const (
	defaultConfigPath            = "~/.config/reelsync/config.toml"
	defaultDataDir               = "~/.local/share/reelsync"
	defaultLogDir                = "~/.local/share/reelsync/logs"
	defaultAPIBind               = "127.0.0.1:7488"
	defaultScraperBaseURL        = "http://127.0.0.1:8000"
	defaultScraperHealthPath     = "/health"
	defaultScraperExecutable     = "uvicorn"
	defaultScraperRequestTimeout = 120
	defaultReadinessMaxAttempts  = 20
	defaultReadinessIntervalMS   = 500
	defaultSyncConcurrency       = 2
	defaultNotifyRequestTimeout  = 10
	defaultNotifyQueueSize       = 16
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	scraperURLEnv                = "REELSYNC_SCRAPER_URL"
	ntfyTopicEnv                 = "REELSYNC_NTFY_TOPIC"
	maxSyncConcurrency           = 32
	maxReadinessAttempts         = 600
	minReadinessIntervalMS       = 10
)

// DefaultWorkDirCandidates lists, in probe order, the relative directories the
// supervisor checks for the scraper service sources.
func DefaultWorkDirCandidates() []string {
	return []string{"scraper", "../scraper", "../../scraper", "services/scraper"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Scraper: Scraper{
			BaseURL:           defaultScraperBaseURL,
			HealthPath:        defaultScraperHealthPath,
			Executable:        defaultScraperExecutable,
			Args:              []string{"main:app", "--host", "127.0.0.1", "--port", "8000"},
			WorkDirCandidates: DefaultWorkDirCandidates(),
			RequestTimeout:    defaultScraperRequestTimeout,
			Autostart:         true,
		},
		Readiness: Readiness{
			MaxAttempts: defaultReadinessMaxAttempts,
			IntervalMS:  defaultReadinessIntervalMS,
		},
		Sync: Sync{
			Concurrency: defaultSyncConcurrency,
			StartOnBoot: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			QueueSize:      defaultNotifyQueueSize,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
