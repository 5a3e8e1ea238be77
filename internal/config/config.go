package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Scraper describes how to reach and, when needed, launch the scraper service.
type Scraper struct {
	BaseURL    string   `toml:"base_url"`
	HealthPath string   `toml:"health_path"`
	Executable string   `toml:"executable"`
	Args       []string `toml:"args"`
	// BaseDir anchors the relative working directory candidates. Empty means
	// the directory containing the reelsync executable.
	BaseDir           string   `toml:"base_dir"`
	WorkDirCandidates []string `toml:"workdir_candidates"`
	RequestTimeout    int      `toml:"request_timeout"`
	Autostart         bool     `toml:"autostart"`
}

// Readiness controls the bounded health polling performed before dependent work.
type Readiness struct {
	MaxAttempts int `toml:"max_attempts"`
	IntervalMS  int `toml:"interval_ms"`
}

// Sync contains configuration for the background catalog sync pipeline.
type Sync struct {
	Concurrency int  `toml:"concurrency"`
	StartOnBoot bool `toml:"start_on_boot"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	QueueSize      int    `toml:"queue_size"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for reelsync.
//
// Configuration sections by subsystem:
//   - Paths: catalog/log directories and the control API bind address
//   - Scraper: scraper service URL, launch command, and request timeout
//   - Readiness: health polling budget
//   - Sync: pipeline concurrency and boot behaviour
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Scraper       Scraper       `toml:"scraper"`
	Readiness     Readiness     `toml:"readiness"`
	Sync          Sync          `toml:"sync"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := ExpandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CatalogPath returns the location of the SQLite catalog database.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "reelsyncd.lock")
}

// PIDPath returns the file holding the running daemon's process id.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.LogDir, "reelsyncd.pid")
}

// CurrentLogPath returns the pointer to the active daemon session log.
func (c *Config) CurrentLogPath() string {
	return filepath.Join(c.Paths.LogDir, "reelsync.log")
}

// HealthURL returns the absolute URL of the scraper liveness endpoint.
func (c *Config) HealthURL() string {
	return strings.TrimRight(c.Scraper.BaseURL, "/") + c.Scraper.HealthPath
}

// ScraperTimeout returns the per-request timeout for scraper calls.
func (c *Config) ScraperTimeout() time.Duration {
	return time.Duration(c.Scraper.RequestTimeout) * time.Second
}

// ReadinessInterval returns the delay between readiness probes.
func (c *Config) ReadinessInterval() time.Duration {
	return time.Duration(c.Readiness.IntervalMS) * time.Millisecond
}

// ReadinessProbeTimeout bounds a single readiness health probe.
const ReadinessProbeTimeout = 5 * time.Second

// ReadinessBudget is the longest a full readiness wait can take when every
// probe hangs until its timeout.
func (c *Config) ReadinessBudget() time.Duration {
	return time.Duration(c.Readiness.MaxAttempts) * (ReadinessProbeTimeout + c.ReadinessInterval())
}

// ScrapeRequestTimeout covers a bulk scrape end to end: the readiness wait
// followed by the scraper call.
func (c *Config) ScrapeRequestTimeout() time.Duration {
	return c.ReadinessBudget() + c.ScraperTimeout()
}

// NotificationTimeout returns the ntfy request timeout.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

// ExpandPath resolves a leading ~ and returns an absolute, cleaned path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() (string, error) {
	var builder strings.Builder
	encoder := toml.NewEncoder(&builder)
	encoder.SetIndentTables(true)
	if err := encoder.Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return builder.String(), nil
}
