package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScraper(); err != nil {
		return err
	}
	if err := c.validateTimings(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScraper() error {
	parsed, err := url.Parse(c.Scraper.BaseURL)
	if err != nil {
		return fmt.Errorf("scraper.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scraper.base_url must use http or https, got %q", c.Scraper.BaseURL)
	}
	if parsed.Host == "" {
		return errors.New("scraper.base_url must include a host")
	}
	if c.Scraper.Autostart && c.Scraper.Executable == "" {
		return errors.New("scraper.executable must be set when scraper.autostart is true")
	}
	return nil
}

func (c *Config) validateTimings() error {
	if err := ensurePositiveMap(map[string]int{
		"scraper.request_timeout":       c.Scraper.RequestTimeout,
		"readiness.max_attempts":        c.Readiness.MaxAttempts,
		"readiness.interval_ms":         c.Readiness.IntervalMS,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Readiness.MaxAttempts > maxReadinessAttempts {
		return fmt.Errorf("readiness.max_attempts must be at most %d", maxReadinessAttempts)
	}
	if c.Readiness.IntervalMS < minReadinessIntervalMS {
		return fmt.Errorf("readiness.interval_ms must be at least %d", minReadinessIntervalMS)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.Concurrency < 1 {
		return errors.New("sync.concurrency must be at least 1")
	}
	if c.Sync.Concurrency > maxSyncConcurrency {
		return fmt.Errorf("sync.concurrency must be at most %d", maxSyncConcurrency)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
