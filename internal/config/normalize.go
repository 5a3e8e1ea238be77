package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeScraper(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = ExpandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeScraper() error {
	if value, ok := os.LookupEnv(scraperURLEnv); ok && strings.TrimSpace(value) != "" {
		c.Scraper.BaseURL = value
	}
	c.Scraper.BaseURL = strings.TrimRight(strings.TrimSpace(c.Scraper.BaseURL), "/")
	if c.Scraper.BaseURL == "" {
		c.Scraper.BaseURL = defaultScraperBaseURL
	}
	c.Scraper.HealthPath = strings.TrimSpace(c.Scraper.HealthPath)
	if c.Scraper.HealthPath == "" {
		c.Scraper.HealthPath = defaultScraperHealthPath
	}
	if !strings.HasPrefix(c.Scraper.HealthPath, "/") {
		c.Scraper.HealthPath = "/" + c.Scraper.HealthPath
	}
	c.Scraper.Executable = strings.TrimSpace(c.Scraper.Executable)
	if c.Scraper.BaseDir = strings.TrimSpace(c.Scraper.BaseDir); c.Scraper.BaseDir != "" {
		var err error
		if c.Scraper.BaseDir, err = ExpandPath(c.Scraper.BaseDir); err != nil {
			return fmt.Errorf("scraper.base_dir: %w", err)
		}
	}

	candidates := make([]string, 0, len(c.Scraper.WorkDirCandidates))
	seen := make(map[string]struct{}, len(c.Scraper.WorkDirCandidates))
	for _, candidate := range c.Scraper.WorkDirCandidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, exists := seen[candidate]; exists {
			continue
		}
		seen[candidate] = struct{}{}
		candidates = append(candidates, candidate)
	}
	if len(candidates) == 0 {
		candidates = DefaultWorkDirCandidates()
	}
	c.Scraper.WorkDirCandidates = candidates
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv(ntfyTopicEnv); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.QueueSize <= 0 {
		c.Notifications.QueueSize = defaultNotifyQueueSize
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "text", "console":
		format = "console"
	case "json":
	}
	c.Logging.Format = format
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
