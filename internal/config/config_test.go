package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"reelsync/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("REELSYNC_SCRAPER_URL", "")
	t.Setenv("REELSYNC_NTFY_TOPIC", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "reelsync")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.CatalogPath() != filepath.Join(wantData, "catalog.db") {
		t.Fatalf("unexpected catalog path: %q", cfg.CatalogPath())
	}
	if cfg.HealthURL() != "http://127.0.0.1:8000/health" {
		t.Fatalf("unexpected health url: %q", cfg.HealthURL())
	}
	if cfg.Readiness.MaxAttempts != 20 || cfg.Readiness.IntervalMS != 500 {
		t.Fatalf("unexpected readiness defaults: %+v", cfg.Readiness)
	}
	if cfg.Sync.Concurrency != 2 {
		t.Fatalf("expected concurrency 2, got %d", cfg.Sync.Concurrency)
	}
	if cfg.ScraperTimeout().Seconds() != 120 {
		t.Fatalf("expected 120s scraper timeout, got %s", cfg.ScraperTimeout())
	}
	if got := cfg.Scraper.WorkDirCandidates; len(got) != 4 || got[0] != "scraper" {
		t.Fatalf("unexpected workdir candidates: %v", got)
	}
}

func TestLoadReadsFileAndEnvOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("REELSYNC_SCRAPER_URL", "http://scraper.local:9000/")
	t.Setenv("REELSYNC_NTFY_TOPIC", "https://ntfy.sh/reelsync-test")

	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[paths]
data_dir = "~/catalog"

[scraper]
health_path = "healthz"
workdir_candidates = ["svc", " svc ", "", "../svc"]

[sync]
concurrency = 4

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "catalog") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.HealthURL() != "http://scraper.local:9000/healthz" {
		t.Fatalf("unexpected health url: %q", cfg.HealthURL())
	}
	if got := cfg.Scraper.WorkDirCandidates; len(got) != 2 || got[0] != "svc" || got[1] != "../svc" {
		t.Fatalf("expected deduplicated candidates, got %v", got)
	}
	if cfg.Sync.Concurrency != 4 {
		t.Fatalf("expected concurrency 4, got %d", cfg.Sync.Concurrency)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected canonical logging values, got %+v", cfg.Logging)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/reelsync-test" {
		t.Fatalf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "zero concurrency",
			mutate: func(c *config.Config) { c.Sync.Concurrency = 0 },
			want:   "sync.concurrency",
		},
		{
			name:   "excessive concurrency",
			mutate: func(c *config.Config) { c.Sync.Concurrency = 1000 },
			want:   "sync.concurrency",
		},
		{
			name:   "non-http scraper url",
			mutate: func(c *config.Config) { c.Scraper.BaseURL = "ftp://example.com" },
			want:   "scraper.base_url",
		},
		{
			name:   "zero attempts",
			mutate: func(c *config.Config) { c.Readiness.MaxAttempts = 0 },
			want:   "readiness.max_attempts",
		},
		{
			name:   "autostart without executable",
			mutate: func(c *config.Config) { c.Scraper.Executable = "" },
			want:   "scraper.executable",
		},
		{
			name:   "unknown log level",
			mutate: func(c *config.Config) { c.Logging.Level = "verbose" },
			want:   "logging.level",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if decoded.Sync.Concurrency != 2 {
		t.Fatalf("expected sample concurrency 2, got %d", decoded.Sync.Concurrency)
	}

	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}

func TestEncodeRoundTripsThroughTOML(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = "https://ntfy.sh/example"
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(encoded, "[notifications]") || !strings.Contains(encoded, "https://ntfy.sh/example") {
		t.Fatalf("expected ntfy topic in encoded config:\n%s", encoded)
	}
}

func TestScrapeRequestTimeoutCoversReadinessWait(t *testing.T) {
	cfg := config.Default()
	if got := cfg.ReadinessBudget(); got != 110*time.Second {
		t.Fatalf("expected 20 x (5s + 500ms) readiness budget, got %s", got)
	}
	if got := cfg.ScrapeRequestTimeout(); got != 230*time.Second {
		t.Fatalf("expected readiness budget plus 120s scrape, got %s", got)
	}
}
