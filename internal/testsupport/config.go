package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"reelsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Autostart is disabled and readiness polling is shortened so tests run fast.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Scraper.BaseDir = base
	cfgVal.Scraper.Autostart = false
	cfgVal.Readiness.MaxAttempts = 3
	cfgVal.Readiness.IntervalMS = 10
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithScraperURL points the config at a test scraper server.
func WithScraperURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scraper.BaseURL = url
	}
}

// WithNtfyTopic enables notifications against a test server.
func WithNtfyTopic(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = url
	}
}

// WithScraperWorkDir creates a scraper working directory named dir under the
// config's base directory and makes it the only candidate.
func WithScraperWorkDir(dir string) ConfigOption {
	return func(b *configBuilder) {
		target := filepath.Join(b.baseDir, dir)
		if err := os.MkdirAll(target, 0o755); err != nil {
			b.t.Fatalf("mkdir scraper workdir: %v", err)
		}
		b.cfg.Scraper.WorkDirCandidates = []string{dir}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default scraper executable is
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.Scraper.Executable}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteScript(b.t, filepath.Join(binDir, name), "exit 0")
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Scraper.BaseDir
}
