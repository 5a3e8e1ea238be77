package preflight

import (
	"context"

	"reelsync/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional failures are reported as warnings.
	Optional bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if cfg.Scraper.Autostart {
		results = append(results,
			CheckExecutable("Scraper executable", cfg.Scraper.Executable),
			CheckScraperWorkDir(cfg),
		)
	}

	health := CheckScraperHealth(ctx, cfg.HealthURL())
	// An unreachable scraper is expected before the daemon launches it.
	health.Optional = cfg.Scraper.Autostart
	results = append(results, health, CheckNotifications(cfg))
	return results
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
