// Package config loads, normalizes, and validates reelsync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// REELSYNC_NTFY_TOPIC and REELSYNC_SCRAPER_URL. The Config type centralizes
// every knob the daemon and CLI need: where the catalog database and logs live,
// how to launch and reach the scraper service, the readiness budget, and the
// sync pipeline's concurrency.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
