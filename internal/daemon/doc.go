// Package daemon coordinates the long-running reelsync process.
//
// It wires the catalog store, scraper client, readiness gate, service
// supervisor, and lifecycle controller into a single host guarded by a
// flock-based single-instance lock. The daemon exposes an HTTP control API for
// status, sync restarts, bulk scrapes, catalog listing, live logs, and
// Prometheus metrics.
//
// Keep orchestration logic here: the sync itself lives in workflow and
// lifecycle while the daemon focuses on startup, shutdown, and the bulk scrape
// handoff that restarts in-flight work.
package daemon
