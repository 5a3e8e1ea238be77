// Package logging assembles structured slog loggers and formatting helpers used
// across reelsync.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with run IDs, phases, and catalog item IDs. A bounded in-memory stream
// hub mirrors recent events for the daemon's log API.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the system.
package logging
