// Package notifications delivers user-facing events via ntfy.
//
// The default implementation publishes to the ntfy topic configured in
// config.toml and degrades to a no-op when notifications are disabled. The
// Dispatcher wraps any Service with a bounded queue so callers on the sync
// path never block on, or observe errors from, notification delivery.
package notifications
