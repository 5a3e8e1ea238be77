// Package api defines the wire-format types shared by the daemon's HTTP
// control API and its CLI client, plus converters from internal models.
//
// DTOs use camelCase JSON tags. Timestamps are RFC3339 with milliseconds and
// durations are reported in milliseconds. Raw scraper metadata is passed
// through as json.RawMessage to avoid double-encoding.
package api
