// Package services defines shared utilities consumed by the sync orchestrator
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, phase names, and catalog item
//     IDs so log lines can be correlated across concurrent invocations.
//   - Structured error markers plus the Wrap and Classify helpers that keep the
//     failure taxonomy (fatal, degraded, per-item, cancelled) uniform across
//     components.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across the orchestrator.
package services
