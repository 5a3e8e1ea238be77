// Package scraper is the HTTP client for the external scraping service.
//
// The client covers the four endpoints the orchestrator depends on: the
// liveness probe, bulk scrape, per-item metadata scrape, and episode air date
// lookup. Every request carries its own timeout so an admitted call is never
// cut short by a pipeline restart. Failures are wrapped with services markers
// so callers can classify them without inspecting HTTP details.
package scraper
