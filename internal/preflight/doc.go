// Package preflight provides readiness checks for the filesystem paths and
// external services reelsync depends on.
//
// The CLI "reelsync preflight" command runs RunAll and prints one line per
// check; "reelsync status" reuses the scraper checks when the daemon is not
// running. Scraper checks are skipped when autostart is disabled and the
// service is expected to be managed elsewhere.
package preflight
