// Package workflow runs the catalog sync pipeline.
//
// A Pipeline executes two ordered phases. The metadata phase scrapes every
// catalog item that has not been updated yet; the episodes phase refreshes air
// dates for series that are still airing. Each phase first waits on the
// readiness gate and is skipped when the scraper stays unavailable. Items
// within a phase run through the bounded task runner, and phase two never
// starts before phase one has drained.
//
// Cancellation is checked before every external call boundary the pipeline
// owns: a run cancelled up front performs no gate probe and no scrape, and a
// cancellation between phases skips the remaining phases.
package workflow
