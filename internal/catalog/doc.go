// Package catalog persists the local movie/series catalog in SQLite.
//
// The Store owns the database connection, embedded schema migrations, and the
// typed operations the sync pipeline relies on: listing items, checking and
// marking metadata freshness, detecting series that are still airing, and
// storing episode air dates. Genre and title-type values are normalized on the
// way in so catalog queries can compare them directly.
//
// The scraper service and CLI share the Metadata and EpisodeDate types defined
// here so wire payloads map onto rows without an intermediate model.
package catalog
