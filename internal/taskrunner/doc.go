// Package taskrunner runs one action over a list of items with bounded
// concurrency.
//
// Admission is counted: at most limit actions are in flight, and the
// remaining items wait their turn. The context is consulted only at
// admission, so an admitted action always runs to completion while items
// still queued after cancellation are skipped. Failures and panics are
// contained per item and reported through the Summary.
package taskrunner
