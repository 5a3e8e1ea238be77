// Package lifecycle owns the sync run state machine.
//
// The Controller holds at most one current RunToken. Start retires the
// current token and hands off to a fresh one under a single lock, and the new
// run waits for the retired run to exit before the pipeline is invoked, so two
// pipeline runs never overlap. Shutdown happens once: it cancels the active
// run, waits for it, then stops the service supervisor.
package lifecycle
