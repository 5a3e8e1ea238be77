// Package supervisor owns the external scraper process.
//
// The Supervisor is the only holder of the process handle. Start is
// idempotent: a reachable health endpoint means the service is already up and
// nothing is launched. Otherwise the working directory is located from an
// ordered candidate list, the configured command is started in its own process
// group, and its output is folded into the daemon log. Stop kills the whole
// group and waits for the monitor goroutine to observe the exit.
package supervisor
