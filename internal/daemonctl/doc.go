// Package daemonctl is the CLI's side of the daemon control surface.
//
// Client speaks JSON to the control API bound at paths.api_bind and maps
// connection failures to ErrDaemonNotRunning so commands can print a helpful
// hint instead of a dial error. The process helpers launch a detached
// `reelsync daemon`, wait for its API, and stop it through the pid file with a
// SIGKILL fallback. StreamLogs follows the daemon's in-memory log buffer and
// TailFile reads the session log when the daemon is offline.
package daemonctl
