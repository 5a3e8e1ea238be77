// Package main hosts the reelsync CLI entrypoint and command graph.
//
// The hidden `daemon` command runs the sync host. Every other command is a
// thin client: it resolves configuration, talks to the daemon's control API
// through internal/daemonctl, and renders the result. Commands that only need
// the catalog or the config file (catalog add, config init, preflight) work
// without a running daemon.
package main
