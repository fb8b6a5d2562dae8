// Package bootstrap runs the schema server's lifecycle: start the
// registered components, run hooks, wait for a shutdown signal and stop
// everything within a graceful timeout.
package bootstrap
