// Package component defines the lifecycle contract of the long-running
// parts of the schema server, and a registry that starts them in order
// and stops them in reverse.
package component
