// Command dagster-schema builds, exports and checks run config schemas of
// jobs declared in YAML manifests, and serves them over HTTP.
package main

import (
	"os"
)

const serviceName = "dagster-schema"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
