package component

import (
	"context"

	"github.com/unlearnai/dagster/observability"
)

// Component is a lifecycle-managed part of the service, such as the job
// catalog or the HTTP server.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the component and releases resources.
	Stop(ctx context.Context) error

	// CheckHealth returns the current health of the component.
	observability.HealthChecker
}
