package component

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/unlearnai/dagster/errors"
	"github.com/unlearnai/dagster/logger"
	"github.com/unlearnai/dagster/observability"
)

// recorder is a component that appends its lifecycle events to a shared log.
type recorder struct {
	name      string
	events    *[]string
	startErr  error
	stopErr   error
	running   bool
	stoppedIn bool
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Start(context.Context) error {
	*r.events = append(*r.events, "start "+r.name)
	if r.startErr != nil {
		return r.startErr
	}
	r.running = true
	return nil
}

func (r *recorder) Stop(ctx context.Context) error {
	*r.events = append(*r.events, "stop "+r.name)
	_, r.stoppedIn = ctx.Deadline()
	r.running = false
	return r.stopErr
}

func (r *recorder) CheckHealth(context.Context) observability.Health {
	if r.running {
		return observability.Health{Name: r.name, Status: observability.HealthStatusUp}
	}
	return observability.Health{Name: r.name, Status: observability.HealthStatusDown}
}

func TestRegistry_Register(t *testing.T) {
	var events []string
	r := NewRegistry(logger.Nop())
	if err := r.Register(&recorder{name: "manifests", events: &events}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&recorder{name: "manifests", events: &events}); !errors.HasCode(err, errors.ErrCodeAlreadyExists) {
		t.Errorf("expected ALREADY_EXISTS, got %v", err)
	}
	if r.Get("manifests") == nil || r.Get("http") != nil {
		t.Error("Get should find registered components only")
	}
}

func TestRegistry_Lifecycle(t *testing.T) {
	tests := []struct {
		name       string
		startErr   error
		stopErr    error
		wantEvents []string
		wantStart  string
		wantStop   string
	}{
		{
			name:       "start in order stop in reverse",
			wantEvents: []string{"start manifests", "start http", "stop http", "stop manifests"},
		},
		{
			name:       "failed start leaves earlier components to stop",
			startErr:   fmt.Errorf("address in use"),
			wantEvents: []string{"start manifests", "start http", "stop manifests"},
			wantStart:  "failed to start http",
		},
		{
			name:       "stop errors are collected",
			stopErr:    fmt.Errorf("drain timeout"),
			wantEvents: []string{"start manifests", "start http", "stop http", "stop manifests"},
			wantStop:   "failed to stop http",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var events []string
			catalog := &recorder{name: "manifests", events: &events}
			server := &recorder{name: "http", events: &events, startErr: tc.startErr, stopErr: tc.stopErr}
			r := NewRegistry(logger.Nop())
			for _, c := range []Component{catalog, server} {
				if err := r.Register(c); err != nil {
					t.Fatalf("Register: %v", err)
				}
			}

			err := r.StartAll(context.Background())
			if (err != nil) != (tc.wantStart != "") || (err != nil && !strings.Contains(err.Error(), tc.wantStart)) {
				t.Fatalf("StartAll error = %v, want %q", err, tc.wantStart)
			}
			if err == nil {
				health := r.HealthAll(context.Background())
				if len(health) != 2 || health[0].Name != "manifests" || health[1].Status != observability.HealthStatusUp {
					t.Errorf("unexpected health %+v", health)
				}
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err = r.StopAll(ctx)
			if (err != nil) != (tc.wantStop != "") || (err != nil && !strings.Contains(err.Error(), tc.wantStop)) {
				t.Fatalf("StopAll error = %v, want %q", err, tc.wantStop)
			}
			if !slices.Equal(events, tc.wantEvents) {
				t.Errorf("events = %v, want %v", events, tc.wantEvents)
			}
			if !catalog.stoppedIn {
				t.Error("Stop should receive the caller's deadline")
			}

			events = events[:0]
			if err := r.StopAll(ctx); err != nil || len(events) != 0 {
				t.Errorf("a second StopAll should be a no-op, got %v %v", err, events)
			}
		})
	}
}
