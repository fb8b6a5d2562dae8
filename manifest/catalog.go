package manifest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/unlearnai/dagster/definition"
	"github.com/unlearnai/dagster/errors"
	"github.com/unlearnai/dagster/observability"
	"github.com/unlearnai/dagster/util"
)

// Catalog is the set of jobs a service exposes, keyed by name. It is safe
// for concurrent use.
type Catalog struct {
	mu   sync.RWMutex
	jobs map[string]*definition.JobDefinition
	// resolver, when set, is where Start and Reload load jobs from.
	resolver *Resolver
}

// NewCatalog creates a catalog holding jobs.
func NewCatalog(jobs ...*definition.JobDefinition) (*Catalog, error) {
	c := &Catalog{jobs: make(map[string]*definition.JobDefinition, len(jobs))}
	for _, job := range jobs {
		if err := c.Add(job); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// NewCatalogFrom creates an empty catalog that loads every job manifest of
// r when started, and again on each Reload.
func NewCatalogFrom(r *Resolver) *Catalog {
	return &Catalog{jobs: make(map[string]*definition.JobDefinition), resolver: r}
}

// Name implements component.Component.
func (c *Catalog) Name() string { return "manifests" }

// Start loads the jobs of a catalog created by NewCatalogFrom. Other
// catalogs have nothing to start.
func (c *Catalog) Start(ctx context.Context) error {
	if c.resolver == nil {
		return nil
	}
	return c.Reload(ctx)
}

// Stop implements component.Component. Jobs stay readable after Stop.
func (c *Catalog) Stop(context.Context) error { return nil }

// Reload resolves every manifest again and swaps the result in. On error
// the current jobs are kept.
func (c *Catalog) Reload(ctx context.Context) error {
	if c.resolver == nil {
		return errors.Internal(fmt.Errorf("catalog has no manifest resolver"))
	}
	fresh, err := LoadCatalog(ctx, c.resolver)
	if err != nil {
		return err
	}
	c.Replace(fresh)
	return nil
}

// LoadCatalog resolves every job manifest the resolver's loader lists.
// Graph manifests are skipped; the first failing manifest aborts loading.
func LoadCatalog(ctx context.Context, r *Resolver) (*Catalog, error) {
	names, err := r.loader.Names()
	if err != nil {
		return nil, err
	}
	c, _ := NewCatalog()
	for _, name := range names {
		m, err := r.loader.Load(name)
		if err != nil {
			return nil, err
		}
		if m.Kind == KindGraph {
			continue
		}
		job, err := r.ResolveJob(ctx, m)
		if err != nil {
			if appErr, ok := errors.AsAppError(err); ok {
				appErr.WithDetail("manifest", name)
			}
			return nil, err
		}
		if err := c.Add(job); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add registers a job. Names are unique.
func (c *Catalog) Add(job *definition.JobDefinition) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.jobs[job.Name()]; ok {
		return errors.AlreadyExists("job", job.Name())
	}
	c.jobs[job.Name()] = job
	return nil
}

// Replace swaps the catalog contents for those of other.
func (c *Catalog) Replace(other *Catalog) {
	other.mu.RLock()
	jobs := make(map[string]*definition.JobDefinition, len(other.jobs))
	for name, job := range other.jobs {
		jobs[name] = job
	}
	other.mu.RUnlock()

	c.mu.Lock()
	c.jobs = jobs
	c.mu.Unlock()
}

// Job looks a job up by name.
func (c *Catalog) Job(name string) (*definition.JobDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	job, ok := c.jobs[name]
	if !ok {
		return nil, errors.NotFound("job", name)
	}
	return job, nil
}

// Names returns the sorted job names.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return util.SortedKeys(c.jobs)
}

// Len returns the number of jobs.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.jobs)
}

// CheckHealth reports the catalog as degraded when it holds no jobs.
func (c *Catalog) CheckHealth(context.Context) observability.Health {
	n := c.Len()
	h := observability.Health{
		Name:    "manifests",
		Status:  observability.HealthStatusUp,
		Details: map[string]string{"jobs": strconv.Itoa(n)},
	}
	if n == 0 {
		h.Status = observability.HealthStatusDegraded
		h.Message = "no jobs loaded"
	}
	return h
}
