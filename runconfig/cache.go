package runconfig

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/unlearnai/dagster/definition"
	"github.com/unlearnai/dagster/errors"
	"github.com/unlearnai/dagster/observability"
)

// DefaultCacheSize is the number of schemas a Cache keeps when no size is
// configured.
const DefaultCacheSize = 128

// Cache keeps recently built schemas keyed by job, mode and node
// selection. It is safe for concurrent use.
type Cache struct {
	schemas *lru.Cache[string, *RunConfigSchema]
	opts    []Option
	metrics *observability.Metrics
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewCache creates a cache holding up to size schemas. opts are applied
// to every build; WithMode and WithSelection are overridden per lookup.
func NewCache(size int, opts ...Option) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	schemas, err := lru.New[string, *RunConfigSchema](size)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &Cache{schemas: schemas, opts: opts, metrics: buildOptions(opts).metrics}, nil
}

// Get returns the schema of job for mode and selection, building it on a
// miss. Failed builds are not cached.
func (c *Cache) Get(ctx context.Context, job *definition.JobDefinition, mode string, selection []string) (*RunConfigSchema, error) {
	if job == nil {
		return nil, errors.InvalidInput("job", "job is required")
	}
	key := cacheKey(job, mode, selection)
	if rcs, ok := c.schemas.Get(key); ok {
		c.record(ctx, true)
		return rcs, nil
	}
	c.record(ctx, false)

	opts := append(append([]Option{}, c.opts...), WithMode(mode), WithSelection(selection...))
	rcs, err := Build(ctx, job, opts...)
	if err != nil {
		return nil, err
	}
	c.schemas.Add(key, rcs)
	return rcs, nil
}

func (c *Cache) record(ctx context.Context, hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	observability.SetSpanAttribute(ctx, observability.AttrCacheHit, hit)
	c.metrics.RecordCacheLookup(ctx, hit)
}

// Len returns the number of cached schemas.
func (c *Cache) Len() int { return c.schemas.Len() }

// Purge drops every cached schema, e.g. after manifests are reloaded.
func (c *Cache) Purge() { c.schemas.Purge() }

// CheckHealth reports the cache occupancy and hit counts.
func (c *Cache) CheckHealth(context.Context) observability.Health {
	return observability.Health{
		Name:   "schema_cache",
		Status: observability.HealthStatusUp,
		Details: map[string]string{
			"entries": strconv.Itoa(c.schemas.Len()),
			"hits":    strconv.FormatInt(c.hits.Load(), 10),
			"misses":  strconv.FormatInt(c.misses.Load(), 10),
		},
	}
}

// cacheKey identifies the job by pointer as well as name, so a reloaded
// job with the same name never hits a stale schema.
func cacheKey(job *definition.JobDefinition, mode string, selection []string) string {
	return fmt.Sprintf("%p|%s|%s|%s", job, job.Name(), mode, strings.Join(selection, ","))
}
