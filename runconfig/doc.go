// Package runconfig synthesizes the run config schema of a job and resolves
// run config documents against it.
//
// Build walks the job's node arena and produces one root schema.Field with
// the sections execution, intermediate_storage (and its legacy alias
// storage), loggers, resources and the node dictionary ("ops", aliased as
// "solids", or the reverse for jobs using the solid vocabulary). It also
// flattens every config type reachable from the job into a TypeDictionary,
// rejecting distinct types that share a name.
//
//	rcs, err := runconfig.Build(ctx, job, runconfig.WithMode("prod"))
//	if err != nil {
//	    return err // definition error, no partial schema
//	}
//	resolved, err := rcs.Resolve(ctx, doc)
//
// Schemas are immutable and safe for concurrent use; Cache keeps recently
// built ones keyed by job, mode and node selection.
package runconfig
