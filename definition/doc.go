// Package definition models the node graph a run config is resolved for:
// ops, graphs (with or without a config mapping), the dependency structure
// wiring node inputs to upstream outputs, runtime value types with their
// loader and materializer schemas, resources, loggers, executors,
// intermediate storages, modes and jobs.
//
// Definitions are validated when constructed and immutable afterwards, so a
// published job may be shared by concurrent schema builds.
//
//	load, _ := definition.NewOp(definition.OpConfig{
//	    Name:   "load",
//	    Config: schema.NewField(schema.NewShape(schema.Fields{"table": schema.NewField(schema.String)})),
//	})
//	graph, _ := definition.NewGraph(definition.GraphConfig{
//	    Name:  "etl",
//	    Nodes: []*definition.Node{definition.NewNode("load", load)},
//	})
//	job, _ := definition.NewJob(definition.JobConfig{Name: "etl", Graph: graph})
package definition
