// Package manifest builds jobs from YAML manifests.
//
// A manifest names a job (or a reusable graph), its nodes and its modes.
// Nodes refer to ops registered from Go code, to other graph manifests,
// or declare an op inline with the compact config DSL:
//
//	name: etl
//	includes: [shared_graph]
//	resources: {db: postgres}
//	nodes:
//	  - name: extract
//	    op: extract_rows
//	  - name: clean
//	    definition:
//	      config: {threshold: {type: float, default: 0.5}}
//	      inputs: [{name: rows}]
//	    depends_on: {rows: extract.result}
//
// Registry holds the named Go definitions, FileLoader finds manifests on
// disk and Resolver turns a manifest into a definition.JobDefinition.
// Includes are resolved recursively; an include cycle is a definition
// error.
package manifest
