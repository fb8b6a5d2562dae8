// Package server exposes a job catalog over HTTP.
//
// Routes:
//
//   - GET  /health: catalog and schema cache health
//   - GET  /jobs: job names, modes and top-level nodes
//   - GET  /jobs/:job/schema?mode=&select=a,b: JSON Schema of the run config
//   - GET  /jobs/:job/types?builtins=true: named config types
//   - GET  /jobs/:job/scaffold?optional=true: a default-filled run config
//   - POST /jobs/:job/validate: resolve a YAML or JSON run config
//
// Failures are rendered from errors.AppError; an invalid run config is a
// 422 whose details list every validation error. Schemas come from a
// runconfig.Cache shared by all routes.
//
// Requests pass through the middleware package in order: panic recovery,
// request ids, a server span, request logging and a body size limit.
package server
