// Package logger provides structured logging backed by zerolog.
//
// Loggers carry a service name and can be narrowed to a component, a job
// or a node handle so that schema builds and validations are traceable:
//
//	log := logger.WithComponent("runconfig").WithJob("etl", "default")
//	log.Debug("schema built", logger.Fields(logger.FieldTypeKey, key))
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"   # or "console"
//	  output: "stderr"
package logger
