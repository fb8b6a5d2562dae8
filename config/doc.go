// Package config loads the service configuration of the schema tooling.
//
// Values come from a YAML file (explicit path, or the first
// dagster-schema.yml / config.yml found in the usual locations), then from
// a .env file loaded with godotenv, then from DAGSTER_SCHEMA_* environment
// variables:
//
//	var cfg config.ServiceConfig
//	if err := config.LoadConfig("dagster-schema", &cfg); err != nil {
//	    return err
//	}
//
// DAGSTER_SCHEMA_SERVER_ADDR overrides server.addr,
// DAGSTER_SCHEMA_MANIFESTS_DIRS (comma separated) overrides manifests.dirs.
package config
