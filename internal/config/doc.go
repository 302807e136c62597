// Package config provides centralized configuration management for the BAAC
// pipeline.
//
// # Configuration Sources
//
// Configuration is built from the following sources, later ones winning:
//
//	1. Default() values
//	2. A YAML file (config.yaml or configs/config.yaml, or an explicit path)
//	3. A .env file in the working directory
//	4. Environment variables
//
// Command line flags are applied by each binary on top of the result.
//
// # Environment Variables
//
// All environment variables follow the pattern BAAC_<SECTION>_<FIELD>:
//
//	BAAC_LOADER_WORKERS=8
//	BAAC_SINK_TYPE=elasticsearch
//	BAAC_SINK_ELASTIC_AUTH_USER=elastic
//	BAAC_SINK_ELASTIC_AUTH_PASSWORD=changeme
//	BAAC_ENRICHMENT_ENABLED=true
//
// The loaded configuration is validated with struct tags before use.
package config
