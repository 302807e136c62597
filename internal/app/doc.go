// Package app wires configuration, logging, telemetry and the pipeline
// components shared by the importer, enricher and web binaries.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, YAML, .env and the environment
//	2. Apply command line overrides and validate
//	3. Resolve and create the working directories
//	4. Initialize logging and OpenTelemetry
//	5. Build the loader, sink and enrichment processor on demand
//
// # Usage
//
//	a, err := app.NewApplication(configFile, overrides)
//	if err != nil {
//	    return err
//	}
//	defer a.Shutdown(context.Background())
//	resp, err := a.RunImport(ctx)
package app
