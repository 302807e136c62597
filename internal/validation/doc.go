// Package validation checks the data and output directories before a
// pipeline run so misconfigured paths fail fast with a validation error.
package validation
