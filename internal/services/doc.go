// Package services implements the read side behind the HTTP handlers.
//
// AccidentService serves the loaded dataset: the loaded years with their
// accident counts, a page of flat accident rows per year, and the full
// document of one accident built the same way the sinks receive it.
// HealthService reports liveness and whether a dataset is loaded.
package services
