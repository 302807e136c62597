// Package http exposes the loaded accident dataset as a read-only JSON API.
//
// Routes:
//
//	GET /api/health               liveness and dataset status
//	GET /api/years                loaded years with row counts
//	GET /api/accidents?year=&limit= flat accident rows of one year
//	GET /api/accidents/{id}       full document of one accident
//	GET /metrics                  Prometheus exposition, when enabled
//
// Errors are rendered as errors.ErrorResponse through go-chi/render.
package http
