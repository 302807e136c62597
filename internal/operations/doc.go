// Package operations runs the BAAC pipeline as an ordered list of steps.
//
// Core Components:
//
// Manager: executes the registered steps one after another against a shared
// OperationState, with per-step timeouts, retries for retryable failures,
// spans and step duration metrics. A failed step skips every step after it.
//
// Step: a single unit of work (load, sample, enrich, export, push, or the
// enrich-only pending flow). Steps that implement Skipper may opt out for a
// given state, e.g. enrichment when it is disabled.
//
// Registry: keeps steps in registration order, which is the execution order.
//
// State: the operation and per-step runtime state, plus the artifacts steps
// hand to each other (dataset, enrichments, sink statistics).
package operations
