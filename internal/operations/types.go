package operations

import (
	"time"
)

// Step identifiers
const (
	StepIDLoad     = "load"
	StepIDSample   = "sample"
	StepIDEnrich   = "enrich"
	StepIDExport   = "export"
	StepIDPush     = "push"
	StepIDPending  = "enrich_pending"
	StepIDAnnotate = "apply_enrichment"
)

// Step names
const (
	StepNameLoad     = "Dataset Load"
	StepNameSample   = "Sampling"
	StepNameEnrich   = "Enrichment"
	StepNameExport   = "Export"
	StepNamePush     = "Document Push"
	StepNamePending  = "Pending Enrichment"
	StepNameAnnotate = "Enrichment Update"
)

// Default timeouts
const (
	DefaultStepTimeout   = 30 * time.Minute
	DefaultLoadTimeout   = 60 * time.Minute
	DefaultEnrichTimeout = 6 * time.Hour
)

// RetryConfig defines retry behavior for steps
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// NewRetryConfig returns the default retry configuration
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// OperationRequest represents a request to execute an operation
type OperationRequest struct {
	ID string `json:"id"`
	// Steps restricts execution to the listed ids, in registration order.
	// Empty runs every registered step.
	Steps []string `json:"steps,omitempty"`
}

// OperationResponse represents the response from an operation execution
type OperationResponse struct {
	ID       string               `json:"id"`
	Status   OperationStatusValue `json:"status"`
	Duration time.Duration        `json:"duration"`
	Steps    []StepSnapshot       `json:"steps"`
	Error    string               `json:"error,omitempty"`
}
