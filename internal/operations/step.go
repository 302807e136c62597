package operations

import (
	"context"
	"sync"
	"time"
)

// Step represents a single step in the operation
type Step interface {
	// ID returns the unique identifier for this step
	ID() string

	// Name returns the human-readable name for this step
	Name() string

	// Execute runs the step against the shared operation state
	Execute(ctx context.Context, state *OperationState) error
}

// Skipper is implemented by steps that may not apply to a given run. A
// non-empty reason skips the step without failing the operation.
type Skipper interface {
	SkipReason(state *OperationState) string
}

// StepStatus represents the current status of a step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState represents the runtime state of a step
type StepState struct {
	mu        sync.RWMutex
	id        string
	name      string
	status    StepStatus
	attempts  int
	startTime *time.Time
	endTime   *time.Time
	message   string
	err       error
	metadata  map[string]interface{}
}

// StepSnapshot is a read-only copy of a StepState.
type StepSnapshot struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Status    StepStatus             `json:"status"`
	Attempts  int                    `json:"attempts"`
	StartTime *time.Time             `json:"start_time,omitempty"`
	EndTime   *time.Time             `json:"end_time,omitempty"`
	Duration  time.Duration          `json:"duration"`
	Message   string                 `json:"message,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewStepState creates a new step state with default values
func NewStepState(id, name string) *StepState {
	return &StepState{
		id:       id,
		name:     name,
		status:   StepStatusPending,
		metadata: make(map[string]interface{}),
	}
}

// Start marks the step as active and counts the attempt
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.startTime == nil {
		s.startTime = &now
	}
	s.attempts++
	s.status = StepStatusActive
}

// Complete marks the step as completed and sets the end time
func (s *StepState) Complete() {
	s.finish(StepStatusCompleted, "", nil)
}

// Fail marks the step as failed with the given error
func (s *StepState) Fail(err error) {
	s.finish(StepStatusFailed, "", err)
}

// Skip marks the step as skipped with the given reason
func (s *StepState) Skip(reason string) {
	s.finish(StepStatusSkipped, reason, nil)
}

func (s *StepState) finish(status StepStatus, message string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.endTime = &now
	s.status = status
	if message != "" {
		s.message = message
	}
	s.err = err
}

// SetMetadata records a step output such as a row count or a file path.
func (s *StepState) SetMetadata(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[key] = value
}

// Status returns the current status
func (s *StepState) Status() StepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Duration returns the duration of the step execution
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.duration()
}

func (s *StepState) duration() time.Duration {
	if s.startTime == nil {
		return 0
	}
	if s.endTime != nil {
		return s.endTime.Sub(*s.startTime)
	}
	return time.Since(*s.startTime)
}

// Snapshot copies the state.
func (s *StepState) Snapshot() StepSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StepSnapshot{
		ID:        s.id,
		Name:      s.name,
		Status:    s.status,
		Attempts:  s.attempts,
		StartTime: s.startTime,
		EndTime:   s.endTime,
		Duration:  s.duration(),
		Message:   s.message,
		Metadata:  make(map[string]interface{}, len(s.metadata)),
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	for k, v := range s.metadata {
		snap.Metadata[k] = v
	}
	return snap
}

// BaseStep provides the identity half of a Step implementation
type BaseStep struct {
	id   string
	name string
}

// NewBaseStep creates a new base step
func NewBaseStep(id, name string) BaseStep {
	return BaseStep{id: id, name: name}
}

// ID returns the step ID
func (b BaseStep) ID() string { return b.id }

// Name returns the step name
func (b BaseStep) Name() string { return b.name }
