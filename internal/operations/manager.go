package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"baaccli/internal/infrastructure"
)

// Manager orchestrates operation execution
type Manager struct {
	registry *Registry
	config   *Config
	logger   *slog.Logger
	metrics  *infrastructure.PipelineMetrics

	mu         sync.RWMutex
	operations map[string]*OperationState
}

// NewManager creates a new operation manager. Nil registry and config fall
// back to empty and default values.
func NewManager(registry *Registry, config *Config, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		registry:   registry,
		config:     config,
		logger:     logger.With(slog.String("component", "operations")),
		metrics:    metrics,
		operations: make(map[string]*OperationState),
	}
}

// Register registers steps in execution order
func (m *Manager) Register(steps ...Step) error {
	for _, s := range steps {
		if err := m.registry.Register(s); err != nil {
			return err
		}
	}
	return nil
}

// Registry returns the step registry
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Execute runs the requested steps sequentially and returns the final state
// alongside its response. A failed step skips every following step.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, *OperationState, error) {
	if req.ID == "" {
		req.ID = "operation-" + uuid.NewString()
	}
	state := NewOperationState(req.ID)

	steps, err := m.registry.Select(req.Steps)
	if err != nil {
		verr := NewValidationError("", err.Error())
		state.Fail(verr)
		return m.createResponse(state), state, verr
	}
	for _, s := range steps {
		state.AddStep(NewStepState(s.ID(), s.Name()))
	}

	m.storeOperation(state)
	defer m.removeOperation(req.ID)

	ctx, span := infrastructure.StartSpan(ctx, "operation.execute",
		attribute.String("operation.id", req.ID),
		attribute.Int("operation.steps", len(steps)))
	defer span.End()

	m.logger.InfoContext(ctx, "operation_start",
		slog.String("operation_id", req.ID),
		slog.Int("step_count", len(steps)))
	state.Start()

	err = m.executeSequential(ctx, state, steps)
	switch {
	case err == nil:
		state.Complete()
	case GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel(err)
	default:
		state.Fail(err)
		infrastructure.RecordError(ctx, err)
	}

	m.logger.InfoContext(ctx, "operation_complete",
		slog.String("operation_id", req.ID),
		slog.String("status", string(state.Status())),
		slog.Duration("duration", state.Duration()))
	return m.createResponse(state), state, err
}

func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	for i, step := range steps {
		if ctx.Err() != nil {
			m.skipRemaining(state, steps[i:], "operation cancelled")
			return NewCancellationError(step.ID())
		}
		if err := m.executeStep(ctx, state, step); err != nil {
			m.skipRemaining(state, steps[i+1:], fmt.Sprintf("previous step %s failed", step.ID()))
			return err
		}
	}
	return nil
}

// executeStep runs one step with its timeout and retry policy
func (m *Manager) executeStep(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStep(step.ID())
	if stepState == nil {
		return NewFatalError("step state not found", nil)
	}
	log := m.logger.With(
		slog.String("operation_id", state.ID),
		slog.String("step", step.ID()))

	if sk, ok := step.(Skipper); ok {
		if reason := sk.SkipReason(state); reason != "" {
			stepState.Skip(reason)
			log.InfoContext(ctx, "step_skipped", slog.String("reason", reason))
			return nil
		}
	}

	timeout := m.config.GetStepTimeout(step.ID())
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stepCtx, span := infrastructure.StartSpan(stepCtx, "operation.step."+step.ID(),
		attribute.String("operation.id", state.ID),
		attribute.String("step.id", step.ID()))
	defer span.End()

	log.InfoContext(stepCtx, "step_start")
	start := time.Now()

	rc := m.config.RetryConfig
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = rc.InitialDelay
	exp.MaxInterval = rc.MaxDelay
	exp.Multiplier = rc.Multiplier
	exp.MaxElapsedTime = 0
	retries := uint64(0)
	if rc.MaxAttempts > 1 {
		retries = uint64(rc.MaxAttempts - 1)
	}

	op := func() error {
		stepState.Start()
		err := step.Execute(stepCtx, state)
		if err == nil {
			return nil
		}
		if stepCtx.Err() != nil || !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		log.WarnContext(stepCtx, "step_retry",
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, retries), stepCtx)
	err := backoff.RetryNotify(op, policy, notify)
	duration := time.Since(start)

	if err == nil {
		stepState.Complete()
		m.metrics.RecordStep(stepCtx, step.ID(), duration, true)
		log.InfoContext(stepCtx, "step_complete", slog.Duration("duration", duration))
		return nil
	}

	switch {
	case ctx.Err() != nil:
		err = NewCancellationError(step.ID())
	case errors.Is(stepCtx.Err(), context.DeadlineExceeded):
		err = NewTimeoutError(step.ID(), timeout.String())
	default:
		err = WrapError(err, step.ID())
	}
	stepState.Fail(err)
	m.metrics.RecordStep(stepCtx, step.ID(), duration, false)
	infrastructure.RecordError(stepCtx, err)
	log.ErrorContext(stepCtx, "step_error",
		slog.Duration("duration", duration),
		slog.String("error", err.Error()))
	return err
}

func (m *Manager) skipRemaining(state *OperationState, steps []Step, reason string) {
	for _, s := range steps {
		if st := state.GetStep(s.ID()); st != nil && st.Status() == StepStatusPending {
			st.Skip(reason)
		}
	}
}

func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	resp := &OperationResponse{
		ID:       state.ID,
		Status:   state.Status(),
		Duration: state.Duration(),
		Steps:    state.Snapshots(),
	}
	if err := state.Err(); err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// GetOperation returns the step snapshots of a running operation
func (m *Manager) GetOperation(id string) ([]StepSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.operations[id]
	if !exists {
		return nil, ErrOperationNotFound
	}
	return state.Snapshots(), nil
}

func (m *Manager) storeOperation(state *OperationState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[state.ID] = state
}

func (m *Manager) removeOperation(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.operations, id)
}
