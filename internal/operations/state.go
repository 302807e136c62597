package operations

import (
	"sync"
	"time"

	"baaccli/internal/dataprocessing"
	"baaccli/internal/enrichment"
	"baaccli/internal/loader"
	"baaccli/internal/sink"
	"baaccli/pkg/contracts/domain"
)

// OperationStatusValue represents the overall operation status enum
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// OperationState represents the complete state of an operation execution
// and the artifacts its steps pass along.
type OperationState struct {
	mu sync.RWMutex

	ID        string
	status    OperationStatusValue
	startTime time.Time
	endTime   *time.Time
	err       error

	steps map[string]*StepState
	order []string

	dataset     *dataprocessing.Dataset
	load        *loader.LoadResult
	targets     []domain.EnrichmentTarget
	enrichments map[string]domain.Enrichment
	enrichStats enrichment.Stats
	sinkStats   sink.Stats
	exports     []string
}

// NewOperationState creates a new operation state
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		status:    OperationStatusPending,
		startTime: time.Now(),
		steps:     make(map[string]*StepState),
	}
}

// Start marks the operation as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = OperationStatusRunning
	p.startTime = time.Now()
}

// Complete marks the operation as completed
func (p *OperationState) Complete() {
	p.end(OperationStatusCompleted, nil)
}

// Fail marks the operation as failed
func (p *OperationState) Fail(err error) {
	p.end(OperationStatusFailed, err)
}

// Cancel marks the operation as cancelled
func (p *OperationState) Cancel(err error) {
	p.end(OperationStatusCancelled, err)
}

func (p *OperationState) end(status OperationStatusValue, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.endTime = &now
	p.status = status
	p.err = err
}

// Status returns the operation status
func (p *OperationState) Status() OperationStatusValue {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Err returns the error that ended the operation, if any
func (p *OperationState) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// Duration returns the duration of the operation execution
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.endTime != nil {
		return p.endTime.Sub(p.startTime)
	}
	return time.Since(p.startTime)
}

// AddStep registers the state of a step that will run
func (p *OperationState) AddStep(s *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.steps[s.id]; !ok {
		p.order = append(p.order, s.id)
	}
	p.steps[s.id] = s
}

// GetStep returns the state of a specific step
func (p *OperationState) GetStep(id string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.steps[id]
}

// Snapshots copies every step state in execution order
func (p *OperationState) Snapshots() []StepSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]StepSnapshot, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.steps[id].Snapshot())
	}
	return out
}

// Dataset returns the current working dataset
func (p *OperationState) Dataset() *dataprocessing.Dataset {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dataset
}

// SetDataset replaces the working dataset, e.g. after sampling
func (p *OperationState) SetDataset(ds *dataprocessing.Dataset) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dataset = ds
}

// LoadResult returns the loader outcome
func (p *OperationState) LoadResult() *loader.LoadResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.load
}

// SetLoadResult stores the loader outcome and its dataset
func (p *OperationState) SetLoadResult(res *loader.LoadResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.load = res
	p.dataset = res.Dataset
}

// Targets returns the accidents selected for enrichment
func (p *OperationState) Targets() []domain.EnrichmentTarget {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.targets
}

// SetTargets stores the accidents selected for enrichment
func (p *OperationState) SetTargets(t []domain.EnrichmentTarget) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.targets = t
}

// Enrichments returns the enrichment results keyed by accident id
func (p *OperationState) Enrichments() map[string]domain.Enrichment {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enrichments
}

// EnrichmentStats returns the counters of the enrichment step
func (p *OperationState) EnrichmentStats() enrichment.Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enrichStats
}

// SetEnrichments stores the enrichment results and counters
func (p *OperationState) SetEnrichments(e map[string]domain.Enrichment, stats enrichment.Stats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enrichments = e
	p.enrichStats = stats
}

// SinkStats returns the accumulated sink counters
func (p *OperationState) SinkStats() sink.Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sinkStats
}

// AddSinkStats accumulates sink counters
func (p *OperationState) AddSinkStats(s sink.Stats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinkStats.Succeeded += s.Succeeded
	p.sinkStats.Failed += s.Failed
	p.sinkStats.Batches += s.Batches
}

// Exports returns the paths written by the export step
func (p *OperationState) Exports() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.exports...)
}

// AddExport records a written file
func (p *OperationState) AddExport(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exports = append(p.exports, path)
}
