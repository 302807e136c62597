package operations

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"baaccli/internal/config"
	"baaccli/internal/dataprocessing"
	"baaccli/internal/documents"
	"baaccli/internal/enrichment"
	apperrors "baaccli/internal/errors"
	"baaccli/internal/exporter"
	"baaccli/internal/infrastructure"
	"baaccli/internal/loader"
	"baaccli/internal/sink"
	"baaccli/pkg/contracts/domain"
)

// Enricher is the part of enrichment.Processor the steps use.
type Enricher interface {
	Enrich(ctx context.Context, targets []domain.EnrichmentTarget) (map[string]domain.Enrichment, enrichment.Stats)
}

// DatasetLoader is the part of loader.Loader the steps use.
type DatasetLoader interface {
	Load(ctx context.Context) (*loader.LoadResult, error)
}

func requireDataset(state *OperationState, step string) (*dataprocessing.Dataset, error) {
	ds := state.Dataset()
	if ds == nil {
		return nil, NewValidationError(step, "no dataset loaded")
	}
	return ds, nil
}

// LoadStep loads every year through the cache-aware loader.
type LoadStep struct {
	BaseStep
	loader DatasetLoader
}

// NewLoadStep creates the load step
func NewLoadStep(l DatasetLoader) *LoadStep {
	return &LoadStep{BaseStep: NewBaseStep(StepIDLoad, StepNameLoad), loader: l}
}

// Execute implements Step
func (s *LoadStep) Execute(ctx context.Context, state *OperationState) error {
	res, err := s.loader.Load(ctx)
	if err != nil {
		return err
	}
	state.SetLoadResult(res)

	st := state.GetStep(s.ID())
	st.SetMetadata("from_cache", res.FromCache)
	st.SetMetadata("years", res.Dataset.Years)
	st.SetMetadata("counts", res.Dataset.Counts())
	if len(res.Failures) > 0 {
		st.SetMetadata("skipped_years", loader.Summary(res.Failures))
	}
	return nil
}

// SampleStep restricts the dataset to a seeded random subset of accidents.
type SampleStep struct {
	BaseStep
	size int
	seed int64
}

// NewSampleStep creates the sampling step. size 0 disables it.
func NewSampleStep(size int, seed int64) *SampleStep {
	return &SampleStep{BaseStep: NewBaseStep(StepIDSample, StepNameSample), size: size, seed: seed}
}

// SkipReason implements Skipper
func (s *SampleStep) SkipReason(*OperationState) string {
	if s.size <= 0 {
		return "sampling disabled"
	}
	return ""
}

// Execute implements Step
func (s *SampleStep) Execute(ctx context.Context, state *OperationState) error {
	ds, err := requireDataset(state, s.ID())
	if err != nil {
		return err
	}
	sampled := ds.Sample(s.size, s.seed)
	state.SetDataset(sampled)
	state.GetStep(s.ID()).SetMetadata("counts", sampled.Counts())
	return nil
}

// EnrichStep enriches the loaded accidents that carry coordinates.
type EnrichStep struct {
	BaseStep
	enricher Enricher
	minYear  int
	radius   int
}

// NewEnrichStep creates the enrichment step. A nil enricher disables it.
func NewEnrichStep(e Enricher, minYear, radius int) *EnrichStep {
	return &EnrichStep{BaseStep: NewBaseStep(StepIDEnrich, StepNameEnrich), enricher: e, minYear: minYear, radius: radius}
}

// SkipReason implements Skipper
func (s *EnrichStep) SkipReason(*OperationState) string {
	if s.enricher == nil {
		return "enrichment disabled"
	}
	return ""
}

// Execute implements Step
func (s *EnrichStep) Execute(ctx context.Context, state *OperationState) error {
	ds, err := requireDataset(state, s.ID())
	if err != nil {
		return err
	}
	targets := enrichment.TargetsFromTable(ds.Accidents, s.minYear, s.radius)
	state.SetTargets(targets)
	return runEnrichment(ctx, s.enricher, state, s.ID(), targets)
}

func runEnrichment(ctx context.Context, e Enricher, state *OperationState, stepID string, targets []domain.EnrichmentTarget) error {
	enrichments, stats := e.Enrich(ctx, targets)
	if err := ctx.Err(); err != nil {
		return err
	}
	state.SetEnrichments(enrichments, stats)

	st := state.GetStep(stepID)
	st.SetMetadata("targets", len(targets))
	st.SetMetadata("enriched", len(enrichments))
	st.SetMetadata("stats", stats)
	return nil
}

// ExportStep writes the flat accident CSV and the summary workbook.
type ExportStep struct {
	BaseStep
	csv    *exporter.CSVWriter
	dir    string
	logger *slog.Logger
}

// Export file names
const (
	AccidentsExportFile = "accidents.csv"
	SummaryWorkbookFile = "summary.xlsx"
)

// NewExportStep creates the export step. An empty dir disables it.
func NewExportStep(paths *config.Paths, logger *slog.Logger) *ExportStep {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ExportStep{BaseStep: NewBaseStep(StepIDExport, StepNameExport), logger: logger}
	if paths != nil && paths.ExportDir != "" {
		s.csv = exporter.NewCSVWriter(paths)
		s.dir = paths.ExportDir
	}
	return s
}

// SkipReason implements Skipper
func (s *ExportStep) SkipReason(*OperationState) string {
	if s.csv == nil {
		return "no export directory"
	}
	return ""
}

// Execute implements Step
func (s *ExportStep) Execute(ctx context.Context, state *OperationState) error {
	ds, err := requireDataset(state, s.ID())
	if err != nil {
		return err
	}
	path, err := exporter.ExportAccidents(s.csv, ds, AccidentsExportFile)
	if err != nil {
		return apperrors.NewStorageError("export accidents", err)
	}
	state.AddExport(path)

	workbook := filepath.Join(s.dir, SummaryWorkbookFile)
	if err := exporter.WriteSummaryWorkbook(ds, workbook); err != nil {
		return apperrors.NewStorageError("write summary workbook", err)
	}
	state.AddExport(workbook)

	s.logger.InfoContext(ctx, "export_written",
		slog.String("accidents", path),
		slog.String("workbook", workbook))
	state.GetStep(s.ID()).SetMetadata("files", state.Exports())
	return nil
}

// PushStep builds one document per accident and upserts them to the sink.
type PushStep struct {
	BaseStep
	sink    sink.Sink
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
}

// NewPushStep creates the push step. The discard sink disables it.
func NewPushStep(s sink.Sink, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *PushStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PushStep{BaseStep: NewBaseStep(StepIDPush, StepNamePush), sink: s, logger: logger, metrics: metrics}
}

// SkipReason implements Skipper
func (s *PushStep) SkipReason(*OperationState) string {
	if s.sink == nil || s.sink.Name() == sink.TypeNone {
		return "no sink configured"
	}
	return ""
}

// Execute implements Step
func (s *PushStep) Execute(ctx context.Context, state *OperationState) error {
	ds, err := requireDataset(state, s.ID())
	if err != nil {
		return err
	}
	if err := s.sink.EnsureSchema(ctx); err != nil {
		return err
	}
	docs := documents.Build(ds, state.Enrichments())
	stats, err := s.sink.Push(ctx, docs)
	s.metrics.RecordDocuments(ctx, s.sink.Name(), stats.Succeeded, stats.Failed)
	if err != nil {
		return err
	}
	state.AddSinkStats(stats)

	s.logger.InfoContext(ctx, "push_finished",
		slog.String("sink", s.sink.Name()),
		slog.Int("documents", len(docs)),
		slog.Int("succeeded", stats.Succeeded),
		slog.Int("failed", stats.Failed),
		slog.Int("batches", stats.Batches))
	st := state.GetStep(s.ID())
	st.SetMetadata("documents", len(docs))
	st.SetMetadata("stats", stats)
	return nil
}

// PendingStep finds stored accidents without infrastructure enrichment and
// enriches them.
type PendingStep struct {
	BaseStep
	sink     sink.Sink
	enricher Enricher
	minYear  int
	radius   int
}

// NewPendingStep creates the enrich-only lookup step
func NewPendingStep(s sink.Sink, e Enricher, minYear, radius int) *PendingStep {
	return &PendingStep{
		BaseStep: NewBaseStep(StepIDPending, StepNamePending),
		sink:     s,
		enricher: e,
		minYear:  minYear,
		radius:   radius,
	}
}

// Execute implements Step
func (s *PendingStep) Execute(ctx context.Context, state *OperationState) error {
	if s.sink == nil || s.enricher == nil {
		return NewValidationError(s.ID(), "enrich-only mode needs a sink and an enricher")
	}
	targets, err := s.sink.PendingEnrichment(ctx, s.minYear)
	if err != nil {
		return err
	}
	for i := range targets {
		if targets[i].Radius == 0 {
			targets[i].Radius = s.radius
		}
	}
	state.SetTargets(targets)
	return runEnrichment(ctx, s.enricher, state, s.ID(), targets)
}

// AnnotateStep writes enrichment results back onto stored documents.
type AnnotateStep struct {
	BaseStep
	sink    sink.Sink
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
}

// NewAnnotateStep creates the partial update step
func NewAnnotateStep(s sink.Sink, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *AnnotateStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnnotateStep{BaseStep: NewBaseStep(StepIDAnnotate, StepNameAnnotate), sink: s, logger: logger, metrics: metrics}
}

// SkipReason implements Skipper
func (s *AnnotateStep) SkipReason(state *OperationState) string {
	if len(state.Enrichments()) == 0 {
		return "nothing to update"
	}
	return ""
}

// Execute implements Step
func (s *AnnotateStep) Execute(ctx context.Context, state *OperationState) error {
	if s.sink == nil {
		return NewValidationError(s.ID(), "no sink configured")
	}
	enrichments := state.Enrichments()
	stats, err := s.sink.ApplyEnrichment(ctx, enrichments)
	s.metrics.RecordDocuments(ctx, s.sink.Name(), stats.Succeeded, stats.Failed)
	if err != nil {
		return err
	}
	state.AddSinkStats(stats)
	s.logger.InfoContext(ctx, "enrichment_applied",
		slog.String("sink", s.sink.Name()),
		slog.Int("updated", stats.Succeeded),
		slog.Int("failed", stats.Failed))
	state.GetStep(s.ID()).SetMetadata("stats", stats)
	if stats.Failed > 0 && stats.Succeeded == 0 {
		return NewExecutionError(s.ID(), fmt.Errorf("all %d updates failed", stats.Failed), false)
	}
	return nil
}
