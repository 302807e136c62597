package operations

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baaccli/internal/config"
	"baaccli/internal/dataprocessing"
	"baaccli/internal/enrichment"
	apperrors "baaccli/internal/errors"
	"baaccli/internal/loader"
	"baaccli/internal/shared/testutil"
	"baaccli/internal/sink"
	"baaccli/pkg/contracts/domain"
)

func str(s string) dataprocessing.Value { return dataprocessing.StringValue(s) }

func pipelineDataset() *dataprocessing.Dataset {
	ts := time.Date(2021, 6, 1, 8, 0, 0, 0, dataprocessing.SourceLocation)
	acc := dataprocessing.NewTable("caract", []string{"num_acc", "an", "dep", "lat", "long", "timestamp"})
	acc.AppendRow([]dataprocessing.Value{str("A"), dataprocessing.IntValue(2021), str("75"),
		dataprocessing.FloatValue(48.85), dataprocessing.FloatValue(2.35), dataprocessing.TimeValue(ts)})
	acc.AppendRow([]dataprocessing.Value{str("B"), dataprocessing.IntValue(2021), str("13"),
		dataprocessing.Null, dataprocessing.Null, dataprocessing.Null})
	acc.AppendRow([]dataprocessing.Value{str("C"), dataprocessing.IntValue(2010), str("13"),
		dataprocessing.FloatValue(43.3), dataprocessing.FloatValue(5.4), dataprocessing.Null})

	veh := dataprocessing.NewTable("vehicules", []string{"num_acc", "num_veh"})
	veh.AppendRow([]dataprocessing.Value{str("A"), str("A01")})
	occ := dataprocessing.NewTable("usagers", []string{"num_acc", "num_veh"})
	occ.AppendRow([]dataprocessing.Value{str("A"), str("A01")})
	return &dataprocessing.Dataset{
		Years:     []int{2010, 2021},
		Accidents: acc,
		Locations: dataprocessing.NewTable("lieux", []string{"num_acc"}),
		Vehicles:  veh,
		Occupants: occ,
	}
}

type fakeLoader struct {
	res *loader.LoadResult
	err error
}

func (f *fakeLoader) Load(context.Context) (*loader.LoadResult, error) { return f.res, f.err }

type fakeEnricher struct {
	got []domain.EnrichmentTarget
}

func (f *fakeEnricher) Enrich(_ context.Context, targets []domain.EnrichmentTarget) (map[string]domain.Enrichment, enrichment.Stats) {
	f.got = targets
	out := make(map[string]domain.Enrichment)
	for _, t := range targets {
		out[t.ID] = domain.Enrichment{Infrastructure: &domain.Infrastructure{SecurityCount: 1, HasRadarOrRail: true}}
	}
	return out, enrichment.Stats{Targets: len(targets), Infrastructure: enrichment.Counts{Success: len(targets)}}
}

type fakeSink struct {
	name    string
	pushed  []domain.AccidentDocument
	applied map[string]domain.Enrichment
	pending []domain.EnrichmentTarget
	minYear int
	pushErr error
}

func (f *fakeSink) Name() string                       { return f.name }
func (f *fakeSink) EnsureSchema(context.Context) error { return nil }
func (f *fakeSink) Close() error                       { return nil }

func (f *fakeSink) Push(_ context.Context, docs []domain.AccidentDocument) (sink.Stats, error) {
	if f.pushErr != nil {
		return sink.Stats{}, f.pushErr
	}
	f.pushed = docs
	return sink.Stats{Succeeded: len(docs), Batches: 1}, nil
}

func (f *fakeSink) PendingEnrichment(_ context.Context, minYear int) ([]domain.EnrichmentTarget, error) {
	f.minYear = minYear
	return f.pending, nil
}

func (f *fakeSink) ApplyEnrichment(_ context.Context, e map[string]domain.Enrichment) (sink.Stats, error) {
	f.applied = e
	return sink.Stats{Succeeded: len(e), Batches: 1}, nil
}

func importerManager(t *testing.T, l DatasetLoader, steps ...Step) *Manager {
	t.Helper()
	return newTestManager(t, append([]Step{NewLoadStep(l)}, steps...)...)
}

func TestImportPipeline(t *testing.T) {
	exportDir := t.TempDir()
	ds := pipelineDataset()
	enricher := &fakeEnricher{}
	store := &fakeSink{name: sink.TypeSQLite}
	logger, logs := testutil.NewTestLogger(t)

	m := importerManager(t, &fakeLoader{res: &loader.LoadResult{Dataset: ds, FromCache: true}},
		NewSampleStep(0, 42),
		NewEnrichStep(enricher, 2019, 500),
		NewExportStep(&config.Paths{ExportDir: exportDir}, logger),
		NewPushStep(store, logger, nil),
	)

	resp, state, err := m.Execute(context.Background(), OperationRequest{})
	require.NoError(t, err)
	assert.Equal(t, map[string]StepStatus{
		StepIDLoad:   StepStatusCompleted,
		StepIDSample: StepStatusSkipped,
		StepIDEnrich: StepStatusCompleted,
		StepIDExport: StepStatusCompleted,
		StepIDPush:   StepStatusCompleted,
	}, statuses(resp))
	assert.Equal(t, true, resp.Steps[0].Metadata["from_cache"])

	require.Len(t, enricher.got, 1, "only 2021 accidents with coordinates")
	assert.Equal(t, "A", enricher.got[0].ID)
	assert.Equal(t, 500, enricher.got[0].Radius)

	require.Len(t, store.pushed, 3)
	assert.NotNil(t, store.pushed[0].Infrastructure)
	assert.Nil(t, store.pushed[1].Infrastructure)
	assert.Equal(t, 3, state.SinkStats().Succeeded)

	for _, name := range []string{AccidentsExportFile, SummaryWorkbookFile} {
		_, err := os.Stat(filepath.Join(exportDir, name))
		assert.NoError(t, err, name)
	}
	assert.Len(t, state.Exports(), 2)

	pushed, ok := logs.Find("push_finished")
	require.True(t, ok)
	assert.Equal(t, sink.TypeSQLite, pushed.Attrs["sink"])
	assert.Equal(t, int64(3), pushed.Attrs["succeeded"])
}

func TestImportPipelineSampling(t *testing.T) {
	store := &fakeSink{name: sink.TypeElasticsearch}
	m := importerManager(t, &fakeLoader{res: &loader.LoadResult{Dataset: pipelineDataset()}},
		NewSampleStep(2, 7),
		NewEnrichStep(nil, 0, 500),
		NewExportStep(nil, nil),
		NewPushStep(store, nil, nil),
	)

	resp, state, err := m.Execute(context.Background(), OperationRequest{})
	require.NoError(t, err)
	st := statuses(resp)
	assert.Equal(t, StepStatusCompleted, st[StepIDSample])
	assert.Equal(t, StepStatusSkipped, st[StepIDEnrich])
	assert.Equal(t, StepStatusSkipped, st[StepIDExport])
	assert.Equal(t, 2, state.Dataset().Accidents.Len())
	assert.Len(t, store.pushed, 2)
}

func TestImportPipelineLoadFailure(t *testing.T) {
	store := &fakeSink{name: sink.TypeSQLite}
	m := importerManager(t, &fakeLoader{err: apperrors.NewTotalFailureError(2)}, NewPushStep(store, nil, nil))

	resp, _, err := m.Execute(context.Background(), OperationRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNoYearsLoaded)
	assert.Equal(t, StepStatusSkipped, statuses(resp)[StepIDPush])
	assert.Nil(t, store.pushed)
}

func TestPushStepDiscardSkips(t *testing.T) {
	m := importerManager(t, &fakeLoader{res: &loader.LoadResult{Dataset: pipelineDataset()}},
		NewPushStep(sink.NewDiscard(nil), nil, nil))
	resp, _, err := m.Execute(context.Background(), OperationRequest{})
	require.NoError(t, err)
	assert.Equal(t, StepStatusSkipped, statuses(resp)[StepIDPush])
}

func TestPushStepRetriesStorageErrors(t *testing.T) {
	store := &fakeSink{name: sink.TypeSQLite, pushErr: apperrors.NewStorageError("locked", errors.New("busy"))}
	m := importerManager(t, &fakeLoader{res: &loader.LoadResult{Dataset: pipelineDataset()}}, NewPushStep(store, nil, nil))

	resp, _, err := m.Execute(context.Background(), OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, 3, resp.Steps[1].Attempts)
}

func TestEnrichOnlyPipeline(t *testing.T) {
	store := &fakeSink{
		name: sink.TypeElasticsearch,
		pending: []domain.EnrichmentTarget{
			{ID: "A", Year: 2021, Lat: 48.85, Lon: 2.35},
			{ID: "C", Year: 2021, Lat: 43.3, Lon: 5.4, Radius: 100},
		},
	}
	enricher := &fakeEnricher{}
	m := newTestManager(t,
		NewPendingStep(store, enricher, 2019, 500),
		NewAnnotateStep(store, nil, nil),
	)

	resp, state, err := m.Execute(context.Background(), OperationRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2019, store.minYear)
	require.Len(t, enricher.got, 2)
	assert.Equal(t, 500, enricher.got[0].Radius, "default radius")
	assert.Equal(t, 100, enricher.got[1].Radius)
	assert.Len(t, store.applied, 2)
	assert.Equal(t, 2, state.SinkStats().Succeeded)
	assert.Equal(t, StepStatusCompleted, statuses(resp)[StepIDAnnotate])
}

func TestEnrichOnlyNothingPending(t *testing.T) {
	store := &fakeSink{name: sink.TypeSQLite}
	m := newTestManager(t,
		NewPendingStep(store, &fakeEnricher{}, 0, 500),
		NewAnnotateStep(store, nil, nil),
	)

	resp, _, err := m.Execute(context.Background(), OperationRequest{})
	require.NoError(t, err)
	assert.Equal(t, StepStatusSkipped, statuses(resp)[StepIDAnnotate])
	assert.Nil(t, store.applied)
}

func TestStepsRequireDataset(t *testing.T) {
	m := newTestManager(t, NewSampleStep(5, 1))
	_, _, err := m.Execute(context.Background(), OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeValidation, GetErrorType(err))
}
