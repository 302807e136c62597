package enrichment

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baaccli/internal/dataprocessing"
	"baaccli/pkg/contracts/domain"
)

type fakeInfra struct {
	calls int32
	fn    func(lat float64) (*domain.Infrastructure, error)
}

func (f *fakeInfra) Infrastructure(ctx context.Context, lat, lon float64, radius int) (*domain.Infrastructure, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.fn(lat)
}

type fakeWeather struct{}

func (fakeWeather) Weather(ctx context.Context, lat, lon float64, at time.Time) (*domain.Weather, error) {
	temp := float64(at.Hour())
	return &domain.Weather{TempC: &temp}, nil
}

func TestProcessor_Enrich(t *testing.T) {
	infra := &fakeInfra{fn: func(lat float64) (*domain.Infrastructure, error) {
		switch lat {
		case 1:
			return &domain.Infrastructure{SecurityCount: 2, HasRadarOrRail: true}, nil
		case 2:
			return nil, nil
		default:
			return nil, errors.New("upstream down")
		}
	}}
	at := time.Date(2021, 5, 1, 14, 0, 0, 0, dataprocessing.SourceLocation)
	targets := []domain.EnrichmentTarget{
		{ID: "a", Lat: 1, Lon: 1, Radius: 1000, Time: &at},
		{ID: "b", Lat: 2, Lon: 1, Radius: 1000},
		{ID: "c", Lat: 3, Lon: 1, Radius: 1000},
	}

	p := NewProcessor(infra, fakeWeather{}, 2, nil, nil)
	got, stats := p.Enrich(context.Background(), targets)

	assert.Equal(t, 3, stats.Targets)
	assert.Equal(t, Counts{Success: 1, Empty: 1, Error: 1}, stats.Infrastructure)
	assert.Equal(t, Counts{Success: 1, Empty: 2}, stats.Weather)

	require.Contains(t, got, "a")
	assert.Equal(t, 2, got["a"].Infrastructure.SecurityCount)
	assert.Equal(t, 14.0, *got["a"].Weather.TempC)
	assert.NotContains(t, got, "b")
	assert.NotContains(t, got, "c", "a failed lookup only nulls that accident")
}

func TestProcessor_HTTPStatusCountsAsError(t *testing.T) {
	infra := &fakeInfra{fn: func(float64) (*domain.Infrastructure, error) {
		return nil, &StatusError{StatusCode: 503, URL: "overpass/api"}
	}}
	p := NewProcessor(infra, nil, 1, nil, nil)

	got, stats := p.Enrich(context.Background(), []domain.EnrichmentTarget{{ID: "a", Lat: 1, Lon: 1}})
	assert.Empty(t, got)
	assert.Equal(t, Counts{Error: 1}, stats.Infrastructure)

	s := p.status(context.Background(), domain.EnrichmentTarget{ID: "a"}, SourceInfrastructure, false, &StatusError{StatusCode: 500})
	assert.Equal(t, StatusFailed, s)
	assert.Equal(t, Status("error"), StatusFailed)
}

func TestProcessor_InfrastructureOnly(t *testing.T) {
	infra := &fakeInfra{fn: func(float64) (*domain.Infrastructure, error) {
		return &domain.Infrastructure{}, nil
	}}
	p := NewProcessor(infra, nil, 4, nil, nil)
	got, stats := p.Enrich(context.Background(), []domain.EnrichmentTarget{{ID: "x"}, {ID: "y"}})

	assert.Len(t, got, 2)
	assert.Equal(t, 2, stats.Infrastructure.Success)
	assert.Equal(t, Counts{}, stats.Weather)
}

func TestProcessor_Empty(t *testing.T) {
	got, stats := NewProcessor(&fakeInfra{}, nil, 1, nil, nil).Enrich(context.Background(), nil)
	assert.Empty(t, got)
	assert.Equal(t, 0, stats.Targets)
}

func TestProcessor_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	infra := &fakeInfra{}
	infra.fn = func(float64) (*domain.Infrastructure, error) {
		cancel()
		return &domain.Infrastructure{SecurityCount: 1}, nil
	}

	targets := make([]domain.EnrichmentTarget, 50)
	for i := range targets {
		targets[i] = domain.EnrichmentTarget{ID: string(rune('a' + i%26)), Lat: float64(i)}
	}

	p := NewProcessor(infra, nil, 1, nil, nil)
	_, stats := p.Enrich(ctx, targets)

	calls := atomic.LoadInt32(&infra.calls)
	assert.Less(t, int(calls), len(targets))
	assert.Equal(t, len(targets), stats.Infrastructure.Success+stats.Infrastructure.Cancelled)
	assert.Positive(t, stats.Infrastructure.Cancelled)
}

func TestTargetsFromTable(t *testing.T) {
	ts := time.Date(2021, 3, 2, 8, 0, 0, 0, dataprocessing.SourceLocation)
	acc := dataprocessing.NewTable("caract", []string{
		domain.ColumnAccidentID, domain.ColumnYear, domain.ColumnLatitude, domain.ColumnLongitude, domain.ColumnTimestamp,
	})
	acc.AppendRow([]dataprocessing.Value{dataprocessing.StringValue("1"), dataprocessing.IntValue(2021), dataprocessing.FloatValue(48), dataprocessing.FloatValue(2), dataprocessing.TimeValue(ts)})
	acc.AppendRow([]dataprocessing.Value{dataprocessing.StringValue("2"), dataprocessing.IntValue(2021), dataprocessing.Null, dataprocessing.Null})
	acc.AppendRow([]dataprocessing.Value{dataprocessing.StringValue("3"), dataprocessing.IntValue(2015), dataprocessing.FloatValue(45), dataprocessing.FloatValue(1)})

	all := TargetsFromTable(acc, 0, 1000)
	require.Len(t, all, 2)
	assert.Equal(t, "1", all[0].ID)
	require.NotNil(t, all[0].Time)
	assert.True(t, ts.Equal(*all[0].Time))
	assert.Nil(t, all[1].Time)
	assert.Equal(t, 1000, all[1].Radius)

	recent := TargetsFromTable(acc, 2019, 500)
	require.Len(t, recent, 1)
	assert.Equal(t, "1", recent[0].ID)
}
