package enrichment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"baaccli/internal/infrastructure"
	"baaccli/pkg/contracts/domain"
)

// Source names an enrichment upstream.
type Source string

const (
	SourceInfrastructure Source = "overpass"
	SourceWeather        Source = "meteo"
)

// Status is the outcome of one lookup.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusEmpty     Status = "empty"
	StatusFailed    Status = "error"
	StatusCancelled Status = "cancelled"
)

// InfrastructureProvider looks up road-safety equipment around a point.
type InfrastructureProvider interface {
	Infrastructure(ctx context.Context, lat, lon float64, radius int) (*domain.Infrastructure, error)
}

// WeatherProvider looks up the weather at a point and hour.
type WeatherProvider interface {
	Weather(ctx context.Context, lat, lon float64, at time.Time) (*domain.Weather, error)
}

// Counts tallies lookup outcomes for one source.
type Counts struct {
	Success   int `json:"success"`
	Empty     int `json:"empty"`
	Error     int `json:"error"`
	Cancelled int `json:"cancelled"`
}

func (c *Counts) add(s Status) {
	switch s {
	case StatusSuccess:
		c.Success++
	case StatusEmpty:
		c.Empty++
	case StatusFailed:
		c.Error++
	case StatusCancelled:
		c.Cancelled++
	}
}

// Stats summarizes a batch.
type Stats struct {
	Targets        int    `json:"targets"`
	Infrastructure Counts `json:"infrastructure"`
	Weather        Counts `json:"weather"`
}

// Processor enriches accidents on a bounded pool of workers.
type Processor struct {
	infra   InfrastructureProvider
	weather WeatherProvider
	workers int
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
}

// NewProcessor creates a processor. Either provider may be nil to skip that
// source.
func NewProcessor(infra InfrastructureProvider, weather WeatherProvider, workers int, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}
	return &Processor{infra: infra, weather: weather, workers: workers, logger: logger, metrics: metrics}
}

// Enrich looks up every target and returns the non-empty enrichments by
// accident id. Once ctx is cancelled no new lookup starts; lookups already
// running finish or fail on their own.
func (p *Processor) Enrich(ctx context.Context, targets []domain.EnrichmentTarget) (map[string]domain.Enrichment, Stats) {
	ctx, span := infrastructure.StartSpan(ctx, "enrichment.batch")
	defer span.End()

	stats := Stats{Targets: len(targets)}
	out := make(map[string]domain.Enrichment)
	if len(targets) == 0 {
		p.logger.InfoContext(ctx, "no accident to enrich")
		return out, stats
	}

	p.logger.InfoContext(ctx, "enrichment started",
		slog.Int("targets", len(targets)),
		slog.Int("workers", p.workers))

	var mu sync.Mutex
	record := func(id string, e domain.Enrichment, infraStatus, weatherStatus Status) {
		mu.Lock()
		defer mu.Unlock()
		if p.infra != nil {
			stats.Infrastructure.add(infraStatus)
		}
		if p.weather != nil {
			stats.Weather.add(weatherStatus)
		}
		if !e.IsEmpty() {
			out[id] = e
		}
	}

	var g errgroup.Group
	g.SetLimit(p.workers)
	for _, target := range targets {
		if ctx.Err() != nil {
			record(target.ID, domain.Enrichment{}, StatusCancelled, StatusCancelled)
			continue
		}
		g.Go(func() error {
			e, is, ws := p.enrichOne(ctx, target)
			record(target.ID, e, is, ws)
			return nil
		})
	}
	_ = g.Wait()

	p.logger.InfoContext(ctx, "enrichment finished",
		slog.Int("enriched", len(out)),
		slog.Any("infrastructure", stats.Infrastructure),
		slog.Any("weather", stats.Weather))
	return out, stats
}

func (p *Processor) enrichOne(ctx context.Context, t domain.EnrichmentTarget) (domain.Enrichment, Status, Status) {
	var e domain.Enrichment
	infraStatus, weatherStatus := StatusEmpty, StatusEmpty

	if p.infra != nil {
		infra, err := p.infra.Infrastructure(ctx, t.Lat, t.Lon, t.Radius)
		infraStatus = p.status(ctx, t, SourceInfrastructure, infra != nil, err)
		e.Infrastructure = infra
	}
	if p.weather != nil && t.Time != nil {
		w, err := p.weather.Weather(ctx, t.Lat, t.Lon, *t.Time)
		weatherStatus = p.status(ctx, t, SourceWeather, w != nil, err)
		e.Weather = w
	}
	return e, infraStatus, weatherStatus
}

func (p *Processor) status(ctx context.Context, t domain.EnrichmentTarget, source Source, found bool, err error) Status {
	var s Status
	switch {
	case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		s = StatusCancelled
	case err != nil:
		s = StatusFailed
		p.logger.DebugContext(ctx, "enrichment lookup failed",
			slog.String("source", string(source)),
			slog.String("accident", t.ID),
			slog.String("error", err.Error()))
	case found:
		s = StatusSuccess
	default:
		s = StatusEmpty
	}
	p.metrics.RecordEnrichment(ctx, string(source), string(s))
	return s
}
