package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"baaccli/internal/cache"
	"baaccli/internal/dataprocessing"
	apperrors "baaccli/internal/errors"
	"baaccli/internal/files"
	"baaccli/internal/infrastructure"
	"baaccli/pkg/contracts/domain"
)

// Options controls a load.
type Options struct {
	Workers        int
	ForceReload    bool
	MergeLocations bool
}

// LoadResult is the outcome of a multi-year load.
type LoadResult struct {
	Dataset   *dataprocessing.Dataset
	FromCache bool
	Signature cache.Signature
	Failures  []*YearFailure
	Duration  time.Duration
}

// Loader loads every year directory under the data root, reusing the cached
// snapshot while the source signature is unchanged.
type Loader struct {
	discovery *files.Discovery
	store     *cache.Store
	years     *YearLoader
	opts      Options
	logger    *slog.Logger
	metrics   *infrastructure.PipelineMetrics
}

// New creates a loader. store and metrics may be nil; without a store the
// dataset is always rebuilt and never saved.
func New(discovery *files.Discovery, store *cache.Store, opts Options, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Loader{
		discovery: discovery,
		store:     store,
		years:     NewYearLoader(discovery, opts.MergeLocations, logger, metrics),
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// Load returns the combined dataset. The only error that means "no data"
// is a TOTAL_FAILURE; a cancelled context returns ctx.Err() and writes no
// cache.
func (l *Loader) Load(ctx context.Context) (*LoadResult, error) {
	ctx, span := infrastructure.StartSpan(ctx, "loader.load")
	defer span.End()
	start := time.Now()

	sig, err := cache.ComputeSignature(l.discovery)
	if err != nil {
		return nil, apperrors.NewStorageError("compute source signature", err)
	}

	if ds, ok := l.lookup(ctx, sig); ok {
		return &LoadResult{Dataset: ds, FromCache: true, Signature: sig, Duration: time.Since(start)}, nil
	}

	dirs, err := l.discovery.YearDirectories()
	if err != nil {
		return nil, apperrors.NewStorageError("list year directories", err)
	}

	results, failures := l.loadYears(ctx, dirs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, err := Aggregate(results, len(failures))
	if err != nil {
		infrastructure.RecordError(ctx, err)
		l.logger.ErrorContext(ctx, "dataset_failed",
			slog.Int("failed_years", len(failures)),
			slog.String("error", err.Error()))
		return nil, err
	}

	if l.store != nil {
		if err := l.store.Save(sig, ds); err != nil {
			l.logger.WarnContext(ctx, "cache_save_failed", slog.String("error", err.Error()))
		}
	}

	counts := ds.Counts()
	l.logger.InfoContext(ctx, "dataset_loaded",
		slog.Any("years", ds.Years),
		slog.Int("failed_years", len(failures)),
		slog.Int("accidents", counts.Accidents),
		slog.Int("locations", counts.Locations),
		slog.Int("vehicles", counts.Vehicles),
		slog.Int("occupants", counts.Occupants),
		slog.Duration("duration", time.Since(start)))

	return &LoadResult{
		Dataset:   ds,
		Signature: sig,
		Failures:  failures,
		Duration:  time.Since(start),
	}, nil
}

func (l *Loader) lookup(ctx context.Context, sig cache.Signature) (*dataprocessing.Dataset, bool) {
	if l.store == nil {
		return nil, false
	}
	if l.opts.ForceReload {
		l.metrics.RecordCacheLookup(ctx, false)
		l.logger.InfoContext(ctx, "cache_miss", slog.String("reason", "force reload"))
		return nil, false
	}

	ds, err := l.store.Lookup(sig)
	if err != nil {
		l.metrics.RecordCacheLookup(ctx, false)
		l.logger.InfoContext(ctx, "cache_miss", slog.String("reason", err.Error()))
		return nil, false
	}
	l.metrics.RecordCacheLookup(ctx, true)
	l.logger.InfoContext(ctx, "cache_hit",
		slog.String("signature", sig.Hash),
		slog.Int("accidents", ds.Accidents.Len()))
	return ds, true
}

// loadYears fans the years out to the worker pool and joins. Each task
// writes only its own slot. Years not started before cancellation are
// reported as failures.
func (l *Loader) loadYears(ctx context.Context, dirs []files.YearDir) ([]*YearResult, []*YearFailure) {
	results := make([]*YearResult, len(dirs))
	failed := make([]*YearFailure, len(dirs))

	var g errgroup.Group
	g.SetLimit(l.opts.Workers)
	for i, dir := range dirs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failed[i] = &YearFailure{Year: dir.Year, Stage: StageLocatingFiles, Err: err}
				return nil
			}
			results[i], failed[i] = l.years.Load(ctx, dir)
			return nil
		})
	}
	_ = g.Wait()

	var ok []*YearResult
	var failures []*YearFailure
	for i := range dirs {
		if results[i] != nil {
			ok = append(ok, results[i])
		}
		if failed[i] != nil {
			failures = append(failures, failed[i])
		}
	}
	return ok, failures
}

// Aggregate concatenates the loaded years in ascending year order. Rows keep
// their source order within a year and duplicates are kept. It fails only
// when no year loaded.
func Aggregate(results []*YearResult, failed int) (*dataprocessing.Dataset, error) {
	var loaded []*YearResult
	for _, r := range results {
		if r != nil {
			loaded = append(loaded, r)
		}
	}
	if len(loaded) == 0 {
		return nil, apperrors.NewTotalFailureError(failed)
	}
	sort.SliceStable(loaded, func(i, j int) bool {
		return loaded[i].Year < loaded[j].Year
	})

	ds := &dataprocessing.Dataset{}
	byKind := make(map[domain.TableKind][]*dataprocessing.Table)
	for _, r := range loaded {
		ds.Years = append(ds.Years, r.Year)
		byKind[domain.TableAccidents] = append(byKind[domain.TableAccidents], r.Accidents)
		byKind[domain.TableLocations] = append(byKind[domain.TableLocations], r.Locations)
		byKind[domain.TableVehicles] = append(byKind[domain.TableVehicles], r.Vehicles)
		byKind[domain.TableOccupants] = append(byKind[domain.TableOccupants], r.Occupants)
	}
	ds.Accidents = dataprocessing.Concat(domain.TableAccidents.Keyword(), byKind[domain.TableAccidents]...)
	ds.Locations = dataprocessing.Concat(domain.TableLocations.Keyword(), byKind[domain.TableLocations]...)
	ds.Vehicles = dataprocessing.Concat(domain.TableVehicles.Keyword(), byKind[domain.TableVehicles]...)
	ds.Occupants = dataprocessing.Concat(domain.TableOccupants.Keyword(), byKind[domain.TableOccupants]...)
	return ds, nil
}

// IsTotalFailure reports whether err means no year produced data.
func IsTotalFailure(err error) bool {
	return errors.Is(err, apperrors.ErrNoYearsLoaded)
}

// Summary renders the failures for a CLI report.
func Summary(failures []*YearFailure) []string {
	out := make([]string, len(failures))
	for i, f := range failures {
		out[i] = fmt.Sprintf("%d (%s): %v", f.Year, f.Stage, f.Err)
	}
	return out
}
