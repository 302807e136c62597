package loader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"baaccli/internal/dataprocessing"
	apperrors "baaccli/internal/errors"
	"baaccli/internal/files"
	"baaccli/internal/infrastructure"
	"baaccli/pkg/contracts/domain"
)

// TableStats describes how one source file was read.
type TableStats struct {
	File        string `json:"file"`
	Rows        int    `json:"rows"`
	SkippedRows int    `json:"skipped_rows"`
	PaddedRows  int    `json:"padded_rows"`
	Degraded    int    `json:"degraded_cells"`
	Encoding    string `json:"encoding"`
	Delimiter   string `json:"delimiter"`
}

// YearResult is a fully loaded year. It is not modified after Load returns.
type YearResult struct {
	Year      int
	Accidents *dataprocessing.Table
	Locations *dataprocessing.Table
	Vehicles  *dataprocessing.Table
	Occupants *dataprocessing.Table
	Stats     map[domain.TableKind]TableStats
	Duration  time.Duration
}

// YearFailure records why a year was left out.
type YearFailure struct {
	Year  int
	Stage Stage
	Err   error
}

func (f *YearFailure) Error() string {
	return fmt.Sprintf("year %d failed at %s: %v", f.Year, f.Stage, f.Err)
}

func (f *YearFailure) Unwrap() error {
	return f.Err
}

// YearLoader runs the per-year state machine.
type YearLoader struct {
	discovery      *files.Discovery
	mergeLocations bool
	logger         *slog.Logger
	metrics        *infrastructure.PipelineMetrics
}

// NewYearLoader creates a year loader. metrics may be nil.
func NewYearLoader(discovery *files.Discovery, mergeLocations bool, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *YearLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &YearLoader{
		discovery:      discovery,
		mergeLocations: mergeLocations,
		logger:         logger,
		metrics:        metrics,
	}
}

// yearRun tracks the current stage of one year.
type yearRun struct {
	dir    files.YearDir
	stage  Stage
	logger *slog.Logger
}

func (r *yearRun) advance(ctx context.Context, to Stage) {
	if !CanTransition(r.stage, to) {
		panic(fmt.Sprintf("illegal stage transition %s -> %s", r.stage, to))
	}
	r.stage = to
	r.logger.DebugContext(ctx, "year stage", slog.Int("year", r.dir.Year), slog.String("stage", string(to)))
}

func (r *yearRun) fail(err error) *YearFailure {
	failedAt := r.stage
	r.stage = StageFailed
	return &YearFailure{Year: r.dir.Year, Stage: failedAt, Err: err}
}

// Load processes one year directory. It never panics and never returns
// both values: the caller gets a result or the failure that excluded the
// year.
func (l *YearLoader) Load(ctx context.Context, dir files.YearDir) (result *YearResult, failure *YearFailure) {
	ctx, span := infrastructure.StartSpan(ctx, "loader.year", attribute.Int("year", dir.Year))
	defer span.End()

	start := time.Now()
	run := &yearRun{dir: dir, stage: StageLocatingFiles, logger: l.logger}

	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			failure = run.fail(fmt.Errorf("panic: %v", rec))
		}
		if failure != nil {
			infrastructure.RecordError(ctx, failure)
			l.metrics.RecordYear(ctx, dir.Year, false)
			l.logger.WarnContext(ctx, "year_skipped",
				slog.Int("year", failure.Year),
				slog.String("stage", string(failure.Stage)),
				slog.String("error", failure.Err.Error()))
			return
		}
		result.Duration = time.Since(start)
		l.metrics.RecordYear(ctx, dir.Year, true)
		l.logYearLoaded(ctx, result)
	}()

	located, err := l.discovery.LocateYear(dir)
	if err != nil {
		return nil, run.fail(apperrors.NewSourceMissingError(dir.Year, err))
	}

	run.advance(ctx, StageReading)
	tables := make(map[domain.TableKind]*dataprocessing.Table, len(located))
	stats := make(map[domain.TableKind]TableStats, len(located))
	for _, kind := range domain.TableKinds {
		file := located[kind]
		read, err := dataprocessing.ReadTableFile(file.Path, kind.Keyword())
		if err != nil {
			return nil, run.fail(apperrors.NewParseError(fmt.Sprintf("read %s", file.Name), err))
		}
		tables[kind] = read.Table
		stats[kind] = TableStats{
			File:        filepath.Base(file.Path),
			SkippedRows: read.SkippedRows,
			PaddedRows:  read.PaddedRows,
			Encoding:    read.Encoding,
			Delimiter:   string(read.Delimiter),
		}
	}

	run.advance(ctx, StageNormalizing)
	for _, t := range tables {
		dataprocessing.NormalizeColumns(t)
	}

	run.advance(ctx, StageCleaning)
	for kind, t := range tables {
		s := stats[kind]
		s.Degraded = dataprocessing.SanitizeTable(t)
		stats[kind] = s
	}
	accidents := tables[domain.TableAccidents]
	if err := dataprocessing.ApplyCoordinates(accidents); err != nil {
		return nil, run.fail(err)
	}
	if err := dataprocessing.ReconcileTimestamps(accidents, dir.Year); err != nil {
		return nil, run.fail(err)
	}

	run.advance(ctx, StageDerivingFields)
	if err := dataprocessing.DeriveOccupantAge(tables[domain.TableOccupants], dir.Year); err != nil {
		return nil, run.fail(err)
	}

	run.advance(ctx, StageJoining)
	if l.mergeLocations {
		accidents = dataprocessing.LeftJoin(accidents, tables[domain.TableLocations], domain.ColumnAccidentID)
	}

	run.advance(ctx, StageDone)
	for kind, t := range tables {
		s := stats[kind]
		s.Rows = t.Len()
		stats[kind] = s
	}
	return &YearResult{
		Year:      dir.Year,
		Accidents: accidents,
		Locations: tables[domain.TableLocations],
		Vehicles:  tables[domain.TableVehicles],
		Occupants: tables[domain.TableOccupants],
		Stats:     stats,
	}, nil
}

func (l *YearLoader) logYearLoaded(ctx context.Context, r *YearResult) {
	attrs := []any{slog.Int("year", r.Year), slog.Duration("duration", r.Duration)}
	for _, kind := range domain.TableKinds {
		s := r.Stats[kind]
		l.metrics.RecordRows(ctx, kind.Keyword(), s.Rows)
		attrs = append(attrs, slog.Group(kind.Keyword(),
			slog.Int("rows", s.Rows),
			slog.Int("skipped_rows", s.SkippedRows),
			slog.Int("degraded_cells", s.Degraded),
			slog.String("encoding", s.Encoding)))
	}
	l.logger.InfoContext(ctx, "year_loaded", attrs...)
}
