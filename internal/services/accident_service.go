package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"baaccli/internal/dataprocessing"
	"baaccli/internal/documents"
	apperrors "baaccli/internal/errors"
	"baaccli/internal/exporter"
	"baaccli/pkg/contracts/domain"
)

// YearCount is one entry of the years listing.
type YearCount struct {
	Year      int `json:"year"`
	Accidents int `json:"accidents"`
	Vehicles  int `json:"vehicles"`
	Occupants int `json:"occupants"`
}

// AccidentPage is a bounded listing of accidents for one year.
type AccidentPage struct {
	Year  int                    `json:"year"`
	Total int                    `json:"total"`
	Limit int                    `json:"limit"`
	Items []exporter.AccidentRow `json:"items"`
}

// AccidentService answers read queries over the published dataset.
type AccidentService struct {
	mu       sync.RWMutex
	dataset  *dataprocessing.Dataset
	years    []YearCount
	loadedAt time.Time
	logger   *slog.Logger
}

// NewAccidentService creates an empty service. Publish must be called before
// queries succeed.
func NewAccidentService(logger *slog.Logger) *AccidentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccidentService{logger: logger.With(slog.String("service", "accidents"))}
}

// Publish swaps in a new dataset.
func (s *AccidentService) Publish(ds *dataprocessing.Dataset) {
	years := make([]YearCount, 0, len(ds.Years))
	for _, y := range exporter.Summarize(ds) {
		years = append(years, YearCount{Year: y.Year, Accidents: y.Accidents, Vehicles: y.Vehicles, Occupants: y.Occupants})
	}

	s.mu.Lock()
	s.dataset = ds
	s.years = years
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("dataset published",
		slog.Int("years", len(years)),
		slog.Int("accidents", ds.Counts().Accidents))
}

func (s *AccidentService) current() (*dataprocessing.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeTotalFailure, "dataset not available", ErrDatasetNotLoaded)
	}
	return s.dataset, nil
}

// Loaded reports whether a dataset is published and when.
func (s *AccidentService) Loaded() (bool, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset != nil, s.loadedAt
}

// Years lists the loaded years in ascending order.
func (s *AccidentService) Years(ctx context.Context) ([]YearCount, error) {
	if _, err := s.current(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]YearCount(nil), s.years...), nil
}

// Accidents returns at most limit accidents of one year in dataset order.
func (s *AccidentService) Accidents(ctx context.Context, year, limit int) (*AccidentPage, error) {
	ds, err := s.current()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, apperrors.NewAppValidationError("limit must be positive")
	}
	if !hasYear(ds.Years, year) {
		return nil, apperrors.NewNotFoundError("year").WithContext("year", year)
	}

	rows := exporter.AccidentRows(ds.YearSlice(year))
	page := &AccidentPage{Year: year, Total: len(rows), Limit: limit}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	page.Items = rows
	return page, nil
}

// Accident builds the full document of one accident.
func (s *AccidentService) Accident(ctx context.Context, id string) (*domain.AccidentDocument, error) {
	ds, err := s.current()
	if err != nil {
		return nil, err
	}
	docs := documents.Build(ds.Subset(map[string]bool{id: true}), nil)
	if len(docs) == 0 {
		return nil, apperrors.NewNotFoundError("accident").WithContext("id", id)
	}
	return &docs[0], nil
}

func hasYear(years []int, year int) bool {
	for _, y := range years {
		if y == year {
			return true
		}
	}
	return false
}
