// Package sink writes accident documents to a downstream store and reads
// back the accidents still waiting for enrichment.
package sink

import (
	"context"
	"fmt"
	"log/slog"

	"baaccli/internal/config"
	"baaccli/pkg/contracts/domain"
)

// Sink types accepted in configuration.
const (
	TypeNone          = "none"
	TypeElasticsearch = "elasticsearch"
	TypeSQLite        = "sqlite"
)

// Stats counts documents accepted and rejected by the store.
type Stats struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Batches   int `json:"batches"`
}

func (s *Stats) merge(o Stats) {
	s.Succeeded += o.Succeeded
	s.Failed += o.Failed
	s.Batches += o.Batches
}

// Sink is a document store.
type Sink interface {
	// Name identifies the store in logs and metrics.
	Name() string
	// EnsureSchema creates the index or table when it does not exist.
	EnsureSchema(ctx context.Context) error
	// Push upserts documents keyed by accident id in batches.
	Push(ctx context.Context, docs []domain.AccidentDocument) (Stats, error)
	// PendingEnrichment lists accidents with coordinates and no
	// infrastructure enrichment. minYear 0 keeps every year.
	PendingEnrichment(ctx context.Context, minYear int) ([]domain.EnrichmentTarget, error)
	// ApplyEnrichment partially updates documents with their enrichment.
	ApplyEnrichment(ctx context.Context, enrichments map[string]domain.Enrichment) (Stats, error)
	Close() error
}

// Open builds the sink selected by cfg.
func Open(cfg config.SinkConfig, logger *slog.Logger) (Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Type {
	case TypeElasticsearch:
		return NewElastic(cfg.Elastic, cfg.BatchSize, logger)
	case TypeSQLite:
		return OpenSQLite(cfg.SQLitePath, cfg.BatchSize, logger)
	case TypeNone, "":
		return NewDiscard(logger), nil
	}
	return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
}

// batches splits n items into [start, end) windows of size.
func batches(n, size int) [][2]int {
	if size < 1 {
		size = n
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// Discard accepts every document and stores nothing.
type Discard struct {
	logger *slog.Logger
}

// NewDiscard creates a sink that only counts.
func NewDiscard(logger *slog.Logger) *Discard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discard{logger: logger}
}

func (d *Discard) Name() string                          { return TypeNone }
func (d *Discard) EnsureSchema(ctx context.Context) error { return nil }
func (d *Discard) Close() error                           { return nil }

func (d *Discard) Push(ctx context.Context, docs []domain.AccidentDocument) (Stats, error) {
	d.logger.DebugContext(ctx, "documents discarded", slog.Int("documents", len(docs)))
	return Stats{Succeeded: len(docs)}, nil
}

func (d *Discard) PendingEnrichment(ctx context.Context, minYear int) ([]domain.EnrichmentTarget, error) {
	return nil, nil
}

func (d *Discard) ApplyEnrichment(ctx context.Context, enrichments map[string]domain.Enrichment) (Stats, error) {
	return Stats{Succeeded: len(enrichments)}, nil
}
