package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	apperrors "baaccli/internal/errors"
	"baaccli/pkg/contracts/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accidents (
	id             TEXT PRIMARY KEY,
	year           INTEGER,
	ts             TEXT,
	lat            REAL,
	lon            REAL,
	dep            TEXT,
	document       TEXT NOT NULL,
	infrastructure TEXT,
	weather        TEXT,
	updated_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_accidents_year ON accidents(year);
CREATE INDEX IF NOT EXISTS idx_accidents_pending ON accidents(year) WHERE infrastructure IS NULL AND lat IS NOT NULL;
`

const upsertAccident = `
INSERT INTO accidents (id, year, ts, lat, lon, dep, document, infrastructure, weather, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	year = excluded.year,
	ts = excluded.ts,
	lat = excluded.lat,
	lon = excluded.lon,
	dep = excluded.dep,
	document = excluded.document,
	infrastructure = COALESCE(excluded.infrastructure, accidents.infrastructure),
	weather = COALESCE(excluded.weather, accidents.weather),
	updated_at = excluded.updated_at`

// SQLite stores documents in a local database file, one row per accident.
type SQLite struct {
	db        *sql.DB
	path      string
	batchSize int
	logger    *slog.Logger
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string, batchSize int, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, apperrors.NewStorageError("create database directory", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.NewStorageError("open sqlite", err)
	}
	db.SetMaxOpenConns(1)
	return &SQLite{db: db, path: path, batchSize: batchSize, logger: logger}, nil
}

func (s *SQLite) Name() string { return TypeSQLite }

func (s *SQLite) Close() error { return s.db.Close() }

// EnsureSchema creates the accidents table.
func (s *SQLite) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return apperrors.NewStorageError("create schema", err)
	}
	return nil
}

// Push upserts documents, one transaction per batch. Enrichment already
// stored for an accident survives a push without enrichment.
func (s *SQLite) Push(ctx context.Context, docs []domain.AccidentDocument) (Stats, error) {
	var total Stats
	now := time.Now().UTC().Format(time.RFC3339)
	for _, w := range batches(len(docs), s.batchSize) {
		stats, err := s.inTx(ctx, upsertAccident, func(stmt *sql.Stmt) Stats {
			var st Stats
			for _, doc := range docs[w[0]:w[1]] {
				if err := s.upsert(ctx, stmt, doc, now); err != nil {
					s.logger.DebugContext(ctx, "document rejected", slog.String("id", doc.ID), slog.String("error", err.Error()))
					st.Failed++
					continue
				}
				st.Succeeded++
			}
			return st
		})
		total.merge(stats)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *SQLite) upsert(ctx context.Context, stmt *sql.Stmt, doc domain.AccidentDocument, now string) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var ts, lat, lon interface{}
	if doc.Timestamp != nil {
		ts = doc.Timestamp.Format(time.RFC3339)
	}
	if doc.Coords != nil {
		lat, lon = doc.Coords.Lat, doc.Coords.Lon
	}
	infra, err := nullableJSON(doc.Infrastructure)
	if err != nil {
		return err
	}
	weather, err := nullableJSON(doc.Weather)
	if err != nil {
		return err
	}
	_, err = stmt.ExecContext(ctx, doc.ID, doc.Year, ts, lat, lon, doc.Department, string(body), infra, weather, now)
	return err
}

// PendingEnrichment lists accidents with coordinates and no stored
// infrastructure, ordered by id.
func (s *SQLite) PendingEnrichment(ctx context.Context, minYear int) ([]domain.EnrichmentTarget, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, year, ts, lat, lon FROM accidents
		WHERE lat IS NOT NULL AND lon IS NOT NULL AND infrastructure IS NULL AND year >= ?
		ORDER BY id`, minYear)
	if err != nil {
		return nil, apperrors.NewStorageError("query pending accidents", err)
	}
	defer rows.Close()

	var targets []domain.EnrichmentTarget
	for rows.Next() {
		var (
			t  domain.EnrichmentTarget
			ts sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Year, &ts, &t.Lat, &t.Lon); err != nil {
			return nil, apperrors.NewStorageError("scan pending accident", err)
		}
		if ts.Valid {
			if parsed, err := time.Parse(time.RFC3339, ts.String); err == nil {
				t.Time = &parsed
			}
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("iterate pending accidents", err)
	}
	return targets, nil
}

// ApplyEnrichment stores enrichments for known accidents. Unknown ids count
// as failures.
func (s *SQLite) ApplyEnrichment(ctx context.Context, enrichments map[string]domain.Enrichment) (Stats, error) {
	const update = `UPDATE accidents SET
		infrastructure = COALESCE(?, infrastructure),
		weather = COALESCE(?, weather),
		updated_at = ?
		WHERE id = ?`

	ids := sortedIDs(enrichments)
	now := time.Now().UTC().Format(time.RFC3339)
	var total Stats
	for _, w := range batches(len(ids), s.batchSize) {
		stats, err := s.inTx(ctx, update, func(stmt *sql.Stmt) Stats {
			var st Stats
			for _, id := range ids[w[0]:w[1]] {
				e := enrichments[id]
				infra, err1 := nullableJSON(e.Infrastructure)
				weather, err2 := nullableJSON(e.Weather)
				if err1 != nil || err2 != nil {
					st.Failed++
					continue
				}
				res, err := stmt.ExecContext(ctx, infra, weather, now, id)
				if err != nil {
					st.Failed++
					continue
				}
				if n, _ := res.RowsAffected(); n == 0 {
					st.Failed++
					continue
				}
				st.Succeeded++
			}
			return st
		})
		total.merge(stats)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Document reads one stored document back with its enrichment.
func (s *SQLite) Document(ctx context.Context, id string) (*domain.AccidentDocument, error) {
	var body string
	var infra, weather sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT document, infrastructure, weather FROM accidents WHERE id = ?`, id).
		Scan(&body, &infra, &weather)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("accident %s", id))
	}
	if err != nil {
		return nil, apperrors.NewStorageError("read document", err)
	}

	var doc domain.AccidentDocument
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, apperrors.NewStorageError("decode document", err)
	}
	if infra.Valid {
		doc.Infrastructure = &domain.Infrastructure{}
		if err := json.Unmarshal([]byte(infra.String), doc.Infrastructure); err != nil {
			return nil, apperrors.NewStorageError("decode infrastructure", err)
		}
	}
	if weather.Valid {
		doc.Weather = &domain.Weather{}
		if err := json.Unmarshal([]byte(weather.String), doc.Weather); err != nil {
			return nil, apperrors.NewStorageError("decode weather", err)
		}
	}
	return &doc, nil
}

// Count returns the number of stored accidents.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accidents`).Scan(&n)
	return n, err
}

func (s *SQLite) inTx(ctx context.Context, query string, fn func(*sql.Stmt) Stats) (Stats, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, apperrors.NewStorageError("begin transaction", err)
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return Stats{}, apperrors.NewStorageError("prepare statement", err)
	}
	stats := fn(stmt)
	stats.Batches = 1
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return Stats{}, apperrors.NewStorageError("commit", err)
	}
	return stats, nil
}

func nullableJSON(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case *domain.Infrastructure:
		if x == nil {
			return nil, nil
		}
	case *domain.Weather:
		if x == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func sortedIDs(m map[string]domain.Enrichment) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
