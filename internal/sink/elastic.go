package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"baaccli/internal/config"
	apperrors "baaccli/internal/errors"
	"baaccli/pkg/contracts/domain"
)

const (
	scrollKeepAlive = time.Minute
	scrollPageSize  = 1000
)

// indexMapping types the fields used by dashboards and by the enrichment
// query. Other fields are mapped dynamically.
const indexMapping = `{
  "mappings": {
    "properties": {
      "id_accident": {"type": "keyword"},
      "annee": {"type": "integer"},
      "timestamp": {"type": "date"},
      "coords": {"type": "geo_point"},
      "dep": {"type": "keyword"},
      "com": {"type": "keyword"},
      "caracteristiques": {
        "properties": {
          "num_acc": {"type": "keyword"},
          "an": {"type": "integer"},
          "lat": {"type": "float"},
          "long": {"type": "float"},
          "dep": {"type": "keyword"},
          "com": {"type": "keyword"}
        }
      },
      "vehicules": {"type": "nested"},
      "usagers": {"type": "nested"},
      "meteo_reelle": {
        "properties": {
          "temp_c": {"type": "float"},
          "precip_mm": {"type": "float"},
          "rain_mm": {"type": "float"},
          "snow_cm": {"type": "float"},
          "visibility_m": {"type": "float"},
          "wind_kmh": {"type": "float"},
          "weather_code": {"type": "integer"}
        }
      },
      "infrastructure_env": {
        "properties": {
          "infra_securite_count": {"type": "integer"},
          "has_radar_or_rail": {"type": "boolean"}
        }
      }
    }
  }
}`

// Elastic pushes documents to one Elasticsearch index.
type Elastic struct {
	es        *elasticsearch.Client
	index     string
	batchSize int
	logger    *slog.Logger
}

// NewElastic connects to the node described by cfg.
func NewElastic(cfg config.ElasticConfig, batchSize int, logger *slog.Logger) (*Elastic, error) {
	return newElastic([]string{cfg.Address()}, cfg.User, cfg.Password, cfg.Index, batchSize, logger)
}

func newElastic(addresses []string, user, password, index string, batchSize int, logger *slog.Logger) (*Elastic, error) {
	if logger == nil {
		logger = slog.Default()
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, apperrors.NewConfigError("create elasticsearch client", err)
	}
	return &Elastic{es: es, index: index, batchSize: batchSize, logger: logger}, nil
}

func (e *Elastic) Name() string { return TypeElasticsearch }

func (e *Elastic) Close() error { return nil }

// EnsureSchema creates the index with its mapping unless it exists.
func (e *Elastic) EnsureSchema(ctx context.Context) error {
	res, err := e.es.Indices.Exists([]string{e.index}, e.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return apperrors.NewStorageError("check index", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		e.logger.InfoContext(ctx, "index exists", slog.String("index", e.index))
		return nil
	}

	res, err = e.es.Indices.Create(e.index,
		e.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		e.es.Indices.Create.WithContext(ctx))
	if err != nil {
		return apperrors.NewStorageError("create index", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return apperrors.NewStorageError("create index", responseError(res))
	}
	e.logger.InfoContext(ctx, "index created", slog.String("index", e.index))
	return nil
}

// Push bulk-indexes documents with the accident id as document id.
func (e *Elastic) Push(ctx context.Context, docs []domain.AccidentDocument) (Stats, error) {
	var total Stats
	for _, w := range batches(len(docs), e.batchSize) {
		var body bytes.Buffer
		enc := json.NewEncoder(&body)
		for _, doc := range docs[w[0]:w[1]] {
			meta := map[string]interface{}{"index": map[string]string{"_index": e.index, "_id": doc.ID}}
			if err := enc.Encode(meta); err != nil {
				return total, err
			}
			if err := enc.Encode(doc); err != nil {
				return total, fmt.Errorf("encode document %s: %w", doc.ID, err)
			}
		}

		stats, err := e.bulk(ctx, &body)
		total.merge(stats)
		if err != nil {
			return total, err
		}
		if stats.Failed > 0 {
			e.logger.WarnContext(ctx, "bulk batch had failures",
				slog.Int("batch", total.Batches-1),
				slog.Int("failed", stats.Failed))
		}
	}
	return total, nil
}

// PendingEnrichment scrolls through documents with coordinates and no
// infrastructure fields.
func (e *Elastic) PendingEnrichment(ctx context.Context, minYear int) ([]domain.EnrichmentTarget, error) {
	query, err := json.Marshal(PendingQuery(minYear))
	if err != nil {
		return nil, err
	}

	res, err := e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(e.index),
		e.es.Search.WithBody(bytes.NewReader(query)),
		e.es.Search.WithScroll(scrollKeepAlive),
		e.es.Search.WithSize(scrollPageSize),
	)
	if err != nil {
		return nil, apperrors.NewStorageError("search pending accidents", err)
	}

	var targets []domain.EnrichmentTarget
	scrollID := ""
	defer func() {
		if scrollID != "" {
			if res, err := e.es.ClearScroll(e.es.ClearScroll.WithScrollID(scrollID)); err == nil {
				res.Body.Close()
			}
		}
	}()

	for {
		page, err := decodeSearch(res)
		if err != nil {
			return nil, err
		}
		scrollID = page.ScrollID
		if len(page.Hits.Hits) == 0 {
			break
		}
		for _, hit := range page.Hits.Hits {
			if t, ok := hit.Source.target(hit.ID); ok {
				targets = append(targets, t)
			}
		}
		if scrollID == "" {
			break
		}

		res, err = e.es.Scroll(
			e.es.Scroll.WithContext(ctx),
			e.es.Scroll.WithScrollID(scrollID),
			e.es.Scroll.WithScroll(scrollKeepAlive),
		)
		if err != nil {
			return nil, apperrors.NewStorageError("scroll pending accidents", err)
		}
	}

	e.logger.InfoContext(ctx, "pending accidents found", slog.Int("count", len(targets)))
	return targets, nil
}

// ApplyEnrichment sends partial updates in batches.
func (e *Elastic) ApplyEnrichment(ctx context.Context, enrichments map[string]domain.Enrichment) (Stats, error) {
	ids := sortedIDs(enrichments)
	var total Stats
	for _, w := range batches(len(ids), e.batchSize) {
		var body bytes.Buffer
		enc := json.NewEncoder(&body)
		for _, id := range ids[w[0]:w[1]] {
			meta := map[string]interface{}{"update": map[string]string{"_index": e.index, "_id": id}}
			if err := enc.Encode(meta); err != nil {
				return total, err
			}
			if err := enc.Encode(map[string]interface{}{"doc": enrichments[id]}); err != nil {
				return total, err
			}
		}
		stats, err := e.bulk(ctx, &body)
		total.merge(stats)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string          `json:"_id"`
		Status int             `json:"status"`
		Error  json.RawMessage `json:"error,omitempty"`
	} `json:"items"`
}

func (e *Elastic) bulk(ctx context.Context, body io.Reader) (Stats, error) {
	res, err := e.es.Bulk(body, e.es.Bulk.WithContext(ctx), e.es.Bulk.WithIndex(e.index))
	if err != nil {
		return Stats{}, apperrors.NewStorageError("bulk request", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return Stats{}, apperrors.NewStorageError("bulk request", responseError(res))
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return Stats{}, apperrors.NewStorageError("decode bulk response", err)
	}
	stats := Stats{Batches: 1}
	for _, item := range br.Items {
		for _, r := range item {
			if r.Status >= 200 && r.Status < 300 {
				stats.Succeeded++
			} else {
				stats.Failed++
			}
		}
	}
	return stats, nil
}

// PendingQuery selects accidents with a latitude and no infrastructure
// count, optionally from minYear on.
func PendingQuery(minYear int) map[string]interface{} {
	must := []interface{}{
		map[string]interface{}{"exists": map[string]string{"field": "caracteristiques.lat"}},
	}
	if minYear > 0 {
		must = append(must, map[string]interface{}{
			"range": map[string]interface{}{"caracteristiques.an": map[string]int{"gte": minYear}},
		})
	}
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": must,
				"must_not": []interface{}{
					map[string]interface{}{"exists": map[string]string{"field": "infrastructure_env.infra_securite_count"}},
				},
			},
		},
		"_source": []string{"id_accident", "timestamp", "caracteristiques.lat", "caracteristiques.long", "caracteristiques.an"},
	}
}

type pendingSource struct {
	ID              string     `json:"id_accident"`
	Timestamp       *time.Time `json:"timestamp"`
	Characteristics struct {
		Lat  *float64 `json:"lat"`
		Long *float64 `json:"long"`
		Year int      `json:"an"`
	} `json:"caracteristiques"`
}

func (s pendingSource) target(hitID string) (domain.EnrichmentTarget, bool) {
	c := s.Characteristics
	if c.Lat == nil || c.Long == nil {
		return domain.EnrichmentTarget{}, false
	}
	id := s.ID
	if id == "" {
		id = hitID
	}
	return domain.EnrichmentTarget{ID: id, Year: c.Year, Lat: *c.Lat, Lon: *c.Long, Time: s.Timestamp}, true
}

type searchPage struct {
	ScrollID string `json:"_scroll_id"`
	Hits     struct {
		Hits []struct {
			ID     string        `json:"_id"`
			Source pendingSource `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func decodeSearch(res *esapi.Response) (*searchPage, error) {
	defer res.Body.Close()
	if res.IsError() {
		return nil, apperrors.NewStorageError("search", responseError(res))
	}
	var page searchPage
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		return nil, apperrors.NewStorageError("decode search response", err)
	}
	return &page, nil
}

func responseError(res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("%s: %s", res.Status(), strings.TrimSpace(string(body)))
}
