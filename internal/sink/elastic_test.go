package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baaccli/pkg/contracts/domain"
)

// fakeElastic answers the handful of endpoints the sink uses.
type fakeElastic struct {
	mu          sync.Mutex
	indexExists bool
	mapping     map[string]interface{}
	bulkLines   []map[string]interface{}
	bulkCalls   int
	rejectID    string
	scrolls     int
	cleared     bool
	searchBody  map[string]interface{}
}

func (f *fakeElastic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodHead:
		if !f.indexExists {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut:
		_ = json.NewDecoder(r.Body).Decode(&f.mapping)
		f.indexExists = true
		fmt.Fprint(w, `{"acknowledged":true}`)
	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		f.bulkCalls++
		var items []string
		scanner := bufio.NewScanner(r.Body)
		scanner.Buffer(make([]byte, 1<<20), 1<<20)
		for scanner.Scan() {
			var line map[string]interface{}
			_ = json.Unmarshal(scanner.Bytes(), &line)
			f.bulkLines = append(f.bulkLines, line)
			for _, op := range []string{"index", "update"} {
				if meta, ok := line[op].(map[string]interface{}); ok {
					status := 201
					if meta["_id"] == f.rejectID {
						status = 400
					}
					items = append(items, fmt.Sprintf(`{%q:{"_id":%q,"status":%d}}`, op, meta["_id"], status))
				}
			}
		}
		fmt.Fprintf(w, `{"errors":false,"items":[%s]}`, strings.Join(items, ","))
	case strings.HasSuffix(r.URL.Path, "/_search"):
		_ = json.NewDecoder(r.Body).Decode(&f.searchBody)
		fmt.Fprint(w, `{"_scroll_id":"scroll-1","hits":{"hits":[
			{"_id":"A","_source":{"id_accident":"A","timestamp":"2021-11-30T07:32:00+01:00","caracteristiques":{"lat":44.03,"long":4.34,"an":2021}}},
			{"_id":"B","_source":{"id_accident":"B","caracteristiques":{"lat":45.1,"an":2021}}}
		]}}`)
	case strings.HasPrefix(r.URL.Path, "/_search/scroll") && r.Method == http.MethodDelete:
		f.cleared = true
		fmt.Fprint(w, `{"succeeded":true}`)
	case strings.HasPrefix(r.URL.Path, "/_search/scroll"):
		f.scrolls++
		if f.scrolls == 1 {
			fmt.Fprint(w, `{"_scroll_id":"scroll-1","hits":{"hits":[
				{"_id":"C","_source":{"caracteristiques":{"lat":46.5,"long":1.2,"an":2022}}}
			]}}`)
			return
		}
		fmt.Fprint(w, `{"_scroll_id":"scroll-1","hits":{"hits":[]}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestElastic(t *testing.T, batch int) (*Elastic, *fakeElastic) {
	t.Helper()
	fake := &fakeElastic{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	e, err := newElastic([]string{srv.URL}, "", "", "accidents-routiers", batch, nil)
	require.NoError(t, err)
	return e, fake
}

func TestElastic_EnsureSchema(t *testing.T) {
	e, fake := newTestElastic(t, 500)
	require.NoError(t, e.EnsureSchema(context.Background()))
	require.NotNil(t, fake.mapping)

	props := fake.mapping["mappings"].(map[string]interface{})["properties"].(map[string]interface{})
	assert.Equal(t, "geo_point", props["coords"].(map[string]interface{})["type"])
	assert.Equal(t, "keyword", props["id_accident"].(map[string]interface{})["type"])
	assert.Contains(t, props, "infrastructure_env")

	fake.mapping = nil
	require.NoError(t, e.EnsureSchema(context.Background()))
	assert.Nil(t, fake.mapping, "existing index is left alone")
}

func TestElastic_Push(t *testing.T) {
	e, fake := newTestElastic(t, 2)
	fake.rejectID = "C"

	docs := []domain.AccidentDocument{
		{ID: "A", Coords: &domain.GeoPoint{Lat: 1, Lon: 2}},
		{ID: "B"},
		{ID: "C"},
	}
	stats, err := e.Push(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, Stats{Succeeded: 2, Failed: 1, Batches: 2}, stats)
	assert.Equal(t, 2, fake.bulkCalls)

	require.Len(t, fake.bulkLines, 6)
	meta := fake.bulkLines[0]["index"].(map[string]interface{})
	assert.Equal(t, "A", meta["_id"])
	assert.Equal(t, "accidents-routiers", meta["_index"])
	assert.Equal(t, map[string]interface{}{"lat": 1.0, "lon": 2.0}, fake.bulkLines[1]["coords"])
	assert.NotContains(t, fake.bulkLines[3], "coords")
}

func TestElastic_PendingEnrichment(t *testing.T) {
	e, fake := newTestElastic(t, 500)
	targets, err := e.PendingEnrichment(context.Background(), 2020)
	require.NoError(t, err)

	require.Len(t, targets, 2, "documents without a longitude are dropped")
	assert.Equal(t, "A", targets[0].ID)
	require.NotNil(t, targets[0].Time)
	assert.Equal(t, time.Date(2021, 11, 30, 6, 32, 0, 0, time.UTC), targets[0].Time.UTC())
	assert.Equal(t, "C", targets[1].ID, "hit id is used when the source has none")
	assert.Equal(t, 2022, targets[1].Year)
	assert.True(t, fake.cleared)

	must := fake.searchBody["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"].([]interface{})
	assert.Len(t, must, 2)
}

func TestElastic_ApplyEnrichment(t *testing.T) {
	e, fake := newTestElastic(t, 500)
	stats, err := e.ApplyEnrichment(context.Background(), map[string]domain.Enrichment{
		"B": {Infrastructure: &domain.Infrastructure{SecurityCount: 0}},
		"A": {Infrastructure: &domain.Infrastructure{SecurityCount: 3, HasRadarOrRail: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, Stats{Succeeded: 2, Batches: 1}, stats)

	require.Len(t, fake.bulkLines, 4)
	assert.Equal(t, "A", fake.bulkLines[0]["update"].(map[string]interface{})["_id"])
	doc := fake.bulkLines[1]["doc"].(map[string]interface{})
	infra := doc["infrastructure_env"].(map[string]interface{})
	assert.Equal(t, 3.0, infra["infra_securite_count"])
	assert.NotContains(t, doc, "meteo_reelle")
}

func TestPendingQuery(t *testing.T) {
	b, err := json.Marshal(PendingQuery(0))
	require.NoError(t, err)
	s := string(b)
	assert.Contains(t, s, `"caracteristiques.lat"`)
	assert.Contains(t, s, `"infrastructure_env.infra_securite_count"`)
	assert.NotContains(t, s, "range")

	b, err = json.Marshal(PendingQuery(2019))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"gte":2019`)
}

func TestBatches(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 2}, {2, 4}, {4, 5}}, batches(5, 2))
	assert.Equal(t, [][2]int{{0, 3}}, batches(3, 0))
	assert.Nil(t, batches(0, 500))
}
