package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baaccli/internal/dataprocessing"
	"baaccli/internal/services"
)

func str(s string) dataprocessing.Value { return dataprocessing.StringValue(s) }

func testDataset() *dataprocessing.Dataset {
	acc := dataprocessing.NewTable("caract", []string{"num_acc", "an", "dep"})
	acc.AppendRow([]dataprocessing.Value{str("A"), dataprocessing.IntValue(2021), str("75")})
	acc.AppendRow([]dataprocessing.Value{str("B"), dataprocessing.IntValue(2021), str("13")})
	acc.AppendRow([]dataprocessing.Value{str("C"), dataprocessing.IntValue(2021), str("13")})
	acc.AppendRow([]dataprocessing.Value{str("D"), dataprocessing.IntValue(2019), str("69")})
	return &dataprocessing.Dataset{
		Years:     []int{2019, 2021},
		Accidents: acc,
		Locations: dataprocessing.NewTable("lieux", []string{"num_acc"}),
		Vehicles:  dataprocessing.NewTable("vehicules", []string{"num_acc"}),
		Occupants: dataprocessing.NewTable("usagers", []string{"num_acc"}),
	}
}

func newTestRouter(t *testing.T, loaded bool) http.Handler {
	t.Helper()
	svc := services.NewAccidentService(nil)
	if loaded {
		svc.Publish(testDataset())
	}
	return NewRouter(RouterOptions{
		Accidents:   svc,
		Health:      services.NewHealthService("test", svc),
		MaxPageSize: 2,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		}),
	})
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]interface{}
	if rec.Header().Get("Content-Type") != "" && rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestRoutes(t *testing.T) {
	h := newTestRouter(t, true)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		check      func(t *testing.T, body map[string]interface{})
	}{
		{
			name:       "health",
			path:       "/api/health",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "ok", body["status"])
			},
		},
		{
			name:       "years",
			path:       "/api/years",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				years := body["years"].([]interface{})
				require.Len(t, years, 2)
				assert.Equal(t, float64(2019), years[0].(map[string]interface{})["year"])
			},
		},
		{
			name:       "accidents capped by max page size",
			path:       "/api/accidents?year=2021&limit=50",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, float64(3), body["total"])
				assert.Equal(t, float64(2), body["limit"])
				assert.Len(t, body["items"], 2)
			},
		},
		{
			name:       "accident document",
			path:       "/api/accidents/D",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "D", body["id_accident"])
			},
		},
		{name: "missing year", path: "/api/accidents", wantStatus: http.StatusBadRequest},
		{name: "bad limit", path: "/api/accidents?year=2021&limit=-1", wantStatus: http.StatusBadRequest},
		{name: "unknown year", path: "/api/accidents?year=1999", wantStatus: http.StatusNotFound},
		{name: "unknown accident", path: "/api/accidents/ZZ", wantStatus: http.StatusNotFound},
		{name: "unknown route", path: "/nope", wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(t, h, tt.path)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
			if tt.check != nil {
				tt.check(t, body)
			}
			if tt.wantStatus >= 400 && body != nil {
				assert.Equal(t, false, body["success"])
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestRouter(t, true)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/years", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "METHOD_NOT_ALLOWED")
}

func TestRoutesBeforeLoad(t *testing.T) {
	h := newTestRouter(t, false)

	rec, body := get(t, h, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "loading", body["status"])

	rec, body = get(t, h, "/api/years")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, "DATASET_UNAVAILABLE", errBody["error_code"])
}

func TestMetricsRoute(t *testing.T) {
	rec, _ := get(t, newTestRouter(t, true), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# metrics")
}
