package kit

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func labels(m *dto.Metric) map[string]string {
	out := map[string]string{}
	for _, l := range m.GetLabel() {
		out[l.GetName()] = l.GetValue()
	}
	return out
}

func TestMetrics_Middleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := chi.NewRouter()
	r.Use(NewMetrics(reg).Middleware("catalog", ChiRoutePatternOrPath))
	r.Get("/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "hello")
	})
	r.Get("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for _, path := range []string{"/products/1", "/products/2", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	fams := gather(t, reg)

	counts := map[string]float64{}
	for _, m := range fams["http_requests_total"].GetMetric() {
		l := labels(m)
		counts[l["path"]+" "+l["status"]] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"/products/{id} 200": 2, "/missing 404": 1}, counts)

	for _, m := range fams["http_response_size_bytes"].GetMetric() {
		if labels(m)["path"] == "/products/{id}" {
			assert.Equal(t, uint64(2), m.GetHistogram().GetSampleCount())
			assert.Equal(t, float64(10), m.GetHistogram().GetSampleSum())
		}
	}

	inFlight := fams["http_requests_in_flight"].GetMetric()
	require.Len(t, inFlight, 1)
	assert.Zero(t, inFlight[0].GetGauge().GetValue())
}
