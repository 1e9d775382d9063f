package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/calculations/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calculations/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/calculations/{id}", "404"))
	assert.Equal(t, 2.0, got)
}

func TestObserveHelpers(t *testing.T) {
	m := New()

	m.ObserveCalculation("execute", "COMPLETE", 20*time.Millisecond)
	m.ObserveRoutes("rail", []string{"volumetric", "sea_container"})
	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(false)
	m.ObserveCacheLookup(false)
	m.SetBreakerState("redis-cache", gobreaker.StateClosed, gobreaker.StateOpen)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CalculationsTotal.WithLabelValues("execute", "COMPLETE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BestRouteTotal.WithLabelValues("rail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoutesUnavailable.WithLabelValues("sea_container")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CategoryCacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("redis-cache")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveCalculation("start", "READY", time.Millisecond)
	m.ObserveRoutes("air", nil)
	m.ObserveCacheLookup(true)
	m.SetBreakerState("x", gobreaker.StateClosed, gobreaker.StateOpen)
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ObserveCacheLookup(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "landedcost_category_cache_lookups_total"))
}
