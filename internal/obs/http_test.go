package obs_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fidelia-cart/internal/obs"
)

func TestHTTPMetricsUseChiRoute(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("fidelia", []float64{10, 1}, registry)

	r := chi.NewRouter()
	r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	r.Get("/api/v1/carts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/carts/abc", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/api/v1/carts/{id}", "204")))
	require.NotZero(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Zero(t, testutil.ToFloat64(metrics.InFlight))

	// Registering twice reuses the existing collectors.
	again := obs.NewHTTPMetrics("fidelia", nil, registry)
	require.Equal(t, 1.0, testutil.ToFloat64(again.ReqTotal.WithLabelValues(http.MethodGet, "/api/v1/carts/{id}", "204")))
}

func TestRouteOverride(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	require.Empty(t, obs.Route(req))
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/pinned"))
	require.Equal(t, "/pinned", obs.Route(req))
}

func TestParseBucketsCSV(t *testing.T) {
	require.Equal(t, []float64{5, 10.5, 100}, obs.ParseBucketsCSV(" 5, 10.5,abc,-1,0,100"))
	require.Nil(t, obs.ParseBucketsCSV(""))
}
