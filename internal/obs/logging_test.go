package obs_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fidelia-cart/internal/obs"
)

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.NewLoggerTo(&buf, "json", "warn")
	logger.Info().Msg("hidden")
	require.Zero(t, buf.Len())
	logger.Warn().Msg("shown")
	require.Contains(t, buf.String(), `"service":"fidelia-cart"`)
	require.Contains(t, buf.String(), `"message":"shown"`)
}

func TestRequestLoggerRecordsRoute(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.NewLoggerTo(&buf, "json", "info")

	r := chi.NewRouter()
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Get("/api/v1/carts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/carts/abc", nil)
	req.Header.Set("X-Device-ID", "pixel-7")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "http_request", entry["message"])
	require.Equal(t, float64(http.StatusTeapot), entry["status"])
	require.Equal(t, "pixel-7", entry["device_id"])
	require.Equal(t, "/api/v1/carts/abc", entry["path"])
	require.Equal(t, "/api/v1/carts/{id}", entry["route"])
}
