package health

import (
	"context"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/fidelia-cart/internal/common"
)

var draining atomic.Bool

// SetReady toggles readiness. Passing false makes /health/ready fail so the load
// balancer drains traffic before shutdown.
func SetReady(v bool) {
	draining.Store(!v)
}

// Probe checks one dependency.
type Probe func(ctx context.Context) error

// Handler exposes liveness and readiness endpoints.
type Handler struct {
	Probes  map[string]Probe
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Live always answers 200 while the process is serving.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every probe and reports per-dependency status.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if draining.Load() {
		common.JSONError(w, http.StatusServiceUnavailable, "SHUTTING_DOWN", "shutting down", nil)
		return
	}
	if len(h.Probes) == 0 {
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "no readiness probes configured", nil)
		return
	}

	names := make([]string, 0, len(h.Probes))
	for name := range h.Probes {
		names = append(names, name)
	}
	sort.Strings(names)

	status := make(map[string]string, len(names))
	code := http.StatusOK
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
		err := h.Probes[name](ctx)
		cancel()
		if err != nil {
			h.Logger.Warn().Err(err).Str("probe", name).Msg("readiness_probe_failed")
			status[name] = "unavailable"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	common.JSON(w, code, status)
}

func (h Handler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.Timeout
}
