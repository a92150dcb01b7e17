package security

import (
	"net/http"
	"strconv"
)

// Headers sets browser hardening headers on every response.
type Headers struct {
	Enable bool
	// HSTSMaxAge in seconds; zero leaves Strict-Transport-Security unset. Only sent over TLS.
	HSTSMaxAge int
	// NoStore forbids caching; cart payloads change on every mutation.
	NoStore bool
}

// Middleware implements chi middleware.
func (h Headers) Middleware(next http.Handler) http.Handler {
	if !h.Enable {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "no-referrer")
		if h.NoStore {
			headers.Set("Cache-Control", "no-store")
		}
		if h.HSTSMaxAge > 0 && r.TLS != nil {
			headers.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(h.HSTSMaxAge))
		}
		next.ServeHTTP(w, r)
	})
}
