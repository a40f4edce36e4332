// Package shield provides the HTTP middleware of the pagewatch API:
// security headers, body limits, panic recovery, request tracing, per-IP
// rate limiting and HEAD handling.
//
// Usage:
//
//	r := chi.NewRouter()
//	stack, rl := shield.DefaultAPIStack(shield.RateConfig{RPS: 2, Burst: 5})
//	if rl != nil {
//	    rl.StartGC(done)
//	}
//	for _, mw := range stack {
//	    r.Use(mw)
//	}
package shield

import (
	"encoding/json"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultMaxBody bounds JSON request bodies.
const DefaultMaxBody = 64 * 1024

// DefaultAPIStack returns the middleware stack for the JSON API, ordered
// HeadToGet → SecurityHeaders → MaxBody → TraceID → RateLimiter. /healthz
// bypasses rate limiting. A zero RPS disables the limiter and the returned
// RateLimiter is nil; otherwise callers should start its GC.
func DefaultAPIStack(rc RateConfig) ([]func(http.Handler) http.Handler, *RateLimiter) {
	stack := []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(APIHeaders()),
		MaxBody(DefaultMaxBody),
		TraceID,
	}
	if rc.RPS <= 0 {
		return stack, nil
	}
	rl := NewRateLimiter(rc, "/healthz")
	return append(stack, rl.Middleware), rl
}

// WriteError writes the API error body {"status":"error","message":...}.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "error",
		"message": message,
	})
}
