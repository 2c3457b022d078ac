package httpapi

import (
	"encoding/json"
	"net/http"

	"poold/internal/pool"
	"poold/internal/router"
	"poold/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusForError maps well-known routing and pool errors to HTTP statuses.
func statusForError(err error) int {
	switch {
	case pool.IsCooldown(err):
		IncrementBackpressure("launch_cooldown")
		return http.StatusTooManyRequests
	case pool.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case router.IsNoFallback(err):
		return http.StatusBadGateway
	}
	if status, ok := router.IsUpstreamStatus(err); ok {
		// Backend 4xx means the request itself was bad; everything else
		// is a gateway problem.
		if status >= 400 && status < 500 {
			return status
		}
		return http.StatusBadGateway
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
