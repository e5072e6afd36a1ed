package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go-bookshelf/internal/model"
)

const (
	defaultRequestTimeout = 30 * time.Second
	codeRequestTimeout    = "REQUEST_TIMEOUT"
)

// Timeout bounds handler time. A handler that overruns gets a 503 with the
// standard error envelope and its partial output is discarded.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	body, _ := json.Marshal(model.ErrorResponse(codeRequestTimeout, "request timed out", ""))

	return func(next http.Handler) http.Handler {
		timed := http.TimeoutHandler(next, timeout, string(body))

		// TimeoutHandler writes its body without headers of its own; handlers
		// that finish in time still override Content-Type.
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			timed.ServeHTTP(w, r)
		})
	}
}
