package api

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const APIKeyHeader = "X-API-Key"

var ErrUnauthorized = errors.New("unauthorized")

// RequireAPIKey rejects requests whose X-API-Key does not match key. An empty
// key rejects everything.
func RequireAPIKey(key string, log zerolog.Logger) mux.MiddlewareFunc {
	want := []byte(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(APIKeyHeader)
			if len(want) == 0 || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				log.Warn().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Bool("key_present", got != "").
					Msg("rejected unauthorized request")
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": ErrUnauthorized.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
