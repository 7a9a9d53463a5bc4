package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	APIKey             string
	ProtectTransitions bool
	AllowedOrigins     []string
}

func Router(h *Handler, cfg RouterConfig, log zerolog.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(nameRoute)

	auth := RequireAPIKey(cfg.APIKey, log)
	transition := func(fn http.HandlerFunc) http.Handler {
		if cfg.ProtectTransitions {
			return auth(fn)
		}
		return fn
	}

	r.HandleFunc("/", h.Index).Methods(http.MethodGet)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/config", h.Config).Methods(http.MethodGet)

	r.Handle("/sms", auth(http.HandlerFunc(h.Create))).Methods(http.MethodPost)
	r.HandleFunc("/sms", h.List).Methods(http.MethodGet)
	r.HandleFunc("/sms/pending", h.Pending).Methods(http.MethodGet)
	r.HandleFunc("/sms/{id}", h.Get).Methods(http.MethodGet)
	r.Handle("/sms/{id}/mark-sent", transition(h.MarkSent)).Methods(http.MethodPatch)
	r.Handle("/sms/{id}/mark-failed", transition(h.MarkFailed)).Methods(http.MethodPatch)
	r.Handle("/sms/{id}/retry", transition(h.Retry)).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "route not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", APIKeyHeader, "traceparent", "tracestate"},
	})
	// Wrapped outside the router so unmatched routes and methods are traced
	// and logged too.
	return c.Handler(traceRequests(logRequests(log)(recoverPanics(log)(r))))
}
