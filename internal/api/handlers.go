package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/LeventeLantos/sms-queue/internal/model"
	"github.com/LeventeLantos/sms-queue/internal/repo"
	"github.com/LeventeLantos/sms-queue/internal/service"
)

// Lifecycle is the set of queue operations exposed over HTTP.
type Lifecycle interface {
	Create(ctx context.Context, to, message string) (model.Message, error)
	List(ctx context.Context, p service.ListParams) ([]model.Message, error)
	ListPending(ctx context.Context) ([]model.Message, error)
	Get(ctx context.Context, id string) (model.Message, error)
	MarkSent(ctx context.Context, id string) (model.Message, error)
	MarkFailed(ctx context.Context, id, reason string) (model.Message, error)
	Retry(ctx context.Context, id string) (model.Message, error)
}

const maxBodyBytes = 64 << 10

type Handler struct {
	svc        Lifecycle
	apiBaseURL string
	log        zerolog.Logger
}

func NewHandler(svc Lifecycle, apiBaseURL string, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, apiBaseURL: apiBaseURL, log: log}
}

type createRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("sms-queue"))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"api_base_url": h.apiBaseURL})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	m, err := h.svc.Create(r.Context(), req.To, req.Message)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": m.ID, "status": "queued"})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	p := service.ListParams{Status: q.Get("status"), To: q.Get("to")}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: limit must be an integer", service.ErrInvalidInput))
			return
		}
		// The lifecycle reads 0 as unset.
		if limit == 0 {
			h.writeError(w, r, fmt.Errorf("%w: %v", service.ErrInvalidInput, repo.ErrInvalidLimit))
			return
		}
		p.Limit = limit
	}

	items, err := h.svc.List(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListPending(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) MarkSent(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.MarkSent(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) MarkFailed(w http.ResponseWriter, r *http.Request) {
	reason := r.URL.Query().Get("reason")
	if _, err := h.svc.MarkFailed(r.Context(), mux.Vars(r)["id"], reason); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Retry(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "queued"})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", service.ErrInvalidInput, err)
	}
	// The body must hold exactly one value.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: malformed JSON body: trailing data", service.ErrInvalidInput)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		msg = service.ErrStorage.Error()
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
