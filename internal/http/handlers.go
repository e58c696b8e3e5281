package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"news-temperature/internal/cache"
	"news-temperature/internal/failure"
	"news-temperature/internal/middleware"
	"news-temperature/internal/services/news"
	"news-temperature/internal/services/pipeline"
	"news-temperature/internal/services/sentiment"
)

const (
	sessionHeader = "X-Session-ID"
	sessionCookie = "session_id"

	maxBodyBytes = 1 << 20
)

// Runner executes one temperature query.
type Runner interface {
	Run(ctx context.Context, q news.Query, creds pipeline.Credentials) (*sentiment.Report, error)
}

// TemperatureHandler serves temperature queries and stored results.
type TemperatureHandler struct {
	runner Runner
	store  cache.ResultStore
}

func NewTemperatureHandler(runner Runner, store cache.ResultStore) *TemperatureHandler {
	return &TemperatureHandler{runner: runner, store: store}
}

// QueryResponse is returned by POST /query.
type QueryResponse struct {
	Report    *sentiment.Report `json:"report"`
	CacheKey  string            `json:"cache_key,omitempty"`
	SessionID string            `json:"session_id"`
}

func (h *TemperatureHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/temperature", func(r chi.Router) {
		r.Post("/query", h.Query)
		r.Get("/results/{key}", h.Result)
	})
}

// Query runs the pipeline for the JSON query in the body. Credentials in
// request headers take precedence over configured ones.
func (h *TemperatureHandler) Query(w http.ResponseWriter, r *http.Request) {
	// Parse request body
	var q news.Query
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&q); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, string(failure.InvalidQuery), "invalid request body")
		return
	}

	// Per-request credentials override the server's
	creds := pipeline.Credentials{
		NaverClientID:     r.Header.Get("X-Naver-Client-Id"),
		NaverClientSecret: r.Header.Get("X-Naver-Client-Secret"),
		OpenAIKey:         r.Header.Get("X-OpenAI-Api-Key"),
	}
	sessionID := h.session(w, r)

	report, err := h.runner.Run(r.Context(), q, creds)
	if err != nil {
		writeFailure(w, err)
		return
	}

	// Persist the report under the caller's session
	resp := QueryResponse{Report: report, SessionID: sessionID}
	if h.store != nil {
		key, err := pipeline.Store(r.Context(), h.store, sessionID, report)
		if err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to store report")
		} else {
			resp.CacheKey = key
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Result returns a stored report verbatim.
func (h *TemperatureHandler) Result(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !cache.ValidKey(key) {
		middleware.WriteError(w, http.StatusBadRequest, "INVALID_KEY", "malformed result key")
		return
	}
	if h.store == nil {
		middleware.WriteError(w, http.StatusNotFound, "NOT_FOUND", "result not found")
		return
	}

	// Get stored report
	data, err := h.store.Get(r.Context(), key)
	if errors.Is(err, cache.ErrKeyNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "NOT_FOUND", "result not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to read stored report")
		middleware.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to read result")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// session returns the caller's session id, issuing one in a cookie when
// the request carries none.
func (h *TemperatureHandler) session(w http.ResponseWriter, r *http.Request) string {
	if id := r.Header.Get(sessionHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(24 * time.Hour),
	})
	return id
}

// statusFor maps a failure kind onto an HTTP status.
func statusFor(kind failure.Kind) int {
	switch kind {
	case failure.InvalidQuery, failure.MissingCredential:
		return http.StatusBadRequest
	case failure.AuthError:
		return http.StatusUnauthorized
	case failure.RateLimited:
		return http.StatusTooManyRequests
	case failure.UpstreamUnavailable:
		return http.StatusBadGateway
	case failure.NoBackendAvailable, failure.ModelLoadError:
		return http.StatusServiceUnavailable
	case failure.Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeFailure(w http.ResponseWriter, err error) {
	kind := failure.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("kind", string(kind)).Msg("Query failed")
	}
	middleware.WriteError(w, status, string(kind), err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
