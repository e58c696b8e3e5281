package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"news-temperature/internal/middleware"
)

type RouterOptions struct {
	RequestTimeout time.Duration
	RateLimit      int
	RateBurst      int
}

type Router struct {
	chi.Router
}

func NewRouter(opts RouterOptions) *Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	if opts.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(opts.RequestTimeout))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Content-Type",
			"X-Session-ID", "X-Naver-Client-Id", "X-Naver-Client-Secret", "X-OpenAI-Api-Key",
		},
		MaxAge: 300,
	}))

	if opts.RateLimit > 0 {
		r.Use(middleware.NewRateLimiter(opts.RateLimit, max(opts.RateBurst, 1)).Handler)
	}

	return &Router{r}
}

func (r *Router) RegisterTemperatureRoutes(h *TemperatureHandler) {
	h.RegisterRoutes(r)
}

// RegisterHealthRoutes adds liveness and readiness checks. ready may be
// nil.
func (r *Router) RegisterHealthRoutes(ready func(ctx context.Context) error) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				middleware.WriteError(w, http.StatusServiceUnavailable, "NOT_READY", err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "ready",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
}
