// Package httptransport assembles the HTTP surface: the middleware chain,
// operational endpoints and the API routes of every domain handler.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"orgstructure/internal/platform/metrics"
	"orgstructure/internal/platform/middleware"
	dErrors "orgstructure/pkg/domain-errors"
	"orgstructure/pkg/platform/httputil"
)

// Registrar mounts a handler's routes.
type Registrar interface {
	Register(r chi.Router)
}

// PublicRegistrar mounts routes that run before authentication.
type PublicRegistrar interface {
	RegisterPublic(r chi.Router, limit func(http.Handler) http.Handler)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	APIPrefix          string
	RequestTimeout     time.Duration
	CORSAllowedOrigins []string
}

type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Health   Pinger
	Auth     middleware.Authenticator
	// LoginLimit wraps the login route; nil means unlimited.
	LoginLimit func(http.Handler) http.Handler
	Public     PublicRegistrar
	Handlers   []Registrar
}

func NewRouter(cfg Config, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.LatencyMiddleware(deps.Metrics))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{"X-Total-Count", middleware.RequestIDHeader},
			AllowCredentials: true,
		}).Handler)
	}

	r.Get("/healthz", healthHandler(deps.Health, deps.Logger))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/"
	}
	limit := deps.LoginLimit
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}
	r.Route(prefix, func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		if deps.Public != nil {
			deps.Public.RegisterPublic(r, limit)
		}
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(deps.Auth, deps.Logger))
			for _, h := range deps.Handlers {
				h.Register(r)
			}
		})
	})
	return r
}

func healthHandler(p Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			if err := p.Ping(r.Context()); err != nil {
				logger.ErrorContext(r.Context(), "health check failed", "error", err)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "storage unavailable"))
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
