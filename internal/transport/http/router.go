package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/trace"

	apierrors "baaccli/internal/errors"
	"baaccli/internal/infrastructure"
	"baaccli/internal/middleware"
	"baaccli/internal/services"
)

// RouterOptions wires the router collaborators
type RouterOptions struct {
	Accidents   AccidentServiceInterface
	Health      *services.HealthService
	MaxPageSize int
	// RateLimit is the global request rate; 0 disables limiting.
	RateLimit float64
	RateBurst int
	Tracer    trace.Tracer
	Metrics   *infrastructure.PipelineMetrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// NewRouter builds the API router. Middleware order: request id, real ip,
// telemetry, logging and panic recovery, security headers, rate limit.
func NewRouter(opts RouterOptions) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Telemetry(opts.Tracer, opts.Metrics))
	r.Use(apierrors.NewErrorMiddleware(logger).Handler)
	r.Use(middleware.SecurityHeaders)
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		r.Use(middleware.NewRateLimiter(opts.RateLimit, burst, logger).Handler)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = render.Render(w, r, apierrors.NewErrorResponse(apierrors.NotFoundError("route")))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrMethodNotAllowed))
	})

	accidents := NewAccidentHandler(opts.Accidents, opts.MaxPageSize, logger)
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		if opts.Health != nil {
			r.Get("/health", NewHealthHandler(opts.Health).HealthCheck)
		}
		r.Get("/years", accidents.Years)
		r.Get("/accidents", accidents.List)
		r.Get("/accidents/{id}", accidents.Get)
	})

	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler)
	}
	return r
}
