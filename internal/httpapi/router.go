// Package httpapi wires the HTTP surface of spec.md §6: POST /check,
// GET /sources[/:category], GET /samples/*, GET /health, GET /metrics.
//
// Grounded on jordigilh-kubernaut's chi.NewRouter + middleware stack +
// r.Route nesting, combined with cmd/serve.go's graceful-shutdown pattern
// and Togather-Foundation-server/internal/api/middleware/ratelimit.go's
// lazy per-key limiter approach (adapted here to per-API-key via
// internal/auth.RateLimiter).
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/verdefield/agrocheck/internal/auth"
	"github.com/verdefield/agrocheck/internal/checker"
	"github.com/verdefield/agrocheck/internal/monitoring"
	"github.com/verdefield/agrocheck/internal/orchestrator"
	"github.com/verdefield/agrocheck/internal/telemetry"
	"github.com/verdefield/agrocheck/pkg/samples"
)

// Server bundles the dependencies needed to build the HTTP handler.
type Server struct {
	orchestrator *orchestrator.Orchestrator
	registry     *checker.Registry
	collector    *monitoring.Collector
	authStore    auth.Store
	rateLimiter  *auth.RateLimiter
	samples      *samples.Store
	validate     *validator.Validate
	logger       *zap.Logger
}

// New builds a Server. authStore or rateLimiter may be nil to disable
// authentication (local/dev configurations only).
func New(
	o *orchestrator.Orchestrator,
	registry *checker.Registry,
	collector *monitoring.Collector,
	authStore auth.Store,
	rateLimiter *auth.RateLimiter,
	sampleStore *samples.Store,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		orchestrator: o,
		registry:     registry,
		collector:    collector,
		authStore:    authStore,
		rateLimiter:  rateLimiter,
		samples:      sampleStore,
		validate:     validator.New(),
		logger:       logger,
	}
}

// Handler builds the chi router for this service.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "X-API-Key", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(telemetry.HTTPMiddleware(routePattern))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(telemetry.Registry, promhttp.HandlerOpts{}))

	r.Get("/sources", s.handleListSources)
	r.Get("/sources/{category}", s.handleListSourcesByCategory)

	r.Route("/samples", func(r chi.Router) {
		r.Get("/*", s.handleSamples)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/check", s.handleCheck)
	})

	return r
}

// routePattern reports the matched chi route pattern for a request, used
// to label HTTP metrics without per-ID cardinality blowup.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
