package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tokenctx/internal/platform/metrics"
	"tokenctx/pkg/platform/httputil"
	authmw "tokenctx/pkg/platform/middleware/auth"
	"tokenctx/pkg/platform/middleware/metadata"
	"tokenctx/pkg/platform/middleware/request"
	"tokenctx/pkg/platform/middleware/requesttime"
)

// HealthChecker reports the readiness of an infrastructure dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewRouter assembles the full middleware chain and mounts all endpoints.
// Domain routes sit behind JWT auth; /healthz and /metrics stay open.
func NewRouter(h *Handler, validator authmw.JWTValidator, logger *slog.Logger, m *metrics.Metrics, checks map[string]HealthChecker) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(latency(m))

	r.Get("/healthz", handleHealth(logger, checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(validator, logger))

		r.Route("/contexts", func(r chi.Router) {
			r.Post("/", h.handleCreateContext)
			r.Get("/", h.handleContextAt)
			r.Get("/count", h.handleContextCount)
			r.Get("/max-detaching-duration", h.handleMaxDetachingDuration)
			r.Route("/{ctxHash}", func(r chi.Router) {
				r.Get("/", h.handleGetContext)
				r.Put("/", h.handleUpdateContext)
				r.Post("/deprecate", h.handleDeprecateContext)
			})
		})

		r.Route("/tokens/{token}", func(r chi.Router) {
			r.Get("/manager", h.handleManagerOf)

			r.Route("/contexts", func(r chi.Router) {
				r.Get("/", h.handleTokenContexts)
				r.Route("/{ctxHash}", func(r chi.Router) {
					r.Get("/", h.handleTokenContext)
					r.Post("/attach", h.handleAttach)
					r.Post("/lock", h.handleSetLock)
					r.Post("/user", h.handleSetUser)
					r.Post("/request-detach", h.handleRequestDetach)
					r.Post("/exec-detach", h.handleExecDetach)
				})
			})

			r.Route("/delegation", func(r chi.Router) {
				r.Get("/", h.handleGetDelegation)
				r.Post("/", h.handleStartDelegation)
				r.Put("/", h.handleAcceptDelegation)
				r.Delete("/", h.handleStopDelegation)
			})
		})
	})

	return r
}

// latency observes per-route request duration using the chi route pattern,
// so path parameters don't explode label cardinality.
func latency(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			if m == nil {
				return
			}
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(route, r.Method, time.Since(start))
		})
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func handleHealth(logger *slog.Logger, checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
			for name, check := range checks {
				if err := check.Health(ctx); err != nil {
					logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err.Error())
					resp.Checks[name] = err.Error()
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				resp.Checks[name] = "ok"
			}
		}
		httputil.WriteJSON(w, status, resp)
	}
}
