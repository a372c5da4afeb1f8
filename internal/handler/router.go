package handler

import (
	"net/http"

	"github.com/boddenberg/creditline/internal/infra/observability"
	"github.com/boddenberg/creditline/internal/infra/resilience"
	"github.com/boddenberg/creditline/internal/port"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// A nil guard leaves the state-changing routes open; a nil bulkhead disables
// request shedding.
func NewRouter(svc port.CreditLine, guard *TokenGuard, bulkhead *resilience.Bulkhead, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1/account", func(r chi.Router) {
		if bulkhead != nil {
			r.Use(bulkhead.Middleware)
		}

		r.Get("/", snapshotHandler(svc))
		r.Get("/activity", activityHandler(svc))

		// A balance query accrues interest, so it is guarded with the writes.
		r.Group(func(r chi.Router) {
			if guard != nil {
				r.Use(guard.Middleware(logger))
			}
			r.Get("/balance", balanceHandler(svc, logger))
			r.Post("/charges", chargeHandler(svc, logger))
			r.Post("/payments", paymentHandler(svc, logger))
		})
	})

	return r
}

func healthzHandler(svc port.CreditLine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		if svc == nil {
			status = "degraded"
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": status})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
