// Package server assembles the HTTP surface: API routes, health checks, metrics and
// the middleware chain.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/diewo77/voyage-billing/internal/handlers"
	"github.com/diewo77/voyage-billing/internal/httpx"
	"github.com/diewo77/voyage-billing/internal/logging"
	"github.com/diewo77/voyage-billing/internal/metrics"
)

// Deps are the collaborators the router needs.
type Deps struct {
	DB        *gorm.DB
	Log       logrus.FieldLogger
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Billing   *handlers.BillingHandler
	Drafts    *handlers.DraftHandler
	Documents *handlers.DocumentHandler
	// Catalog is nil when the catalog cache is disabled.
	Catalog *handlers.CatalogHandler
}

// New constructs the root http.Handler with all routes and middlewares applied.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.WithContext(r.Context()).Exec("SELECT 1").Error; err != nil {
			logging.FromContext(r.Context(), d.Log).WithError(err).Warn("health check failed")
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(d.Gatherer))
	}

	d.Billing.Register(mux)
	d.Drafts.Register(mux)
	d.Documents.Register(mux)
	if d.Catalog != nil {
		d.Catalog.Register(mux)
	}

	var h http.Handler = mux
	if d.Metrics != nil {
		// innermost, so it sees the pattern the mux matched
		h = metrics.HTTPMiddleware(d.Metrics)(h)
	}
	return withRecover(logging.Middleware(d.Log)(h), d.Log)
}

func withRecover(next http.Handler, log logrus.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.FromContext(r.Context(), log).WithField("panic", rec).Error("handler panicked")
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
