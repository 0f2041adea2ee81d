package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"studio/internal/http/handlers"
	"studio/internal/infra"
	"studio/internal/middleware"
)

// NewRouter mounts the batch API. Submissions are rate limited per client
// IP to submitPerMinute requests.
func NewRouter(app *handlers.App, logger infra.Logger, submitPerMinute int) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/models", app.Models)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/batches", func(r chi.Router) {
		r.With(middleware.RateLimit(submitPerMinute, time.Minute)).Post("/", app.CreateBatch)
		r.Get("/", app.ListBatches)
		r.Get("/{id}", app.GetBatch)
		r.Get("/{id}/report", app.GetReport)
		r.Get("/{id}/archive", app.GetArchive)
		r.Delete("/{id}", app.CancelBatch)
	})

	return r
}
