package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jgirmay/dtq/internal/apperrors"
	"github.com/jgirmay/dtq/internal/coordinator"
	"github.com/jgirmay/dtq/internal/events"
)

// NewRouter assembles the full chi router: a base middleware stack
// (Logger, Recoverer, RequestID), the client and worker route groups,
// plus the Prometheus and websocket observability endpoints.
func NewRouter(coord *coordinator.Coordinator, hub *events.Hub, clientKey, workerKey string) *chi.Mux {
	errs := apperrors.NewHandler(true)
	api := NewAPI(coord, errs)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", api.Healthz)
	r.Handle("/metrics", promhttp.Handler())
	r.With(requireAPIKey(clientKey, errs)).Get("/ws/events", hub.ServeWS)

	r.Route("/client", func(cr chi.Router) {
		cr.Use(requireAPIKey(clientKey, errs))
		cr.Post("/tasks", api.SubmitTask)
		cr.Get("/tasks/{task_id}", api.GetTask)
		cr.Get("/tasks/{task_id}/result", api.GetResult)
		cr.Get("/metrics", api.ClientMetrics)
	})

	r.Route("/worker", func(wr chi.Router) {
		wr.Use(requireAPIKey(workerKey, errs))
		wr.Post("/register", api.RegisterWorker)
		wr.Post("/heartbeat", api.Heartbeat)
		wr.Post("/pull", api.Pull)
		wr.Post("/report", api.Report)
	})

	return r
}
