// internal/httpapi/router.go
//
// Route table.
//
// Middleware order matters: tenancy must run before logging so the log
// line carries the resolved schema, and before any handler so repository
// calls see the scoped context.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sigedu/admision/internal/middleware"
	"github.com/sigedu/admision/internal/tenancy"
)

// NewRouter assembles the chi router for the whole API surface.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Security)
	r.Use(tenancy.Middleware)
	r.Use(middleware.Logging(zap.L()))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/admissions", func(r chi.Router) {
			r.Post("/", h.CreateAdmission)
			r.Get("/", h.ListAdmissions)
			r.Get("/current", h.CurrentAdmission)
			r.Put("/current/{name}", h.SetCurrentAdmission)
			r.Get("/{name}", h.AdmissionByName)
		})

		r.Get("/areas", h.ListAreas)
		r.Get("/courses", h.ListCourses)
		r.Get("/shifts", h.ListShifts)
		r.Get("/course-loads", h.ListCourseLoads)
	})

	return r
}
