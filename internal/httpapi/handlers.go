// internal/httpapi/handlers.go
//
// HTTP handlers for the admission lifecycle and the tenant-scoped
// reference reads.  Handlers stay thin: decode, delegate, map errors.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sigedu/admision/internal/academic"
	"github.com/sigedu/admision/internal/admission"
)

type Handlers struct {
	admissions *admission.Service
	academic   *academic.Repository
}

func NewHandlers(admissions *admission.Service, academicRepo *academic.Repository) *Handlers {
	return &Handlers{admissions: admissions, academic: academicRepo}
}

//
// Admission lifecycle
//

func (h *Handlers) CreateAdmission(w http.ResponseWriter, r *http.Request) {
	var in admission.ProvisionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.admissions.Provision(r.Context(), in)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handlers) ListAdmissions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.admissions.List(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handlers) CurrentAdmission(w http.ResponseWriter, r *http.Request) {
	rec, err := h.admissions.Current(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) AdmissionByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rec, err := h.admissions.ByName(r.Context(), name)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) SetCurrentAdmission(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rec, err := h.admissions.SetCurrent(r.Context(), name)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

//
// Tenant-scoped reference reads
//

func (h *Handlers) ListAreas(w http.ResponseWriter, r *http.Request) {
	out, err := h.academic.Areas(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) ListCourses(w http.ResponseWriter, r *http.Request) {
	out, err := h.academic.Courses(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) ListShifts(w http.ResponseWriter, r *http.Request) {
	out, err := h.academic.Shifts(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) ListCourseLoads(w http.ResponseWriter, r *http.Request) {
	out, err := h.academic.CourseLoads(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
