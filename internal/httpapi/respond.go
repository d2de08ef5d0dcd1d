// internal/httpapi/respond.go
//
// JSON response helpers and the sentinel-to-status mapping shared by all
// handlers.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sigedu/admision/internal/admission"
	"github.com/sigedu/admision/internal/directory"
	"github.com/sigedu/admision/internal/tenancy"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps the core's sentinel errors to HTTP statuses.
// Validation, conflict, and not-found each surface distinctly so clients
// can react (“choose another name” vs. “fix the dates”).  An
// uninitialized main pool is an ops problem, not a client one: 503.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, admission.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tenancy.ErrInvalidTenant):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, directory.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, directory.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tenancy.ErrNotInitialized):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
