package httpapi

import (
	"errors"
	"net/http"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/logger"
)

// StatusCode maps an error onto an HTTP status.
func StatusCode(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotConfigured):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrAuthInvalid):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError writes err as JSON. Internal errors are logged and their
// detail is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error(err, "%s %s", r.Method, r.URL.Path)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: msg})
}
