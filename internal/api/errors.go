// Package api holds the HTTP handlers for collections, uploads, the
// lock-screen config, placeholders and health.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/heartbook/heartbook/internal/api/respond"
	"github.com/heartbook/heartbook/internal/model"
)

// StatusFor maps a store or service error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrUnsupportedMediaType):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	respond.WriteError(w, StatusFor(err), err.Error())
}
