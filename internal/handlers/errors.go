package handlers

import (
	"errors"
	"net/http"

	"aquarium_dashboard/internal/apperr"
	"aquarium_dashboard/internal/dashboard"
	"aquarium_dashboard/internal/feeding"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	errInvalidBodyPref = "invalid body: "
	errUnavailable     = "remote service unavailable"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if err != nil {
		fields := append(apperr.LogFields(err), kv...)
		if httpCode >= http.StatusInternalServerError {
			h.log.Errorw(logKey, fields...)
		} else {
			h.log.Infow(logKey, fields...)
		}
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// respondError maps the error taxonomy onto HTTP. Validation and backend
// messages reach the operator verbatim; transport failures do not.
func (h *Handler) respondError(c *gin.Context, logKey string, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		h.logAndJSONError(c, http.StatusBadRequest, err.Error(), logKey, err)
	case errors.Is(err, feeding.ErrNotConfirmed), errors.Is(err, feeding.ErrControlBusy):
		h.logAndJSONError(c, http.StatusConflict, err.Error(), logKey, err)
	case errors.Is(err, dashboard.ErrTornDown):
		h.logAndJSONError(c, http.StatusServiceUnavailable, err.Error(), logKey, err)
	case errors.Is(err, apperr.ErrAPI):
		h.logAndJSONError(c, http.StatusBadGateway, err.Error(), logKey, err)
	case errors.Is(err, apperr.ErrNetwork), errors.Is(err, apperr.ErrHTTP), errors.Is(err, apperr.ErrParse):
		h.logAndJSONError(c, http.StatusServiceUnavailable, errUnavailable, logKey, err)
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "internal error", logKey, err)
	}
}
