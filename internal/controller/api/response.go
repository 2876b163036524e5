package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/Freeeeeet/venue_booking/internal/service"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error  string               `json:"error"`
	Fields []service.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string, fields []service.FieldError) {
	writeJSON(w, status, errorResponse{Error: msg, Fields: fields})
}

// statusFor maps the core error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrBookingNotFound),
		errors.Is(err, model.ErrVenueNotFound),
		errors.Is(err, model.ErrEquipmentNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, status, "internal error", nil)
		return
	}

	var verrs service.ValidationErrors
	if errors.As(err, &verrs) {
		writeError(w, status, "request rejected", verrs)
		return
	}
	writeError(w, status, err.Error(), nil)
}
