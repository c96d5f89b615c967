package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cimillas/hut-booking/internal/domain"
)

const (
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeValidationFailed    = "validation_failed"
	codeInvalidID           = "invalid_id"
	codeBookingNotFound     = "booking_not_found"
	codeUnknownReviewer     = "unknown_reviewer"
	codeConflict            = "conflict"
	codePastItem            = "past_item"
	codeInvalidTransition   = "invalid_transition"
	codeIdempotencyConflict = "idempotency_conflict"
	codeUnauthorized        = "unauthorized"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error    string          `json:"error"`
	Code     string          `json:"code"`
	Field    string          `json:"field,omitempty"`
	Conflict *conflictDetail `json:"conflict,omitempty"`
}

type conflictDetail struct {
	BookingID     string `json:"booking_id,omitempty"`
	RequesterName string `json:"requester_name,omitempty"`
	Status        string `json:"status,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeServiceError maps an error returned by the app layer to a response.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		conflict   *domain.ConflictError
		validation *domain.ValidationError
		transition *domain.InvalidTransitionError
	)
	switch {
	case errors.As(err, &conflict):
		writeErrorResponse(w, http.StatusConflict, errorResponse{
			Error: err.Error(),
			Code:  codeConflict,
			Conflict: &conflictDetail{
				BookingID:     conflict.BookingID,
				RequesterName: conflict.RequesterName,
				Status:        string(conflict.Status),
			},
		})
	case errors.As(err, &validation):
		writeErrorResponse(w, http.StatusUnprocessableEntity, errorResponse{
			Error: validation.Error(),
			Code:  codeValidationFailed,
			Field: validation.Field,
		})
	case errors.As(err, &transition):
		writeError(w, http.StatusConflict, codeInvalidTransition, transition.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, domain.ErrPastItem):
		writeError(w, http.StatusConflict, codePastItem, err.Error())
	case errors.Is(err, domain.ErrIdempotencyConflict):
		writeError(w, http.StatusConflict, codeIdempotencyConflict, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, domain.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, codeBookingNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrUnknownReviewer):
		writeError(w, http.StatusBadRequest, codeUnknownReviewer, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
