package http

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/playtube/user-service/pkg/errors"
	"github.com/playtube/user-service/pkg/validator"
)

// response is the standard JSON envelope. Exactly one of Data or Error is set.
type response struct {
	Data  any            `json:"data,omitempty"`
	Error *errorResponse `json:"error,omitempty"`
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeAppError maps service errors onto the envelope. Unknown errors are
// reported as a generic 500 without leaking the underlying cause.
func writeAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.Status, response{
			Error: &errorResponse{Code: appErr.Code, Message: appErr.Message},
		})
		return
	}

	writeJSON(w, apperrors.HTTPStatus(err), response{
		Error: &errorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred"},
	})
}

func writeValidationError(w http.ResponseWriter, err error) {
	var vErr *validator.ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "request validation failed",
				Fields:  vErr.Fields(),
			},
		})
		return
	}

	writeJSON(w, http.StatusBadRequest, response{
		Error: &errorResponse{Code: "INVALID_INPUT", Message: err.Error()},
	})
}
