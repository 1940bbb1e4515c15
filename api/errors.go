package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/garderieflow/backoffice/config"
	"github.com/garderieflow/backoffice/core"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// respondError maps a service error onto a status code.
//
//	NotFound            404
//	Validation          400
//	InvalidState        409
//	Duplicate           409
//	ConcurrencyConflict 409 (retryable)
//	anything else       500
func respondError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Code:    "validation",
			Details: fieldErrors(verrs),
		})
	case core.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, core.ErrValidation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "validation"})
	case errors.Is(err, core.ErrInvalidState):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "invalid_state"})
	case errors.Is(err, core.ErrDuplicate):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "already exists", Code: "duplicate"})
	case core.IsRetryable(err):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:     "concurrent update, please retry",
			Code:      "concurrency_conflict",
			Retryable: true,
		})
	default:
		log.Printf("[API] Internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: config.SafeErrorMessage(err, "internal error"),
		})
	}
}

func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			out[fe.Field()] = fe.Tag() + "=" + fe.Param()
		} else {
			out[fe.Field()] = fe.Tag()
		}
	}
	return out
}
