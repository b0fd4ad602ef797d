// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusBadRequest:
		ProblemType(w, status, "validation", "Validation Failed", err.Error())
	case http.StatusNotFound:
		ProblemType(w, status, "not-found", "Not Found", err.Error())
	case http.StatusConflict:
		if errors.Is(err, shared.ErrInsufficientStock) {
			ProblemType(w, status, "insufficient-stock", "Insufficient Stock", err.Error())
			return
		}
		ProblemType(w, status, "conflict", "Conflict", err.Error())
	case http.StatusForbidden:
		ProblemType(w, status, "forbidden", "Forbidden", err.Error())
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", "1")
		ProblemType(w, status, "retry", "Service Unavailable", "request was not applied, please retry")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
	}
}
