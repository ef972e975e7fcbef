package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/erp-api/internal/shared"
)

// StatusFor maps a domain error to its HTTP status code and title.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest, "Validation Failed"
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, shared.ErrConflict):
		return http.StatusBadRequest, "Duplicate"
	case errors.Is(err, shared.ErrBusinessRule):
		return http.StatusBadRequest, "Business Rule Violation"
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807. Unknown
// errors are logged and reported without detail.
func RespondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, title := StatusFor(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed",
				slog.String("path", r.URL.Path),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.Any("error", err))
		}
		Problem(w, status, title, "Something went wrong")
		return
	}
	Problem(w, status, title, shared.Message(err, err.Error()))
}
