package handler

import (
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"driveindex/internal/domain"
	"driveindex/internal/httputil"
)

// handleError maps domain errors to HTTP status codes
func handleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verrs validation.Errors
	var httpErr domain.HTTPError

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		httputil.RespondError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, domain.ErrNoConnection):
		httputil.RespondError(w, http.StatusPreconditionFailed, "no drive connection available")
	case errors.Is(err, domain.ErrNoKnowledgeBase):
		httputil.RespondError(w, http.StatusPreconditionFailed, "no knowledge base exists yet")
	case errors.Is(err, domain.ErrOperationInProgress):
		httputil.RespondError(w, http.StatusConflict, "an index operation is already in progress")
	case errors.Is(err, domain.ErrValidation), errors.As(err, &verrs):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &httpErr):
		httputil.RespondError(w, httpErr.StatusCode(), err.Error())
	default:
		logger.Error("unhandled error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
