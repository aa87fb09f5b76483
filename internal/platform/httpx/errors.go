package httpx

import (
	"errors"
	"net/http"

	"github.com/atlas-retail/atlas-ledger/internal/shared"
)

// RespondError maps ledger domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var (
		validation *shared.ValidationError
		notFound   *shared.NotFoundError
		conflict   *shared.ConflictError
		config     *shared.ConfigurationError
		stock      *shared.InsufficientStockError
	)
	switch {
	case errors.As(err, &validation):
		Problem(w, http.StatusBadRequest, "Validation Failed", validation.Reason)
	case errors.As(err, &notFound) || errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &conflict):
		Problem(w, http.StatusConflict, "Conflict", conflict.Reason)
	case errors.As(err, &stock):
		Problem(w, http.StatusConflict, "Insufficient Stock", stock.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.As(err, &config):
		Problem(w, http.StatusUnprocessableEntity, "Configuration Error", config.Reason)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
