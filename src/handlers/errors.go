package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/financoor/backend/src/commitment"
	"github.com/financoor/backend/src/logger"
	"github.com/financoor/backend/src/registry"
	"github.com/financoor/backend/src/services"
	"github.com/financoor/backend/src/taxengine"
	"github.com/financoor/backend/src/utils"
)

// writeServiceError maps service and engine errors onto HTTP statuses.
// Validation failures name the offending field; internal errors never leak
// details to the client.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		missingPrice  *taxengine.MissingPriceError
		invalidAmount *taxengine.InvalidAmountError
		invalidRow    *taxengine.InvalidRowError
		encMismatch   *commitment.EncodingMismatchError
	)
	switch {
	case errors.As(err, &missingPrice),
		errors.As(err, &invalidAmount),
		errors.As(err, &invalidRow),
		errors.Is(err, taxengine.ErrUnsupportedUserType):
		utils.SendJSONError(w, fmt.Sprintf("Invalid tax request: %v", err), http.StatusBadRequest)
	case errors.As(err, &encMismatch):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, registry.ErrProofRejected):
		utils.SendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, services.ErrJobNotFound):
		utils.SendJSONError(w, "Proof job not found", http.StatusNotFound)
	case errors.Is(err, services.ErrQueueFull):
		utils.SendJSONError(w, "Proving capacity exhausted, retry later", http.StatusTooManyRequests)
	default:
		logger.L.Error("Internal error handling request", "error", err)
		utils.SendJSONError(w, "An internal error occurred. Please try again later.", http.StatusInternalServerError)
	}
}
