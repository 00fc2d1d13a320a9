package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/financoor/backend/src/logger"
	"github.com/financoor/backend/src/models"
	"github.com/financoor/backend/src/services"
	"github.com/financoor/backend/src/utils"
)

type TaxHandler struct {
	taxService services.TaxService
}

func NewTaxHandler(service services.TaxService) *TaxHandler {
	return &TaxHandler{taxService: service}
}

type computeResponse struct {
	Commitment models.Commitment    `json:"commitment"`
	Breakdown  *models.TaxBreakdown `json:"breakdown"`
}

// HandleCompute returns the synchronous tax breakdown for a request.
func (h *TaxHandler) HandleCompute(w http.ResponseWriter, r *http.Request) {
	var req models.TaxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	breakdown, com, err := h.taxService.Compute(&req)
	if err != nil {
		logger.L.Warn("Tax computation rejected", "error", err)
		writeServiceError(w, err)
		return
	}

	utils.SendJSON(w, http.StatusOK, computeResponse{
		Commitment: com,
		Breakdown:  breakdown,
	})
}
