package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/financoor/backend/src/logger"
	"github.com/financoor/backend/src/models"
	"github.com/financoor/backend/src/services"
	"github.com/financoor/backend/src/utils"
)

type ProofHandler struct {
	proofService services.ProofService
}

func NewProofHandler(service services.ProofService) *ProofHandler {
	return &ProofHandler{proofService: service}
}

type submitResponse struct {
	JobID  string           `json:"job_id"`
	Status models.JobStatus `json:"status"`
}

// HandleSubmit validates the request and enqueues proof generation,
// returning a pollable job id. Proving itself never runs on this path.
func (h *ProofHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req models.TaxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	jobID, err := h.proofService.Submit(&req)
	if err != nil {
		logger.L.Warn("Proof submission rejected", "error", err)
		writeServiceError(w, err)
		return
	}

	utils.SendJSON(w, http.StatusAccepted, submitResponse{
		JobID:  jobID,
		Status: models.JobStatusPending,
	})
}

// HandleStatus returns the current job state; terminal states are
// idempotent across polls.
func (h *ProofHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.SendJSONError(w, "Job id required", http.StatusBadRequest)
		return
	}

	job, err := h.proofService.Status(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	utils.SendJSON(w, http.StatusOK, job)
}
