package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/financoor/backend/src/logger"
	"github.com/financoor/backend/src/models"
	"github.com/financoor/backend/src/registry"
	"github.com/financoor/backend/src/utils"
)

// RegistryHandler exposes the verification registry over HTTP: submission
// for the dev-mode in-process chain and read-only accessors that mirror the
// contract's view functions.
type RegistryHandler struct {
	registry *registry.Registry
}

func NewRegistryHandler(reg *registry.Registry) *RegistryHandler {
	return &RegistryHandler{registry: reg}
}

type verifyRequest struct {
	Caller       string `json:"caller"`
	Proof        []byte `json:"proof"`
	PublicValues []byte `json:"public_values"`
}

type recordResponse struct {
	Commitment models.Commitment        `json:"commitment"`
	Verified   bool                     `json:"verified"`
	Record     *registry.VerifiedRecord `json:"record,omitempty"`
}

// HandleVerify submits (proof, public values) to the registry on behalf of
// the caller address.
func (h *RegistryHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !common.IsHexAddress(req.Caller) {
		utils.SendJSONError(w, "Invalid caller address", http.StatusBadRequest)
		return
	}
	caller := common.HexToAddress(req.Caller)

	com, err := h.registry.Verify(caller, req.Proof, req.PublicValues)
	if err != nil {
		logger.L.Warn("Registry verification rejected", "caller", caller.Hex(), "error", err)
		writeServiceError(w, err)
		return
	}

	record, _ := h.registry.GetRecord(com)
	utils.SendJSON(w, http.StatusOK, recordResponse{
		Commitment: com,
		Verified:   true,
		Record:     &record,
	})
}

// HandleRecord returns the stored record for a commitment.
func (h *RegistryHandler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	var com models.Commitment
	if err := com.FromHex(r.PathValue("commitment")); err != nil {
		utils.SendJSONError(w, "Invalid commitment", http.StatusBadRequest)
		return
	}

	record, ok := h.registry.GetRecord(com)
	if !ok {
		utils.SendJSONError(w, "No record for commitment", http.StatusNotFound)
		return
	}

	utils.SendJSON(w, http.StatusOK, recordResponse{
		Commitment: com,
		Verified:   h.registry.IsVerified(com),
		Record:     &record,
	})
}

type vkeyResponse struct {
	VKeyHash string `json:"vkey_hash"`
}

// HandleVKey returns the configured verification-key hash.
func (h *RegistryHandler) HandleVKey(w http.ResponseWriter, r *http.Request) {
	utils.SendJSON(w, http.StatusOK, vkeyResponse{VKeyHash: h.registry.VKeyHash().Hex()})
}
