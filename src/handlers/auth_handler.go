package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/financoor/backend/src/config"
	"github.com/financoor/backend/src/logger"
	"github.com/financoor/backend/src/security"
	"github.com/financoor/backend/src/utils"
)

type AuthHandler struct {
	authService *security.AuthService
}

func NewAuthHandler(authService *security.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type tokenRequest struct {
	APIKey string `json:"api_key"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// HandleToken exchanges the configured API key for a short-lived bearer
// token.
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !h.authService.CheckAPIKey(req.APIKey) {
		logger.L.Warn("Token request with invalid API key", "remoteAddr", r.RemoteAddr)
		utils.SendJSONError(w, "Invalid API key", http.StatusUnauthorized)
		return
	}

	token, err := h.authService.GenerateToken("api-client")
	if err != nil {
		logger.L.Error("Failed to generate token", "error", err)
		utils.SendJSONError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresIn: int64(config.Cfg.AccessTokenExpiry.Seconds()),
	})
}
