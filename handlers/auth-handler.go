package handlers

import (
	"encoding/json"
	"net/http"

	"tezuka-planner/logging"
	"tezuka-planner/models"
	"tezuka-planner/utils"
)

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// IssueToken signs a token for the presented identity. There is no
// credential check; the original stored role and email client-side
// unchecked, and credential storage stays out of scope.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Email string      `json:"email"`
		Role  models.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if request.Email == "" {
		http.Error(w, "Email is required", http.StatusBadRequest)
		return
	}
	if request.Role != models.RoleAdmin && request.Role != models.RoleEmployee {
		http.Error(w, "Role must be admin or employee", http.StatusBadRequest)
		return
	}

	token, err := utils.GenerateToken(request.Email, request.Role)
	if err != nil {
		logging.Logger.Warnf("Event ID: TOKEN_ISSUE_FAILED, Description: Failed signing token for %s: %v", request.Email, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}
