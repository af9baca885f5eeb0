package handler

import (
	"net/http"

	"stockcount-api/internal/service"
	"stockcount-api/pkg/apierror"
	"stockcount-api/pkg/response"
)

// AuthHandler verifies operator credentials against the cached Users table.
type AuthHandler struct {
	inventoryService *service.InventoryService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(inventoryService *service.InventoryService) *AuthHandler {
	return &AuthHandler{inventoryService: inventoryService}
}

// VerifyRequest represents the request body for credential verification.
type VerifyRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Verify handles POST /api/v1/users/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if apiErr := decodeJSON(r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	user, ok := h.inventoryService.MatchUser(req.Username, req.Password)
	if !ok {
		response.Error(w, apierror.Unauthorized("Invalid username or password"))
		return
	}
	response.OK(w, user)
}
