package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BradenHooton/deptaccess/internal/models"
	"github.com/BradenHooton/deptaccess/internal/services"
	pkghttp "github.com/BradenHooton/deptaccess/pkg/http"
	pkglogger "github.com/BradenHooton/deptaccess/pkg/logger"
)

// AdminHandler handles administrative token operations.
type AdminHandler struct {
	service     services.TokenOperations
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service services.TokenOperations, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AdminHandler {
	return &AdminHandler{
		service:     service,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// RevokeTokenRequest represents the request body for revocation
type RevokeTokenRequest struct {
	TokenID string `json:"tokenId" validate:"required"`
}

// MessageResponse is a plain success acknowledgement
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ListTokensResponse is returned by GET /api/admin/tokens
type ListTokensResponse struct {
	Success bool                 `json:"success"`
	Tokens  []models.ActiveToken `json:"tokens"`
	Count   int                  `json:"count"`
}

// CleanupResponse is returned by DELETE /api/admin/tokens
type CleanupResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	CleanedCount int    `json:"cleanedCount"`
}

// RevokeToken handles POST /api/admin/revoke-token
func (h *AdminHandler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	var req RevokeTokenRequest

	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	req.TokenID = strings.TrimSpace(req.TokenID)
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "bad_request", "Token ID is required", err.Error())
		return
	}

	revoked, err := h.service.Revoke(r.Context(), req.TokenID)
	if err != nil {
		h.writeStoreError(w, "token revocation failed", "Failed to revoke token", err)
		return
	}
	if !revoked {
		pkghttp.WriteNotFound(w, "Token not found or already revoked")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{
		Success: true,
		Message: fmt.Sprintf("Token %s has been revoked", req.TokenID),
	})
}

// ListTokens handles GET /api/admin/tokens. Signed tokens are never returned.
func (h *AdminHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.service.ListActive(r.Context())
	if err != nil {
		h.writeStoreError(w, "listing tokens failed", "Failed to fetch tokens", err)
		return
	}
	if tokens == nil {
		tokens = []models.ActiveToken{}
	}

	pkghttp.WriteJSON(w, http.StatusOK, ListTokensResponse{
		Success: true,
		Tokens:  tokens,
		Count:   len(tokens),
	})
}

// CleanupTokens handles DELETE /api/admin/tokens
func (h *AdminHandler) CleanupTokens(w http.ResponseWriter, r *http.Request) {
	cleaned, err := h.service.CleanupExpired(r.Context())
	if err != nil {
		h.writeStoreError(w, "token cleanup failed", "Failed to cleanup tokens", err)
		return
	}

	h.auditLogger.LogCleanup(r.Context(), "admin", cleaned)

	pkghttp.WriteJSON(w, http.StatusOK, CleanupResponse{
		Success:      true,
		Message:      fmt.Sprintf("Cleaned up %d expired tokens", cleaned),
		CleanedCount: cleaned,
	})
}

func (h *AdminHandler) writeStoreError(w http.ResponseWriter, logMsg, clientMsg string, err error) {
	h.logger.Error(logMsg, slog.Any("error", err))
	if errors.Is(err, models.ErrStoreUnavailable) {
		pkghttp.WriteServiceUnavailable(w, "Token store unavailable, please retry")
		return
	}
	pkghttp.WriteInternalError(w, clientMsg)
}
