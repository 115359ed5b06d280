package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/deptaccess/internal/models"
	"github.com/BradenHooton/deptaccess/internal/services"
	pkghttp "github.com/BradenHooton/deptaccess/pkg/http"
)

// isoMillis is RFC 3339 with fixed millisecond precision
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// TokenHandler serves the department token endpoints used by the ERP
type TokenHandler struct {
	service services.TokenOperations
	logger  *slog.Logger
}

// NewTokenHandler creates a new TokenHandler
func NewTokenHandler(service services.TokenOperations, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{
		service: service,
		logger:  logger,
	}
}

// Request DTOs

// GenerateTokenRequest represents the request body for token generation
type GenerateTokenRequest struct {
	DepartmentID   int64  `json:"departmentId" validate:"required,gt=0"`
	DepartmentName string `json:"departmentName" validate:"required,max=200"`
}

// TokenRequest carries a signed token for verification or status checks
type TokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// Response DTOs

// GenerateTokenResponse is returned on successful issuance
type GenerateTokenResponse struct {
	Success        bool   `json:"success"`
	Token          string `json:"token"`
	TokenID        string `json:"tokenId"`
	DepartmentID   int64  `json:"departmentId"`
	DepartmentName string `json:"departmentName"`
	ExpiresAt      string `json:"expiresAt"`
	Message        string `json:"message"`
}

// VerifyTokenResponse is returned by verify-token. Failures carry only Error.
type VerifyTokenResponse struct {
	Success        bool   `json:"success"`
	Valid          bool   `json:"valid"`
	DepartmentID   int64  `json:"departmentId,omitempty"`
	DepartmentName string `json:"departmentName,omitempty"`
	TokenID        string `json:"tokenId,omitempty"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
}

// CheckTokenResponse is returned by check-token
type CheckTokenResponse struct {
	Valid   bool                 `json:"valid"`
	IsUsed  bool                 `json:"isUsed"`
	Payload *models.TokenPayload `json:"payload"`
	Error   *string              `json:"error"`
}

// GenerateToken handles POST /api/auth/generate-token
func (h *TokenHandler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	var req GenerateTokenRequest

	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "bad_request",
			"Department ID and name are required", err.Error())
		return
	}

	data, err := h.service.Issue(r.Context(), req.DepartmentID, req.DepartmentName)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Department ID and name are required")
		case errors.Is(err, models.ErrStoreUnavailable):
			h.logger.Error("token generation failed", slog.Any("error", err))
			pkghttp.WriteServiceUnavailable(w, "Token store unavailable, please retry")
		default:
			h.logger.Error("token generation failed", slog.Any("error", err))
			pkghttp.WriteInternalError(w, "Failed to generate token")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, GenerateTokenResponse{
		Success:        true,
		Token:          data.Token,
		TokenID:        data.Payload.TokenID,
		DepartmentID:   data.Payload.DepartmentID,
		DepartmentName: data.Payload.DepartmentName,
		ExpiresAt:      data.Payload.ExpiresAtTime().UTC().Format(isoMillis),
		Message:        fmt.Sprintf("Token generated successfully for %s", data.Payload.DepartmentName),
	})
}

// VerifyToken handles POST /api/auth/verify-token. A successful call consumes the token.
func (h *TokenHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest

	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "bad_request", "Token is required", err.Error())
		return
	}

	result, err := h.service.VerifyAndConsume(r.Context(), req.Token)
	if err != nil {
		h.writeStoreError(w, "token verification failed", err)
		return
	}

	if !result.Valid || result.Payload == nil {
		msg := result.Error
		if msg == "" {
			msg = "Token verification failed"
		}
		pkghttp.WriteJSON(w, http.StatusUnauthorized, VerifyTokenResponse{
			Success: false,
			Valid:   false,
			Error:   msg,
		})
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, VerifyTokenResponse{
		Success:        true,
		Valid:          true,
		DepartmentID:   result.Payload.DepartmentID,
		DepartmentName: result.Payload.DepartmentName,
		TokenID:        result.Payload.TokenID,
		Message:        fmt.Sprintf("Access granted to %s", result.Payload.DepartmentName),
	})
}

// CheckToken handles POST /api/auth/check-token without consuming the token
func (h *TokenHandler) CheckToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest

	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "bad_request", "Token is required", err.Error())
		return
	}

	status, err := h.service.CheckStatus(r.Context(), req.Token)
	if err != nil {
		h.writeStoreError(w, "token check failed", err)
		return
	}

	resp := CheckTokenResponse{
		Valid:   status.Valid,
		IsUsed:  status.IsUsed,
		Payload: status.Payload,
	}
	if status.Error != "" {
		resp.Error = &status.Error
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

func (h *TokenHandler) writeStoreError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, slog.Any("error", err))
	if errors.Is(err, models.ErrStoreUnavailable) {
		pkghttp.WriteServiceUnavailable(w, "Token store unavailable, please retry")
		return
	}
	pkghttp.WriteInternalError(w, "Internal server error")
}
