package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/deptaccess/internal/auth"
	"github.com/BradenHooton/deptaccess/internal/models"
	"github.com/BradenHooton/deptaccess/internal/repositories"
	pkglogger "github.com/BradenHooton/deptaccess/pkg/logger"
)

// TokenOperations is the department token lifecycle exposed to handlers and the CLI
type TokenOperations interface {
	Issue(ctx context.Context, departmentID int64, departmentName string) (*models.TokenData, error)
	VerifyAndConsume(ctx context.Context, signedToken string) (models.VerifyResult, error)
	CheckStatus(ctx context.Context, signedToken string) (models.StatusResult, error)
	Revoke(ctx context.Context, tokenID string) (bool, error)
	CleanupExpired(ctx context.Context) (int, error)
	ListActive(ctx context.Context) ([]models.ActiveToken, error)
	HealthCheck(ctx context.Context) error
}

// TokenService issues one-time department tokens and enforces single use.
// It holds no token state; every decision is made against the store.
type TokenService struct {
	repo         repositories.TokenRepository
	tm           *auth.TokenManager
	logger       *slog.Logger
	auditLogger  *pkglogger.AuditLogger
	storeTimeout time.Duration
	now          func() time.Time
}

// NewTokenService creates a new TokenService
func NewTokenService(
	repo repositories.TokenRepository,
	tm *auth.TokenManager,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	storeTimeout time.Duration,
) *TokenService {
	return &TokenService{
		repo:         repo,
		tm:           tm,
		logger:       logger,
		auditLogger:  auditLogger,
		storeTimeout: storeTimeout,
		now:          time.Now,
	}
}

// SetClock replaces the time source used for record timestamps and cleanup
func (s *TokenService) SetClock(now func() time.Time) {
	s.now = now
}

// storeContext bounds a single store call
func (s *TokenService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// Issue signs a new token for the department and persists its record
func (s *TokenService) Issue(ctx context.Context, departmentID int64, departmentName string) (*models.TokenData, error) {
	departmentName = strings.TrimSpace(departmentName)
	if departmentID <= 0 {
		return nil, fmt.Errorf("%w: departmentId must be positive", models.ErrBadRequest)
	}
	if departmentName == "" {
		return nil, fmt.Errorf("%w: departmentName is required", models.ErrBadRequest)
	}

	token, payload, err := s.tm.GenerateDepartmentToken(departmentID, departmentName)
	if err != nil {
		return nil, err
	}

	record := &models.TokenRecord{
		DepartmentID:   payload.DepartmentID,
		DepartmentName: payload.DepartmentName,
		TokenID:        payload.TokenID,
		GeneratedAt:    payload.GeneratedAt,
		ExpiresAt:      payload.ExpiresAt,
		IsUsed:         false,
		Token:          token,
		CreatedAt:      time.UnixMilli(payload.GeneratedAt).UTC(),
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	key, err := s.repo.Create(storeCtx, record)
	if err != nil {
		s.logger.Error("failed to store token record",
			slog.String("token_id", payload.TokenID),
			slog.Any("error", err),
		)
		return nil, storeError("store token", err)
	}

	s.logger.Info("department token issued",
		slog.String("token_id", payload.TokenID),
		slog.String("store_key", key),
		slog.Time("expires_at", payload.ExpiresAtTime()),
	)
	s.auditLogger.LogTokenEvent(ctx, pkglogger.AuditEvent{
		EventType:      pkglogger.EventTokenIssued,
		TokenID:        payload.TokenID,
		DepartmentID:   payload.DepartmentID,
		DepartmentName: payload.DepartmentName,
		Success:        true,
	})

	return &models.TokenData{
		Token:    token,
		Payload:  payload,
		StoreKey: key,
	}, nil
}

// VerifyAndConsume grants access at most once per token. Negative outcomes are
// returned as values; a non-nil error means the store could not be consulted.
func (s *TokenService) VerifyAndConsume(ctx context.Context, signedToken string) (models.VerifyResult, error) {
	payload, reason := s.validate(signedToken)
	if reason != models.ReasonNone {
		s.logger.Debug("token failed validation",
			slog.String("token", pkglogger.RedactToken(signedToken)),
			slog.String("reason", string(reason)),
		)
		s.rejected(ctx, "", 0, reason)
		return models.RejectedVerify(reason), nil
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	record, err := s.repo.GetByTokenID(storeCtx, payload.TokenID)
	if err != nil {
		if errors.Is(err, models.ErrTokenNotFound) {
			s.rejected(ctx, payload.TokenID, payload.DepartmentID, models.ReasonNotFound)
			return models.RejectedVerify(models.ReasonNotFound), nil
		}
		return models.VerifyResult{}, storeError("load token", err)
	}

	if record.IsConsumed() {
		s.rejected(ctx, payload.TokenID, payload.DepartmentID, models.ReasonAlreadyUsed)
		return models.RejectedVerify(models.ReasonAlreadyUsed), nil
	}

	err = s.repo.MarkUsed(storeCtx, payload.TokenID, s.now().UTC())
	switch {
	case err == nil:
	case errors.Is(err, models.ErrTokenUsed):
		s.rejected(ctx, payload.TokenID, payload.DepartmentID, models.ReasonAlreadyUsed)
		return models.RejectedVerify(models.ReasonAlreadyUsed), nil
	case errors.Is(err, models.ErrTokenNotFound):
		// expired or cleaned up between read and write
		s.rejected(ctx, payload.TokenID, payload.DepartmentID, models.ReasonNotFound)
		return models.RejectedVerify(models.ReasonNotFound), nil
	default:
		return models.VerifyResult{}, storeError("consume token", err)
	}

	s.logger.Info("department token consumed",
		slog.String("token_id", payload.TokenID),
		slog.Int64("department_id", payload.DepartmentID),
	)
	s.auditLogger.LogTokenEvent(ctx, pkglogger.AuditEvent{
		EventType:      pkglogger.EventTokenConsumed,
		TokenID:        payload.TokenID,
		DepartmentID:   payload.DepartmentID,
		DepartmentName: payload.DepartmentName,
		Success:        true,
	})

	return models.VerifyResult{Valid: true, Payload: payload}, nil
}

// CheckStatus reports whether a token is valid and whether it has been used. It never mutates.
func (s *TokenService) CheckStatus(ctx context.Context, signedToken string) (models.StatusResult, error) {
	payload, reason := s.validate(signedToken)
	if reason != models.ReasonNone {
		return models.RejectedStatus(reason), nil
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	record, err := s.repo.GetByTokenID(storeCtx, payload.TokenID)
	if err != nil {
		if errors.Is(err, models.ErrTokenNotFound) {
			return models.RejectedStatus(models.ReasonNotFound), nil
		}
		return models.StatusResult{}, storeError("load token", err)
	}

	used := record.IsConsumed()
	payload.IsUsed = used

	return models.StatusResult{
		Valid:   true,
		IsUsed:  used,
		Payload: payload,
	}, nil
}

// Revoke consumes an unused token without granting access. It returns false
// when the token is unknown, expired or already consumed.
func (s *TokenService) Revoke(ctx context.Context, tokenID string) (bool, error) {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return false, nil
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	err := s.repo.Revoke(storeCtx, tokenID, s.now().UTC())
	switch {
	case err == nil:
	case errors.Is(err, models.ErrTokenNotFound), errors.Is(err, models.ErrTokenUsed):
		return false, nil
	default:
		return false, storeError("revoke token", err)
	}

	s.logger.Info("department token revoked", slog.String("token_id", tokenID))
	s.auditLogger.LogTokenEvent(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventTokenRevoked,
		TokenID:   tokenID,
		Success:   true,
	})

	return true, nil
}

// CleanupExpired deletes records whose expiresAt is before now and returns how many were removed
func (s *TokenService) CleanupExpired(ctx context.Context) (int, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	deleted, err := s.repo.DeleteExpired(storeCtx, s.now())
	if err != nil {
		return deleted, storeError("cleanup tokens", err)
	}

	if deleted > 0 {
		s.logger.Info("expired tokens cleaned up", slog.Int("deleted", deleted))
	}
	return deleted, nil
}

// ListActive returns all stored records with the signed token hidden
func (s *TokenService) ListActive(ctx context.Context) ([]models.ActiveToken, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	tokens, err := s.repo.List(storeCtx)
	if err != nil {
		return nil, storeError("list tokens", err)
	}

	for i := range tokens {
		tokens[i].Token = models.HiddenToken
	}
	return tokens, nil
}

// HealthCheck pings the token store
func (s *TokenService) HealthCheck(ctx context.Context) error {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.repo.Ping(storeCtx); err != nil {
		return storeError("ping store", err)
	}
	return nil
}

// validate checks signature and expiry without touching the store
func (s *TokenService) validate(signedToken string) (*models.TokenPayload, models.Reason) {
	payload, err := s.tm.ValidateToken(strings.TrimSpace(signedToken))
	if err != nil {
		if errors.Is(err, models.ErrTokenExpired) {
			return nil, models.ReasonExpired
		}
		return nil, models.ReasonInvalidFormat
	}
	return payload, models.ReasonNone
}

func (s *TokenService) rejected(ctx context.Context, tokenID string, departmentID int64, reason models.Reason) {
	s.auditLogger.LogTokenEvent(ctx, pkglogger.AuditEvent{
		EventType:     pkglogger.EventTokenRejected,
		TokenID:       tokenID,
		DepartmentID:  departmentID,
		Success:       false,
		FailureReason: string(reason),
	})
}

// storeError makes sure every infrastructure fault surfaces as ErrStoreUnavailable
func storeError(op string, err error) error {
	if errors.Is(err, models.ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", op, models.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
