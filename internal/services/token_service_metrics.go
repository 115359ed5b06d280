package services

import (
	"context"
	"time"

	"github.com/BradenHooton/deptaccess/internal/metrics"
	"github.com/BradenHooton/deptaccess/internal/models"
)

// tokenServiceWithMetrics decorates TokenOperations with metrics instrumentation
type tokenServiceWithMetrics struct {
	next    TokenOperations
	metrics metrics.TokenMetrics
}

// NewTokenServiceWithMetrics wraps a TokenOperations with metrics recording.
// A nil m records nothing.
func NewTokenServiceWithMetrics(next TokenOperations, m metrics.TokenMetrics) TokenOperations {
	if m == nil {
		m = metrics.NewNoOpTokenMetrics()
	}
	return &tokenServiceWithMetrics{
		next:    next,
		metrics: m,
	}
}

func (t *tokenServiceWithMetrics) record(ctx context.Context, operation string, start time.Time, status string) {
	t.metrics.RecordOperation(ctx, operation, status)
	t.metrics.RecordDuration(ctx, operation, time.Since(start), status)
}

func statusOf(err error) string {
	if err != nil {
		return metrics.StatusError
	}
	return metrics.StatusSuccess
}

func (t *tokenServiceWithMetrics) Issue(ctx context.Context, departmentID int64, departmentName string) (*models.TokenData, error) {
	start := time.Now()
	data, err := t.next.Issue(ctx, departmentID, departmentName)

	t.record(ctx, "issue", start, statusOf(err))
	return data, err
}

func (t *tokenServiceWithMetrics) VerifyAndConsume(ctx context.Context, signedToken string) (models.VerifyResult, error) {
	start := time.Now()
	result, err := t.next.VerifyAndConsume(ctx, signedToken)

	status := statusOf(err)
	if err == nil && !result.Valid {
		status = metrics.StatusRejected
		t.metrics.RecordRejection(ctx, "verify_and_consume", string(result.Reason))
	}

	t.record(ctx, "verify_and_consume", start, status)
	return result, err
}

func (t *tokenServiceWithMetrics) CheckStatus(ctx context.Context, signedToken string) (models.StatusResult, error) {
	start := time.Now()
	result, err := t.next.CheckStatus(ctx, signedToken)

	status := statusOf(err)
	if err == nil && !result.Valid {
		status = metrics.StatusRejected
		t.metrics.RecordRejection(ctx, "check_status", string(result.Reason))
	}

	t.record(ctx, "check_status", start, status)
	return result, err
}

func (t *tokenServiceWithMetrics) Revoke(ctx context.Context, tokenID string) (bool, error) {
	start := time.Now()
	revoked, err := t.next.Revoke(ctx, tokenID)

	status := statusOf(err)
	if err == nil && !revoked {
		status = metrics.StatusRejected
	}

	t.record(ctx, "revoke", start, status)
	return revoked, err
}

func (t *tokenServiceWithMetrics) CleanupExpired(ctx context.Context) (int, error) {
	start := time.Now()
	deleted, err := t.next.CleanupExpired(ctx)

	if deleted > 0 {
		t.metrics.RecordCleanup(ctx, deleted)
	}

	t.record(ctx, "cleanup_expired", start, statusOf(err))
	return deleted, err
}

func (t *tokenServiceWithMetrics) ListActive(ctx context.Context) ([]models.ActiveToken, error) {
	start := time.Now()
	tokens, err := t.next.ListActive(ctx)

	t.record(ctx, "list_active", start, statusOf(err))
	return tokens, err
}

// HealthCheck is not instrumented; it runs on every probe
func (t *tokenServiceWithMetrics) HealthCheck(ctx context.Context) error {
	return t.next.HealthCheck(ctx)
}
