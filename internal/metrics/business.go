package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Operation outcome labels
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusError    = "error"
)

// TokenMetrics records token service operations
type TokenMetrics interface {
	// RecordOperation counts one operation, e.g. ("verify_and_consume", "rejected")
	RecordOperation(ctx context.Context, operation, status string)

	// RecordDuration observes the latency of one operation in seconds
	RecordDuration(ctx context.Context, operation string, duration time.Duration, status string)

	// RecordRejection counts a negative verification outcome by reason
	RecordRejection(ctx context.Context, operation, reason string)

	// RecordCleanup adds the number of records removed by a sweep
	RecordCleanup(ctx context.Context, deleted int)
}

type tokenMetrics struct {
	operationCounter metric.Int64Counter
	durationHisto    metric.Float64Histogram
	rejectionCounter metric.Int64Counter
	cleanupCounter   metric.Int64Counter
}

// NewTokenMetrics creates the token instruments, prefixing names with namespace
func NewTokenMetrics(meterProvider metric.MeterProvider, namespace string) (TokenMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_token_operations_total", namespace),
		metric.WithDescription("Total number of token operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_token_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of token operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	rejectionCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_token_rejections_total", namespace),
		metric.WithDescription("Token verifications that did not grant access, by reason"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rejection counter: %w", err)
	}

	cleanupCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_token_cleanup_deleted_total", namespace),
		metric.WithDescription("Expired token records removed by cleanup"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cleanup counter: %w", err)
	}

	return &tokenMetrics{
		operationCounter: operationCounter,
		durationHisto:    durationHisto,
		rejectionCounter: rejectionCounter,
		cleanupCounter:   cleanupCounter,
	}, nil
}

func (m *tokenMetrics) RecordOperation(ctx context.Context, operation, status string) {
	m.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func (m *tokenMetrics) RecordDuration(ctx context.Context, operation string, duration time.Duration, status string) {
	m.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func (m *tokenMetrics) RecordRejection(ctx context.Context, operation, reason string) {
	m.rejectionCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("reason", reason),
		),
	)
}

func (m *tokenMetrics) RecordCleanup(ctx context.Context, deleted int) {
	m.cleanupCounter.Add(ctx, int64(deleted))
}

// NoOpTokenMetrics is used when metrics are disabled
type NoOpTokenMetrics struct{}

func NewNoOpTokenMetrics() TokenMetrics {
	return &NoOpTokenMetrics{}
}

func (n *NoOpTokenMetrics) RecordOperation(ctx context.Context, operation, status string) {}

func (n *NoOpTokenMetrics) RecordDuration(ctx context.Context, operation string, duration time.Duration, status string) {
}

func (n *NoOpTokenMetrics) RecordRejection(ctx context.Context, operation, reason string) {}

func (n *NoOpTokenMetrics) RecordCleanup(ctx context.Context, deleted int) {}
