package logger

import (
	"context"
	"log/slog"
	"time"
)

// Token lifecycle event types
const (
	EventTokenIssued   = "token_issued"
	EventTokenConsumed = "token_consumed"
	EventTokenRejected = "token_rejected"
	EventTokenRevoked  = "token_revoked"
	EventTokenCleanup  = "token_cleanup"
)

// AuditEvent represents a token lifecycle audit event
type AuditEvent struct {
	EventType      string
	TokenID        string
	DepartmentID   int64
	DepartmentName string
	IPAddress      string
	Success        bool
	FailureReason  string
	Metadata       map[string]string
}

type contextKey string

const clientIPKey contextKey = "client_ip"

// WithClientIP attaches the caller's address to ctx for audit events
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFromContext returns the address set by WithClientIP, or ""
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogTokenEvent logs issuance, consumption, rejection and revocation of tokens
func (al *AuditLogger) LogTokenEvent(ctx context.Context, event AuditEvent) {
	if event.IPAddress == "" {
		event.IPAddress = ClientIPFromContext(ctx)
	}

	attrs := []slog.Attr{
		slog.String("audit_type", "dept_token"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.TokenID != "" {
		attrs = append(attrs, slog.String("token_id", event.TokenID))
	}
	if event.DepartmentID != 0 {
		attrs = append(attrs, slog.Int64("department_id", event.DepartmentID))
	}
	if event.DepartmentName != "" {
		attrs = append(attrs, slog.String("department_name", event.DepartmentName))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	if event.Success {
		al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(ctx, slog.LevelWarn, "audit", attrs...)
	}
}

// LogCleanup logs a sweep of expired records
func (al *AuditLogger) LogCleanup(ctx context.Context, source string, deleted int) {
	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.String("audit_type", "dept_token"),
		slog.String("event_type", EventTokenCleanup),
		slog.String("source", source),
		slog.Int("deleted", deleted),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}
