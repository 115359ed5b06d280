package middleware

import (
	"log/slog"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/deptaccess/pkg/http"
	pkglogger "github.com/BradenHooton/deptaccess/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

// ClientIP resolves the caller address once per request and stores it for audit logging
func ClientIP(ipConfig *pkghttp.IPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := pkghttp.ExtractClientIP(r, ipConfig)
			next.ServeHTTP(w, r.WithContext(pkglogger.WithClientIP(r.Context(), ip)))
		})
	}
}

// SecureLogger returns a middleware for logging HTTP requests with sensitive data redaction.
// Request bodies are never logged since they carry signed tokens.
func SecureLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			statusCode := wrapped.Status()
			if statusCode == 0 {
				statusCode = http.StatusOK
			}

			path := r.URL.Path
			if pkglogger.SanitizeQueryString(r.URL.RawQuery) {
				path = path + "?[REDACTED]"
			} else if r.URL.RawQuery != "" {
				path = r.URL.Path + "?" + r.URL.RawQuery
			}

			clientIP := pkglogger.ClientIPFromContext(r.Context())
			if clientIP == "" {
				clientIP = r.RemoteAddr
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", path),
				slog.Int("status", statusCode),
				slog.Int("bytes", wrapped.BytesWritten()),
				slog.String("duration", duration.String()),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("client_ip", clientIP),
			}

			level := slog.LevelInfo
			switch {
			case statusCode >= http.StatusInternalServerError:
				level = slog.LevelError
			case statusCode >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "http_request", attrs...)
		})
	}
}
