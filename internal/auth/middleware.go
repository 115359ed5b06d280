package auth

import (
	"log/slog"
	"net/http"
	"strings"

	pkgauth "github.com/BradenHooton/deptaccess/pkg/auth"
	pkghttp "github.com/BradenHooton/deptaccess/pkg/http"
	"github.com/go-chi/chi/v5/middleware"
)

// AdminKeyMiddleware guards admin routes with a bearer key checked against a bcrypt hash.
// An empty hash disables the check; config refuses that combination in production.
func AdminKeyMiddleware(keyHash string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if keyHash == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "missing authorization header")
				return
			}

			// Parse Bearer key
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				pkghttp.WriteUnauthorized(w, "invalid authorization header format")
				return
			}

			if err := pkgauth.CompareAdminKey(keyHash, parts[1]); err != nil {
				logger.LogAttrs(r.Context(), slog.LevelWarn, "admin key rejected",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("path", r.URL.Path),
				)
				pkghttp.WriteUnauthorized(w, "invalid admin key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
