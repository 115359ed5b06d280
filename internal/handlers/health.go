package handlers

import (
	"net/http"

	"github.com/BradenHooton/deptaccess/internal/services"
	pkghttp "github.com/BradenHooton/deptaccess/pkg/http"
)

// HealthResponse reports process and store liveness
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// HealthHandler handles GET /health
func HealthHandler(service services.TokenOperations, backend string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := service.HealthCheck(r.Context()); err != nil {
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "unavailable",
				Store:  backend,
			})
			return
		}

		pkghttp.WriteJSON(w, http.StatusOK, HealthResponse{
			Status: "ok",
			Store:  backend,
		})
	}
}
