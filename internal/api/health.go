package api

import (
	"net/http"
	"time"

	"github.com/heartbook/heartbook/internal/api/respond"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	isHealthy func() bool
}

// NewHealthHandler reports the result of isHealthy. A nil func always
// reports healthy.
func NewHealthHandler(isHealthy func() bool) *HealthHandler {
	if isHealthy == nil {
		isHealthy = func() bool { return true }
	}
	return &HealthHandler{isHealthy: isHealthy}
}

// CheckHealth handles GET /api/health
// Responds 503 while a storage probe is failing.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if !h.isHealthy() {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	respond.WriteJSON(w, code, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
