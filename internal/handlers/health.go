package handlers

import (
	"net/http"

	"crm-connect/internal/common/logging"
)

// HealthCheck reports store and Redis reachability
// @Summary Health check
// @Description Returns 503 when the credential store is unreachable. Redis problems are reported but do not fail the check.
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": h.now().UTC(),
	}
	status := http.StatusOK

	if err := h.store.Health(); err != nil {
		h.logger.Error("Credential store unhealthy", err)
		health["status"] = "unhealthy"
		health["storage_status"] = "unhealthy"
		status = http.StatusServiceUnavailable
	} else {
		health["storage_status"] = "healthy"
	}

	if h.redis != nil {
		if err := h.redis.Health(); err != nil {
			h.logger.Warn("Redis unhealthy", logging.Err(err))
			health["redis_status"] = "unhealthy"
			if status == http.StatusOK {
				health["status"] = "degraded"
			}
		} else {
			health["redis_status"] = "healthy"
		}
	}

	if h.providers != nil {
		names := make([]string, 0, 2)
		for _, p := range h.providers.Names() {
			names = append(names, string(p))
		}
		health["providers"] = names
	}

	if h.breakers != nil {
		health["circuit_breakers"] = h.breakers.AllStats()
	}

	sendJSON(w, status, health)
}
