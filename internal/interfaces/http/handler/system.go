package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports reachability of one dependency
type HealthCheck func() error

// SystemHandler handles health and liveness requests
type SystemHandler struct {
	BaseHandler
	checks map[string]HealthCheck
}

// NewSystemHandler creates a system handler with named dependency checks
func NewSystemHandler(checks map[string]HealthCheck) *SystemHandler {
	return &SystemHandler{checks: checks}
}

// Healthz handles GET /healthz
func (h *SystemHandler) Healthz(c *gin.Context) {
	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))

	for name, check := range h.checks {
		if err := check(); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	c.JSON(status, gin.H{
		"status":       healthWord(status),
		"dependencies": deps,
	})
}

func healthWord(status int) string {
	if status == http.StatusOK {
		return "healthy"
	}
	return "degraded"
}
