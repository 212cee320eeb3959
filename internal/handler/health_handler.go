package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/keyprice_api/internal/utils"
)

const version = "1.0.0"

var startTime = time.Now()

// Pinger reports connectivity of a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler provides health endpoint.
type HealthHandler struct {
	checks         map[string]Pinger
	catalogHealthy func() bool
}

// NewHealthHandler creates a new HealthHandler. catalogHealthy may be nil.
func NewHealthHandler(checks map[string]Pinger, catalogHealthy func() bool) *HealthHandler {
	return &HealthHandler{checks: checks, catalogHealthy: catalogHealthy}
}

// GetHealth responds with service and dependency status.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	deps := gin.H{}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			deps[name] = gin.H{"status": "disconnected"}
			status = "degraded"
			continue
		}
		deps[name] = gin.H{"status": "connected"}
	}
	if h.catalogHealthy != nil {
		catalog := "reachable"
		if !h.catalogHealthy() {
			catalog = "failing"
			status = "degraded"
		}
		deps["catalog"] = gin.H{"status": catalog}
	}

	utils.Success(c, 200, "Service is "+status, gin.H{
		"status":       status,
		"version":      version,
		"uptime":       int(time.Since(startTime).Seconds()),
		"dependencies": deps,
	})
}
