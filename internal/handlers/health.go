package handlers

import (
	"net/http"
	"time"

	"chain-gateway/internal/services"
	"chain-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	environment     string
	gateway         services.GatewayServiceInterface
	dbHealthChecker *services.DatabaseHealthChecker
}

// NewHealthHandler creates a new health handler. dbHealthChecker may be nil
// when API key authentication, and with it MongoDB, is disabled.
func NewHealthHandler(environment string, gateway services.GatewayServiceInterface, dbHealthChecker *services.DatabaseHealthChecker) *HealthHandler {
	return &HealthHandler{
		environment:     environment,
		gateway:         gateway,
		dbHealthChecker: dbHealthChecker,
	}
}

// HealthResponse represents the detailed health response
type HealthResponse struct {
	Status    services.HealthStatus            `json:"status"`
	Timestamp time.Time                        `json:"timestamp"`
	Services  map[string]*services.HealthCheck `json:"services"`
	Version   string                           `json:"version,omitempty"`
}

// GetHealth is the plain process health check
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"timestamp":   time.Now().UTC(),
		"environment": h.environment,
	})
}

// GetDetailedHealth reports every chain client and, when enabled, MongoDB
func (h *HealthHandler) GetDetailedHealth(c *gin.Context) {
	ctx := c.Request.Context()
	serviceChecks := services.CheckChainHealth(ctx, h.gateway)
	if h.dbHealthChecker != nil {
		for name, check := range h.dbHealthChecker.GetDetailedHealth(ctx) {
			serviceChecks["mongodb_"+name] = check
		}
	}

	overallStatus := services.HealthStatusHealthy
	for _, check := range serviceChecks {
		if check.Status == services.HealthStatusUnhealthy {
			overallStatus = services.HealthStatusUnhealthy
			break
		} else if check.Status == services.HealthStatusDegraded && overallStatus == services.HealthStatusHealthy {
			overallStatus = services.HealthStatusDegraded
		}
	}

	statusCode := http.StatusOK
	if overallStatus == services.HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now().UTC(),
		Services:  serviceChecks,
		Version:   "1.0.0",
	})
}

// GetLiveness returns a simple liveness check
func (h *HealthHandler) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
	})
}

// GetReadiness is ready only when every chain client and the database answer
func (h *HealthHandler) GetReadiness(c *gin.Context) {
	ctx := c.Request.Context()

	if h.dbHealthChecker != nil {
		if dbHealth := h.dbHealthChecker.CheckHealth(ctx); dbHealth.Status == services.HealthStatusUnhealthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "not_ready",
				"message":   "database not available",
				"timestamp": time.Now().UTC(),
			})
			return
		}
	}

	unavailable := map[string]string{}
	for network, err := range h.gateway.CheckChains(ctx) {
		if err != nil {
			// node errors can carry RPC URLs with API keys
			logger.GetLogger().WithContext(ctx).Warn("Chain not ready",
				zap.String("network", string(network)), zap.Error(err))
			unavailable[string(network)] = "unreachable"
		}
	}
	if len(unavailable) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":      "not_ready",
			"message":     "chain clients not available",
			"unavailable": unavailable,
			"timestamp":   time.Now().UTC(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
	})
}

// GetDatabaseHealth returns detailed database health information
func (h *HealthHandler) GetDatabaseHealth(c *gin.Context) {
	if h.dbHealthChecker == nil {
		c.JSON(http.StatusOK, gin.H{
			"service": "mongodb",
			"status":  "disabled",
			"message": "API key authentication is disabled",
		})
		return
	}

	healthCheck := h.dbHealthChecker.CheckHealth(c.Request.Context())

	statusCode := http.StatusOK
	if healthCheck.Status == services.HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, healthCheck)
}

// GetStatus returns runtime statistics and chain reachability
func (h *HealthHandler) GetStatus(c *gin.Context) {
	chainStatus := map[string]string{}
	for network, err := range h.gateway.CheckChains(c.Request.Context()) {
		if err != nil {
			chainStatus[string(network)] = "unreachable"
		} else {
			chainStatus[string(network)] = "reachable"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"environment": h.environment,
		"timestamp":   time.Now().UTC(),
		"performance": h.gateway.GetPerformanceStats(),
		"chains":      chainStatus,
	})
}
