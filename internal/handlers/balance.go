package handlers

import (
	"chain-gateway/internal/models"
	"chain-gateway/internal/services"
	"chain-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BalanceHandler handles balance-related HTTP requests
type BalanceHandler struct {
	gateway services.GatewayServiceInterface
}

// NewBalanceHandler creates a new BalanceHandler instance
func NewBalanceHandler(gateway services.GatewayServiceInterface) *BalanceHandler {
	return &BalanceHandler{
		gateway: gateway,
	}
}

// GetBalance handles GET /balance?network=&address=&contractAddress=
func (h *BalanceHandler) GetBalance(c *gin.Context) {
	log := logger.GetLogger().WithContext(c.Request.Context())

	var query models.BalanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		appErr := models.NewAppErrorWithDetails(
			models.ErrorCodeInvalidParameter,
			"Invalid query string",
			err.Error(),
		)
		models.HandleError(c, appErr, log)
		return
	}

	log.Info("Processing balance request",
		zap.String("network", query.Network),
		zap.String("address", query.Address),
		zap.Bool("token", query.IsToken()),
	)

	result, err := h.gateway.GetBalance(c.Request.Context(), &query)
	if err != nil {
		models.HandleError(c, err, log)
		return
	}

	log.Info("Balance request completed successfully",
		zap.String("network", string(result.Network)),
		zap.Bool("cached", result.Cached),
	)

	models.RespondSuccess(c, "Balance fetched successfully", result)
}
