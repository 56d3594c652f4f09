package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"chain-gateway/internal/models"
	"chain-gateway/internal/services"
	"chain-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TransactionHandler handles transaction submission
type TransactionHandler struct {
	gateway services.GatewayServiceInterface
}

// NewTransactionHandler creates a new TransactionHandler instance
func NewTransactionHandler(gateway services.GatewayServiceInterface) *TransactionHandler {
	return &TransactionHandler{gateway: gateway}
}

// SendTransaction handles POST /transaction
func (h *TransactionHandler) SendTransaction(c *gin.Context) {
	log := logger.GetLogger().WithContext(c.Request.Context())

	var req models.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid JSON in request",
			zap.Error(err),
			zap.String("content_type", c.GetHeader("Content-Type")),
		)

		appErr := models.NewAppErrorWithDetails(
			models.ErrorCodeMalformedJSON,
			"Invalid JSON format",
			err.Error(),
		)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			appErr = models.NewAppErrorWithDetails(
				models.ErrorCodeRequestTooLarge,
				"Request body too large",
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			)
		}
		models.HandleError(c, appErr, log)
		return
	}

	log.Info("Processing transaction request",
		zap.String("network", req.Network),
		zap.String("to", req.To),
	)

	result, err := h.gateway.SendTransaction(c.Request.Context(), &req)
	if err != nil {
		models.HandleError(c, err, log)
		return
	}

	models.RespondSuccess(c, "Transaction submitted successfully", result)
}
