package handlers

import (
	"chain-gateway/internal/models"
	"chain-gateway/internal/services"
	"chain-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WalletHandler handles wallet creation
type WalletHandler struct {
	gateway services.GatewayServiceInterface
}

// NewWalletHandler creates a new WalletHandler instance
func NewWalletHandler(gateway services.GatewayServiceInterface) *WalletHandler {
	return &WalletHandler{gateway: gateway}
}

// CreateWallet handles GET /createWallet/:network
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	log := logger.GetLogger().WithContext(c.Request.Context())
	network := c.Param("network")

	log.Info("Processing wallet creation request", zap.String("network", network))

	wallet, err := h.gateway.CreateWallet(c.Request.Context(), network)
	if err != nil {
		models.HandleError(c, err, log)
		return
	}

	// the response carries the private key; never log it
	models.RespondSuccess(c, "Wallet created successfully", wallet)
}

// MissingNetwork handles GET /createWallet without a network segment
func (h *WalletHandler) MissingNetwork(c *gin.Context) {
	log := logger.GetLogger().WithContext(c.Request.Context())
	models.HandleError(c, models.NewMissingParameterError("network"), log)
}
