package handlers

import (
	"net/http"

	"chain-gateway/internal/models"
	"chain-gateway/internal/services"

	"github.com/gin-gonic/gin"
)

// Router handles HTTP routing setup
type Router struct {
	walletHandler      *WalletHandler
	transactionHandler *TransactionHandler
	balanceHandler     *BalanceHandler
	healthHandler      *HealthHandler
}

// NewRouter creates a new Router instance with all handlers
func NewRouter(gateway services.GatewayServiceInterface, healthHandler *HealthHandler) *Router {
	return &Router{
		walletHandler:      NewWalletHandler(gateway),
		transactionHandler: NewTransactionHandler(gateway),
		balanceHandler:     NewBalanceHandler(gateway),
		healthHandler:      healthHandler,
	}
}

// SetupRoutes configures the gateway routes. Extra middleware, such as API
// key authentication, only applies to these routes.
func (r *Router) SetupRoutes(engine *gin.Engine, middleware ...gin.HandlerFunc) {
	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.APIResponse{Status: http.StatusOK, Message: "App is working"})
	})

	api := engine.Group("/", middleware...)
	{
		api.GET("/createWallet", r.walletHandler.MissingNetwork)
		api.GET("/createWallet/:network", r.walletHandler.CreateWallet)
		api.POST("/transaction", r.transactionHandler.SendTransaction)
		api.GET("/balance", r.balanceHandler.GetBalance)
	}
}

// SetupHealthRoutes configures health check routes
func (r *Router) SetupHealthRoutes(engine *gin.Engine) {
	health := engine.Group("/health")
	{
		health.GET("", r.healthHandler.GetHealth)                 // Process health
		health.GET("/live", r.healthHandler.GetLiveness)          // Liveness
		health.GET("/ready", r.healthHandler.GetReadiness)        // Readiness
		health.GET("/details", r.healthHandler.GetDetailedHealth) // Chains and database
		health.GET("/db", r.healthHandler.GetDatabaseHealth)      // Database health
	}

	engine.GET("/status", r.healthHandler.GetStatus)
}
