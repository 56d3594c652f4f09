package services

import (
	"context"

	"chain-gateway/internal/models"
)

// AuthServiceInterface defines the interface for authentication services
type AuthServiceInterface interface {
	ValidateAPIKey(ctx context.Context, key string) (*models.APIKey, error)
}

// GatewayServiceInterface is what the HTTP handlers need from the gateway
type GatewayServiceInterface interface {
	CreateWallet(ctx context.Context, network string) (*models.WalletRecord, error)
	SendTransaction(ctx context.Context, req *models.TransactionRequest) (*models.TxResult, error)
	GetBalance(ctx context.Context, query *models.BalanceQuery) (*models.BalanceResult, error)
	CheckChains(ctx context.Context) map[models.Network]error
	GetPerformanceStats() map[string]interface{}
}
