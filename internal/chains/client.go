// Package chains holds one client per supported network. Clients are built
// once at startup and are read-only afterwards; signing keys are only ever
// passed in per call.
package chains

import (
	"context"
	"errors"

	"chain-gateway/internal/models"
)

var (
	// ErrUnsupportedOperation is returned for operations a network does not implement yet
	ErrUnsupportedOperation = errors.New("operation not supported")
	ErrInvalidAddress       = errors.New("invalid address")
	ErrInvalidPrivateKey    = errors.New("invalid private key")
	ErrInvalidAmount        = errors.New("invalid amount")
)

// Client is the capability set every network exposes to the gateway
type Client interface {
	Network() models.Network
	CreateWallet(ctx context.Context) (*models.WalletRecord, error)
	GetBalance(ctx context.Context, query *models.BalanceQuery) (*models.BalanceResult, error)
	SendTransaction(ctx context.Context, req *models.TransactionRequest) (*models.TxResult, error)
	Ping(ctx context.Context) error
}
