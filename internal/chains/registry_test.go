package chains

import (
	"context"
	"errors"
	"testing"

	"chain-gateway/internal/config"
	"chain-gateway/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	network models.Network
	pingErr error
	closed  bool
}

func (s *stubClient) Network() models.Network { return s.network }

func (s *stubClient) CreateWallet(ctx context.Context) (*models.WalletRecord, error) {
	return &models.WalletRecord{Network: s.network}, nil
}

func (s *stubClient) GetBalance(ctx context.Context, q *models.BalanceQuery) (*models.BalanceResult, error) {
	return nil, ErrUnsupportedOperation
}

func (s *stubClient) SendTransaction(ctx context.Context, r *models.TransactionRequest) (*models.TxResult, error) {
	return nil, ErrUnsupportedOperation
}

func (s *stubClient) Ping(ctx context.Context) error { return s.pingErr }

func (s *stubClient) Close() { s.closed = true }

func TestRegistryLookupAndOrder(t *testing.T) {
	registry := NewRegistryFromClients(
		&stubClient{network: models.NetworkTON},
		&stubClient{network: models.NetworkETH},
		&stubClient{network: models.NetworkBSC},
	)

	client, ok := registry.Lookup(models.NetworkETH)
	require.True(t, ok)
	assert.Equal(t, models.NetworkETH, client.Network())

	_, ok = registry.Lookup(models.NetworkTRON)
	assert.False(t, ok)

	assert.Equal(t, []models.Network{models.NetworkBSC, models.NetworkETH, models.NetworkTON}, registry.Networks())
}

func TestRegistryPingAll(t *testing.T) {
	down := errors.New("connection refused")
	registry := NewRegistryFromClients(
		&stubClient{network: models.NetworkETH},
		&stubClient{network: models.NetworkTRON, pingErr: down},
		&stubClient{network: models.NetworkBTC},
	)

	results := registry.PingAll(context.Background())
	require.Len(t, results, 3)
	assert.NoError(t, results[models.NetworkETH])
	assert.NoError(t, results[models.NetworkBTC])
	assert.ErrorIs(t, results[models.NetworkTRON], down)
	assert.Contains(t, results[models.NetworkTRON].Error(), "TRON")
}

func TestRegistryClose(t *testing.T) {
	eth := &stubClient{network: models.NetworkETH}
	registry := NewRegistryFromClients(eth)
	registry.Close()
	assert.True(t, eth.closed)
}

func TestNewRegistryFromConfig(t *testing.T) {
	registry, err := NewRegistry(config.ChainsConfig{
		ETH:  config.EVMConfig{RPCURL: "http://127.0.0.1:8545", ChainID: 1},
		BSC:  config.EVMConfig{RPCURL: "http://127.0.0.1:8546", ChainID: 56},
		Tron: config.TronConfig{APIURL: "http://127.0.0.1:8090"},
		BTC:  config.BTCConfig{Network: "mainnet", AddressType: "p2pkh"},
		TON:  config.TONConfig{APIURL: "http://127.0.0.1:8081/api/v2"},
	})
	require.NoError(t, err)
	defer registry.Close()

	assert.Equal(t, models.SupportedNetworks(), registry.Networks())
}
