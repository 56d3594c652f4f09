package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chain-gateway/internal/chains"
	"chain-gateway/internal/config"
	"chain-gateway/internal/models"
	"chain-gateway/internal/services"
	"chain-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := logger.Initialize(&logger.Config{Level: "error", Environment: "test"}); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	validKeys map[string]*models.APIKey
	mu        sync.RWMutex
	callCount int64
}

// NewMockAuthService creates a new mock authentication service
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{
		validKeys: make(map[string]*models.APIKey),
	}
}

// AddValidKey adds an API key for testing
func (m *MockAuthService) AddValidKey(key string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validKeys[key] = &models.APIKey{
		Key:       key,
		Name:      fmt.Sprintf("Test Key %s", key),
		Active:    active,
		CreatedAt: time.Now(),
	}
}

// ValidateAPIKey validates an API key (mock implementation)
func (m *MockAuthService) ValidateAPIKey(ctx context.Context, key string) (*models.APIKey, error) {
	atomic.AddInt64(&m.callCount, 1)

	m.mu.RLock()
	defer m.mu.RUnlock()

	apiKey, exists := m.validKeys[key]
	if !exists {
		return nil, services.ErrInvalidAPIKey
	}
	if !apiKey.Active {
		return nil, services.ErrInactiveAPIKey
	}
	return apiKey, nil
}

// GetCallCount returns the number of validation calls made
func (m *MockAuthService) GetCallCount() int64 {
	return atomic.LoadInt64(&m.callCount)
}

// MockChainClient implements chains.Client for testing
type MockChainClient struct {
	network models.Network

	mu          sync.RWMutex
	balance     string
	delay       time.Duration
	balanceErr  error
	sendErr     error
	pingErr     error
	walletCount int64

	balanceCalls int64
	sendCalls    int64
}

// NewMockChainClient creates a mock client for network
func NewMockChainClient(network models.Network) *MockChainClient {
	return &MockChainClient{network: network, balance: "1500000000000000000"}
}

// SetDelay sets a delay for balance calls to simulate network latency
func (m *MockChainClient) SetDelay(delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = delay
}

// SetErrors configures the errors returned by balance and send calls
func (m *MockChainClient) SetErrors(balanceErr, sendErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balanceErr = balanceErr
	m.sendErr = sendErr
}

// SetPingError configures the reachability check result
func (m *MockChainClient) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

func (m *MockChainClient) Network() models.Network { return m.network }

func (m *MockChainClient) CreateWallet(ctx context.Context) (*models.WalletRecord, error) {
	n := atomic.AddInt64(&m.walletCount, 1)
	return &models.WalletRecord{
		Address:    fmt.Sprintf("%s-address-%d", strings.ToLower(string(m.network)), n),
		PrivateKey: fmt.Sprintf("%s-key-%d", strings.ToLower(string(m.network)), n),
		Network:    m.network,
	}, nil
}

func (m *MockChainClient) GetBalance(ctx context.Context, query *models.BalanceQuery) (*models.BalanceResult, error) {
	atomic.AddInt64(&m.balanceCalls, 1)

	m.mu.RLock()
	delay, balance, err := m.delay, m.balance, m.balanceErr
	m.mu.RUnlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}

	result := &models.BalanceResult{
		Network:   m.network,
		Address:   query.Address,
		Balance:   balance,
		Formatted: "1.5",
		Decimals:  18,
		Symbol:    m.network.NativeSymbol(),
	}
	if query.IsToken() {
		result.ContractAddress = query.ContractAddress
		result.Decimals = 6
		result.Symbol = "USDT"
	}
	return result, nil
}

func (m *MockChainClient) SendTransaction(ctx context.Context, req *models.TransactionRequest) (*models.TxResult, error) {
	atomic.AddInt64(&m.sendCalls, 1)

	m.mu.RLock()
	err := m.sendErr
	m.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	return &models.TxResult{
		Network: m.network,
		TxHash:  "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060",
		From:    "0x96216849c49358B10257cb55b28eA603c874b05E",
		To:      req.To,
		Amount:  req.Amount.String(),
		Status:  models.TxStatusSubmitted,
	}, nil
}

func (m *MockChainClient) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingErr
}

func (m *MockChainClient) BalanceCalls() int64 { return atomic.LoadInt64(&m.balanceCalls) }

func (m *MockChainClient) SendCalls() int64 { return atomic.LoadInt64(&m.sendCalls) }

// testEnv bundles a server built around mock chain clients
type testEnv struct {
	server  *Server
	handler http.Handler
	mocks   map[models.Network]*MockChainClient
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Environment: "test"},
		Chains: config.ChainsConfig{
			BTC:         config.BTCConfig{Network: "mainnet", AddressType: "p2pkh"},
			CallTimeout: 2 * time.Second,
		},
		Cache: config.CacheConfig{
			TTL:             time.Minute,
			CleanupInterval: time.Minute,
		},
		RateLimit: config.RateLimitConfig{
			Requests:        1000,
			Window:          time.Minute,
			CleanupInterval: time.Minute,
		},
	}
}

// setupTestServer wires EVM, TRON and TON mocks plus the real offline BTC client
func setupTestServer(t testing.TB, cfg *config.Config, auth services.AuthServiceInterface) *testEnv {
	t.Helper()

	btc, err := chains.NewBitcoinClient(cfg.Chains.BTC)
	require.NoError(t, err)

	mocks := map[models.Network]*MockChainClient{}
	clients := []chains.Client{btc}
	for _, network := range []models.Network{models.NetworkBSC, models.NetworkETH, models.NetworkTRON, models.NetworkTON} {
		mock := NewMockChainClient(network)
		mocks[network] = mock
		clients = append(clients, mock)
	}

	server := newServer(cfg, chains.NewRegistryFromClients(clients...), nil)
	server.authenticator = auth

	return &testEnv{server: server, handler: server.Handler(), mocks: mocks}
}

// envelope mirrors models.APIResponse with a decodable data field
type envelope struct {
	Status  int                    `json:"status"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Error   string                 `json:"error"`
}

func (e *testEnv) do(t testing.TB, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t testing.TB, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())

	// data and error never appear together
	_, hasData := raw["data"]
	_, hasError := raw["error"]
	assert.False(t, hasData && hasError, "envelope carries both data and error: %s", w.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, w.Code, env.Status, "envelope status must mirror the HTTP status")
	assert.NotEmpty(t, env.Message)
	return env
}

func TestRootEndpoint(t *testing.T) {
	env := setupTestServer(t, testConfig(), nil)

	w := env.do(t, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeEnvelope(t, w)
	assert.Equal(t, "App is working", body.Message)
}

func TestCreateWallet(t *testing.T) {
	env := setupTestServer(t, testConfig(), nil)

	for _, network := range []string{"bsc", "eth", "tron", "btc", "ton", "ETH", "Tron"} {
		t.Run(network, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/createWallet/"+network, nil, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			body := decodeEnvelope(t, w)
			assert.Empty(t, body.Error)
			assert.NotEmpty(t, body.Data["address"])
			assert.NotEmpty(t, body.Data["privateKey"])
			assert.Equal(t, strings.ToUpper(network), body.Data["network"])
		})
	}

	t.Run("btc wallets are real mainnet keys", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/createWallet/btc", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeEnvelope(t, w)
		assert.True(t, strings.HasPrefix(body.Data["address"].(string), "1"))
		assert.Len(t, body.Data["publicKey"], 66)
	})

	t.Run("every call generates a fresh wallet", func(t *testing.T) {
		first := decodeEnvelope(t, env.do(t, http.MethodGet, "/createWallet/btc", nil, nil))
		second := decodeEnvelope(t, env.do(t, http.MethodGet, "/createWallet/btc", nil, nil))
		assert.NotEqual(t, first.Data["address"], second.Data["address"])
	})
}

func TestCreateWalletErrors(t *testing.T) {
	env := setupTestServer(t, testConfig(), nil)

	t.Run("unsupported network", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/createWallet/xyz", nil, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "UNSUPPORTED_NETWORK", w.Header().Get("X-Error-Code"))

		body := decodeEnvelope(t, w)
		assert.Nil(t, body.Data)
		assert.Contains(t, body.Error, "xyz")
		assert.Contains(t, body.Error, "BSC, ETH, TRON, BTC, TON")
	})

	t.Run("missing network", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/createWallet", nil, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "MISSING_PARAMETER", w.Header().Get("X-Error-Code"))

		body := decodeEnvelope(t, w)
		assert.Contains(t, body.Error, "network")
	})
}

func TestGetBalance(t *testing.T) {
	env := setupTestServer(t, testConfig(), nil)
	const address = "0x96216849c49358B10257cb55b28eA603c874b05E"

	t.Run("native balance", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/balance?network=eth&address="+address, nil, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decodeEnvelope(t, w)
		assert.Equal(t, "ETH", body.Data["network"])
		assert.Equal(t, address, body.Data["address"])
		assert.Equal(t, "1500000000000000000", body.Data["balance"])
		assert.Equal(t, false, body.Data["cached"])
		assert.NotContains(t, body.Data, "contractAddress")
	})

	t.Run("second lookup is served from cache", func(t *testing.T) {
		before := env.mocks[models.NetworkETH].BalanceCalls()

		w := env.do(t, http.MethodGet, "/balance?network=ETH&address="+strings.ToLower(address), nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeEnvelope(t, w)
		assert.Equal(t, true, body.Data["cached"])
		assert.Equal(t, before, env.mocks[models.NetworkETH].BalanceCalls())
	})

	t.Run("token balance", func(t *testing.T) {
		const contract = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
		w := env.do(t, http.MethodGet, "/balance?network=bsc&address="+address+"&contractAddress="+contract, nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeEnvelope(t, w)
		assert.Equal(t, contract, body.Data["contractAddress"])
		assert.Equal(t, "USDT", body.Data["symbol"])
	})

	t.Run("missing address", func(t *testing.T) {
		before := env.mocks[models.NetworkTRON].BalanceCalls()

		w := env.do(t, http.MethodGet, "/balance?network=tron", nil, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "MISSING_PARAMETER", w.Header().Get("X-Error-Code"))

		body := decodeEnvelope(t, w)
		assert.Contains(t, body.Error, "address")
		assert.Equal(t, before, env.mocks[models.NetworkTRON].BalanceCalls())
	})

	t.Run("missing everything", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/balance", nil, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)

		body := decodeEnvelope(t, w)
		assert.Contains(t, body.Error, "network")
		assert.Contains(t, body.Error, "address")
	})

	t.Run("unsupported network", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/balance?network=doge&address=abc", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "UNSUPPORTED_NETWORK", w.Header().Get("X-Error-Code"))
	})

	t.Run("bitcoin balance is not implemented", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/balance?network=btc&address=1BoatSLRHtKNngkdXEeobR76b53LETtpyT", nil, nil)
		require.Equal(t, http.StatusNotImplemented, w.Code)
		assert.Equal(t, "UNSUPPORTED_OPERATION", w.Header().Get("X-Error-Code"))

		body := decodeEnvelope(t, w)
		assert.Contains(t, body.Error, "BTC")
	})

	t.Run("invalid address", func(t *testing.T) {
		env.mocks[models.NetworkTON].SetErrors(fmt.Errorf("%w: bad checksum", chains.ErrInvalidAddress), nil)
		defer env.mocks[models.NetworkTON].SetErrors(nil, nil)

		w := env.do(t, http.MethodGet, "/balance?network=ton&address=nonsense", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_PARAMETER", w.Header().Get("X-Error-Code"))
	})

	t.Run("chain failure", func(t *testing.T) {
		env.mocks[models.NetworkTRON].SetErrors(errors.New(`Post "https://api.trongrid.io/v1/SECRETPROJECTKEY/wallet/getaccount": dial tcp: connection refused`), nil)
		defer env.mocks[models.NetworkTRON].SetErrors(nil, nil)

		w := env.do(t, http.MethodGet, "/balance?network=tron&address=TXYZopYRdj2D9XRtbG411XZZ3kM5VkAeBf", nil, nil)
		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "CLIENT_ERROR", w.Header().Get("X-Error-Code"))

		body := decodeEnvelope(t, w)
		assert.Equal(t, "TRON balance lookup failed", body.Error)
		assert.NotContains(t, w.Body.String(), "SECRETPROJECTKEY")
		assert.NotContains(t, w.Body.String(), "trongrid")
	})
}

func TestSendTransaction(t *testing.T) {
	env := setupTestServer(t, testConfig(), nil)
	const to = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

	txBody := func(network string) []byte {
		b, _ := json.Marshal(map[string]interface{}{
			"network":    network,
			"to":         to,
			"amount":     "0.25",
			"privateKey": "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
		})
		return b
	}

	t.Run("submitted", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/transaction", txBody("eth"), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decodeEnvelope(t, w)
		assert.NotEmpty(t, body.Data["txHash"])
		assert.Equal(t, to, body.Data["to"])
		assert.Equal(t, "0.25", body.Data["amount"])
		assert.Equal(t, "submitted", body.Data["status"])
		assert.NotContains(t, w.Body.String(), "4c0883a69102937d")
	})

	t.Run("send evicts cached balances", func(t *testing.T) {
		mock := env.mocks[models.NetworkBSC]
		query := "/balance?network=bsc&address=" + to

		env.do(t, http.MethodGet, query, nil, nil)
		cached := decodeEnvelope(t, env.do(t, http.MethodGet, query, nil, nil))
		require.Equal(t, true, cached.Data["cached"])

		require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/transaction", txBody("bsc"), nil).Code)

		calls := mock.BalanceCalls()
		fresh := decodeEnvelope(t, env.do(t, http.MethodGet, query, nil, nil))
		assert.Equal(t, false, fresh.Data["cached"])
		assert.Equal(t, calls+1, mock.BalanceCalls())
	})

	t.Run("malformed json", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/transaction", []byte(`{"network": "eth",`), nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "MALFORMED_JSON", w.Header().Get("X-Error-Code"))
		decodeEnvelope(t, w)
	})

	t.Run("missing fields never reach the chain", func(t *testing.T) {
		before := env.mocks[models.NetworkETH].SendCalls()

		w := env.do(t, http.MethodPost, "/transaction", []byte(`{"network":"eth","amount":"1"}`), nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "MISSING_PARAMETER", w.Header().Get("X-Error-Code"))

		body := decodeEnvelope(t, w)
		assert.Contains(t, body.Error, "to")
		assert.Contains(t, body.Error, "privateKey")
		assert.Equal(t, before, env.mocks[models.NetworkETH].SendCalls())
	})

	t.Run("unsupported network", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/transaction", txBody("sol"), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "UNSUPPORTED_NETWORK", w.Header().Get("X-Error-Code"))
	})

	t.Run("bitcoin send is not implemented", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/transaction", txBody("btc"), nil)
		require.Equal(t, http.StatusNotImplemented, w.Code)
		assert.Equal(t, "UNSUPPORTED_OPERATION", w.Header().Get("X-Error-Code"))
	})

	t.Run("invalid amount", func(t *testing.T) {
		env.mocks[models.NetworkTRON].SetErrors(nil, fmt.Errorf("%w: must be positive", chains.ErrInvalidAmount))
		defer env.mocks[models.NetworkTRON].SetErrors(nil, nil)

		w := env.do(t, http.MethodPost, "/transaction", txBody("tron"), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_PARAMETER", w.Header().Get("X-Error-Code"))
	})

	t.Run("oversized numbers never reach the chain", func(t *testing.T) {
		before := env.mocks[models.NetworkETH].SendCalls()

		for _, field := range []string{"amount", "gasPrice"} {
			b, _ := json.Marshal(map[string]interface{}{
				"network":    "eth",
				"to":         to,
				"amount":     "0.25",
				"privateKey": "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
				field:        json.Number("1e60000000"),
			})
			start := time.Now()
			w := env.do(t, http.MethodPost, "/transaction", b, nil)
			assert.Less(t, time.Since(start), time.Second)
			require.Equal(t, http.StatusBadRequest, w.Code, field)
			assert.Equal(t, "INVALID_PARAMETER", w.Header().Get("X-Error-Code"))
			assert.Contains(t, decodeEnvelope(t, w).Error, field)
		}
		assert.Equal(t, before, env.mocks[models.NetworkETH].SendCalls())
	})
}

func TestRateLimiting(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Requests = 3
	cfg.RateLimit.Window = time.Hour
	env := setupTestServer(t, cfg, nil)

	for i := 0; i < 3; i++ {
		w := env.do(t, http.MethodGet, "/createWallet/eth", nil, nil)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	}

	w := env.do(t, http.MethodGet, "/createWallet/eth", nil, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", w.Header().Get("X-Error-Code"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	body := decodeEnvelope(t, w)
	assert.Contains(t, body.Error, "maximum 3 requests")
}

func TestAuthentication(t *testing.T) {
	auth := NewMockAuthService()
	auth.AddValidKey("valid-key", true)
	auth.AddValidKey("inactive-key", false)
	env := setupTestServer(t, testConfig(), auth)

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
	}{
		{"no key", nil, http.StatusUnauthorized},
		{"unknown key", map[string]string{"Authorization": "Bearer wrong"}, http.StatusUnauthorized},
		{"inactive key", map[string]string{"Authorization": "Bearer inactive-key"}, http.StatusUnauthorized},
		{"bearer key", map[string]string{"Authorization": "Bearer valid-key"}, http.StatusOK},
		{"raw key", map[string]string{"Authorization": "valid-key"}, http.StatusOK},
		{"x-api-key header", map[string]string{"X-API-Key": "valid-key"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/createWallet/ton", nil, tt.headers)
			assert.Equal(t, tt.wantStatus, w.Code)
			decodeEnvelope(t, w)
		})
	}

	t.Run("health routes stay public", func(t *testing.T) {
		before := auth.GetCallCount()
		assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil, nil).Code)
		assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/metrics", nil, nil).Code)
		assert.Equal(t, before, auth.GetCallCount())
	})
}

func TestHealthEndpoints(t *testing.T) {
	env := setupTestServer(t, testConfig(), nil)

	t.Run("health", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/health", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "test", body["environment"])
		assert.NotEmpty(t, body["timestamp"])
	})

	t.Run("ready when every chain answers", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/health/ready", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not ready when a chain is down", func(t *testing.T) {
		env.mocks[models.NetworkTON].SetPingError(errors.New(`Get "https://toncenter.com/api/v2?api_key=SECRETPROJECTKEY": timeout`))
		defer env.mocks[models.NetworkTON].SetPingError(nil)

		w := env.do(t, http.MethodGet, "/health/ready", nil, nil)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		unavailable := body["unavailable"].(map[string]interface{})
		assert.Equal(t, "unreachable", unavailable["TON"])
		assert.NotContains(t, unavailable, "ETH")
		assert.NotContains(t, w.Body.String(), "SECRETPROJECTKEY")
	})

	t.Run("details list every chain", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/health/details", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		svcs := body["services"].(map[string]interface{})
		for _, network := range models.SupportedNetworks() {
			assert.Contains(t, svcs, string(network))
		}
	})

	t.Run("database disabled", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/health/db", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "disabled")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestServer(t, testConfig(), nil)

	env.do(t, http.MethodGet, "/createWallet/eth", nil, nil)
	env.do(t, http.MethodGet, "/balance?network=btc&address=1BoatSLRHtKNngkdXEeobR76b53LETtpyT", nil, nil)

	w := env.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	exposition := w.Body.String()
	assert.Contains(t, exposition, `gateway_http_requests_total{method="GET",route="/createWallet/:network",status="200"} 1`)
	assert.Contains(t, exposition, `gateway_chain_calls_total{network="ETH",operation="create_wallet",result="success"} 1`)
	assert.Contains(t, exposition, `gateway_chain_calls_total{network="BTC",operation="balance",result="success"} 1`)
	assert.Contains(t, exposition, "go_goroutines")
}

func TestResponseHeaders(t *testing.T) {
	env := setupTestServer(t, testConfig(), nil)

	w := env.do(t, http.MethodGet, "/createWallet/tron", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
	assert.NotEmpty(t, w.Header().Get("X-Response-Time"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = env.do(t, http.MethodOptions, "/transaction", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSendTimeout(t *testing.T) {
	cfg := testConfig().Chains
	assert.Equal(t, 2*time.Second, sendTimeout(cfg))

	cfg.ETH.WaitForReceipt = true
	cfg.ETH.ReceiptTimeout = time.Minute
	cfg.BSC.ReceiptTimeout = 5 * time.Minute
	assert.Equal(t, time.Minute+2*time.Second, sendTimeout(cfg))
}
