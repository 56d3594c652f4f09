package chains

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"chain-gateway/internal/config"
	"chain-gateway/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/ton/wallet"
	"resty.dev/v3"
)

const (
	tonDecimals     = 9
	tonAPIKeyHeader = "X-API-Key"
)

// TONClient derives V4R2 wallets locally and reads balances from a Toncenter v2 API
type TONClient struct {
	http    *resty.Client
	testnet bool
}

// NewTONClient creates a client for the configured Toncenter endpoint
func NewTONClient(cfg config.TONConfig) (*TONClient, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("TON: api url is empty")
	}
	return &TONClient{
		http:    newRESTClient(strings.TrimRight(cfg.APIURL, "/"), tonAPIKeyHeader, cfg.APIKey, cfg.RequestsPerSecond),
		testnet: cfg.Testnet,
	}, nil
}

func (c *TONClient) Network() models.Network {
	return models.NetworkTON
}

// CreateWallet generates an ed25519 keypair; the private key is the hex seed
func (c *TONClient) CreateWallet(ctx context.Context) (*models.WalletRecord, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	addr, err := wallet.AddressFromPubKey(pub, wallet.V4R2, wallet.DefaultSubwallet)
	if err != nil {
		return nil, fmt.Errorf("derive wallet address: %w", err)
	}
	// an undeployed wallet must be addressed non-bounceable
	addr.SetBounce(false)
	addr.SetTestnetOnly(c.testnet)

	return &models.WalletRecord{
		Address:    addr.String(),
		PrivateKey: hex.EncodeToString(priv.Seed()),
		PublicKey:  hex.EncodeToString(pub),
		Network:    models.NetworkTON,
	}, nil
}

type toncenterResponse[T any] struct {
	OK     bool   `json:"ok"`
	Result T      `json:"result"`
	Error  string `json:"error"`
	Code   int    `json:"code"`
}

func (c *TONClient) GetBalance(ctx context.Context, query *models.BalanceQuery) (*models.BalanceResult, error) {
	if query.IsToken() {
		return nil, ErrUnsupportedOperation
	}
	addr, err := parseTONAddress(query.Address)
	if err != nil {
		return nil, err
	}

	var res toncenterResponse[string]
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("address", addr.String()).
		SetResult(&res).
		SetError(&res).
		Get("/getAddressBalance")
	if err != nil {
		return nil, fmt.Errorf("getAddressBalance: %w", err)
	}
	if !res.OK {
		if res.Error != "" {
			return nil, fmt.Errorf("getAddressBalance: %s (code %d)", res.Error, res.Code)
		}
		if err := checkStatus(resp, "getAddressBalance"); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("getAddressBalance: request not ok")
	}

	raw, err := decimal.NewFromString(res.Result)
	if err != nil {
		return nil, fmt.Errorf("getAddressBalance: malformed balance %q: %w", res.Result, err)
	}
	return &models.BalanceResult{
		Network:   models.NetworkTON,
		Address:   strings.TrimSpace(query.Address),
		Balance:   raw.String(),
		Formatted: models.FormatUnits(raw, tonDecimals),
		Decimals:  tonDecimals,
		Symbol:    models.NetworkTON.NativeSymbol(),
	}, nil
}

func (c *TONClient) SendTransaction(ctx context.Context, req *models.TransactionRequest) (*models.TxResult, error) {
	return nil, ErrUnsupportedOperation
}

func (c *TONClient) Ping(ctx context.Context) error {
	var res toncenterResponse[map[string]interface{}]
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&res).
		Get("/getMasterchainInfo")
	if err != nil {
		return fmt.Errorf("getMasterchainInfo: %w", err)
	}
	if err := checkStatus(resp, "getMasterchainInfo"); err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("getMasterchainInfo: %s", res.Error)
	}
	return nil
}

// Close releases idle connections
func (c *TONClient) Close() {
	_ = c.http.Close()
}

// parseTONAddress accepts both user-friendly (base64) and raw (wc:hex) forms
func parseTONAddress(s string) (*address.Address, error) {
	s = strings.TrimSpace(s)
	if addr, err := address.ParseAddr(s); err == nil {
		return addr, nil
	}
	addr, err := address.ParseRawAddr(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a TON address", ErrInvalidAddress, s)
	}
	return addr, nil
}
