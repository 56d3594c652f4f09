package chains

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"

	"chain-gateway/internal/config"
	"chain-gateway/internal/models"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"resty.dev/v3"
)

const (
	tronAddressPrefix = byte(0x41)
	tronDecimals      = 6
	tronAPIKeyHeader  = "TRON-PRO-API-KEY"
)

// maxTronSun is the largest amount the node accepts in a transfer
var maxTronSun = big.NewInt(math.MaxInt64)

// TronClient talks to a TronGrid compatible full node HTTP API.
// Transactions are built by the node and signed locally.
type TronClient struct {
	http *resty.Client
}

// NewTronClient creates a client for the configured TronGrid endpoint
func NewTronClient(cfg config.TronConfig) (*TronClient, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("TRON: api url is empty")
	}
	return &TronClient{http: newRESTClient(strings.TrimRight(cfg.APIURL, "/"), tronAPIKeyHeader, cfg.APIKey, cfg.RequestsPerSecond)}, nil
}

func (c *TronClient) Network() models.Network {
	return models.NetworkTRON
}

func (c *TronClient) CreateWallet(ctx context.Context) (*models.WalletRecord, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &models.WalletRecord{
		Address:    tronAddressFromKey(&key.PublicKey),
		PrivateKey: hex.EncodeToString(crypto.FromECDSA(key)),
		Network:    models.NetworkTRON,
	}, nil
}

type tronAccount struct {
	Address string `json:"address"`
	Balance int64  `json:"balance"`
}

type tronConstantResult struct {
	Result struct {
		Result  bool   `json:"result"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"result"`
	ConstantResult []string `json:"constant_result"`
}

type tronTransaction struct {
	Visible    bool            `json:"visible"`
	TxID       string          `json:"txID"`
	RawData    json.RawMessage `json:"raw_data"`
	RawDataHex string          `json:"raw_data_hex"`
	Signature  []string        `json:"signature,omitempty"`
	Error      string          `json:"Error,omitempty"`
}

type tronBroadcastResult struct {
	Result  bool   `json:"result"`
	TxID    string `json:"txid"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *TronClient) GetBalance(ctx context.Context, query *models.BalanceQuery) (*models.BalanceResult, error) {
	holder := strings.TrimSpace(query.Address)
	if _, err := decodeTronAddress(holder); err != nil {
		return nil, err
	}
	if query.IsToken() {
		return c.trc20Balance(ctx, holder, strings.TrimSpace(query.ContractAddress))
	}

	var account tronAccount
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{"address": holder, "visible": true}).
		SetResult(&account).
		Post("/wallet/getaccount")
	if err != nil {
		return nil, fmt.Errorf("getaccount: %w", err)
	}
	if err := checkStatus(resp, "getaccount"); err != nil {
		return nil, err
	}

	// an account that never received TRX comes back as {}
	raw := decimal.NewFromInt(account.Balance)
	return &models.BalanceResult{
		Network:   models.NetworkTRON,
		Address:   holder,
		Balance:   raw.String(),
		Formatted: models.FormatUnits(raw, tronDecimals),
		Decimals:  tronDecimals,
		Symbol:    models.NetworkTRON.NativeSymbol(),
	}, nil
}

func (c *TronClient) trc20Balance(ctx context.Context, holder, contract string) (*models.BalanceResult, error) {
	holderBytes, err := decodeTronAddress(holder)
	if err != nil {
		return nil, err
	}
	if _, err := decodeTronAddress(contract); err != nil {
		return nil, err
	}

	// ABI encoding drops the 0x41 prefix and left-pads the 20 byte account
	param := hex.EncodeToString(common.LeftPadBytes(holderBytes, 32))
	out, err := c.triggerConstant(ctx, holder, contract, "balanceOf(address)", param)
	if err != nil {
		return nil, err
	}
	raw := decimal.NewFromBigInt(new(big.Int).SetBytes(out), 0)

	result := &models.BalanceResult{
		Network:         models.NetworkTRON,
		Address:         holder,
		ContractAddress: contract,
		Balance:         raw.String(),
	}
	if out, err := c.triggerConstant(ctx, holder, contract, "decimals()", ""); err == nil && len(out) > 0 {
		result.Decimals = int32(new(big.Int).SetBytes(out).Int64())
		result.Formatted = models.FormatUnits(raw, result.Decimals)
	}
	return result, nil
}

func (c *TronClient) triggerConstant(ctx context.Context, owner, contract, selector, param string) ([]byte, error) {
	var res tronConstantResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"owner_address":     owner,
			"contract_address":  contract,
			"function_selector": selector,
			"parameter":         param,
			"visible":           true,
		}).
		SetResult(&res).
		Post("/wallet/triggerconstantcontract")
	if err != nil {
		return nil, fmt.Errorf("triggerconstantcontract %s: %w", selector, err)
	}
	if err := checkStatus(resp, "triggerconstantcontract"); err != nil {
		return nil, err
	}
	if !res.Result.Result {
		return nil, fmt.Errorf("triggerconstantcontract %s: %s %s", selector, res.Result.Code, decodeTronMessage(res.Result.Message))
	}
	if len(res.ConstantResult) == 0 || res.ConstantResult[0] == "" {
		return nil, fmt.Errorf("%w: contract %s returned no data for %s", ErrInvalidAddress, contract, selector)
	}
	out, err := hex.DecodeString(res.ConstantResult[0])
	if err != nil {
		return nil, fmt.Errorf("decode %s result: %w", selector, err)
	}
	return out, nil
}

// SendTransaction asks the node to build a TRX transfer, checks the returned
// payload hashes to the advertised txID, signs it and broadcasts it.
func (c *TronClient) SendTransaction(ctx context.Context, req *models.TransactionRequest) (*models.TxResult, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(req.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	to := strings.TrimSpace(req.To)
	if _, err := decodeTronAddress(to); err != nil {
		return nil, err
	}
	sun, err := positiveBaseUnits(req.Amount, tronDecimals, maxTronSun)
	if err != nil {
		return nil, err
	}
	from := tronAddressFromKey(&key.PublicKey)

	var tx tronTransaction
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"owner_address": from,
			"to_address":    to,
			"amount":        sun.Int64(),
			"visible":       true,
		}).
		SetResult(&tx).
		Post("/wallet/createtransaction")
	if err != nil {
		return nil, fmt.Errorf("createtransaction: %w", err)
	}
	if err := checkStatus(resp, "createtransaction"); err != nil {
		return nil, err
	}
	if tx.Error != "" {
		return nil, fmt.Errorf("createtransaction: %s", tx.Error)
	}

	if err := signTronTransaction(&tx, key); err != nil {
		return nil, err
	}

	var broadcast tronBroadcastResult
	resp, err = c.http.R().
		SetContext(ctx).
		SetBody(&tx).
		SetResult(&broadcast).
		Post("/wallet/broadcasttransaction")
	if err != nil {
		return nil, fmt.Errorf("broadcasttransaction: %w", err)
	}
	if err := checkStatus(resp, "broadcasttransaction"); err != nil {
		return nil, err
	}
	if !broadcast.Result {
		return nil, fmt.Errorf("broadcasttransaction: %s %s", broadcast.Code, decodeTronMessage(broadcast.Message))
	}

	return &models.TxResult{
		Network: models.NetworkTRON,
		TxHash:  tx.TxID,
		From:    from,
		To:      to,
		Amount:  req.Amount.String(),
		Status:  models.TxStatusSubmitted,
	}, nil
}

func (c *TronClient) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Post("/wallet/getnowblock")
	if err != nil {
		return fmt.Errorf("getnowblock: %w", err)
	}
	return checkStatus(resp, "getnowblock")
}

// Close releases idle connections
func (c *TronClient) Close() {
	_ = c.http.Close()
}

// signTronTransaction verifies txID == sha256(raw_data) and appends a
// recoverable secp256k1 signature over it.
func signTronTransaction(tx *tronTransaction, key *ecdsa.PrivateKey) error {
	raw, err := hex.DecodeString(tx.RawDataHex)
	if err != nil || len(raw) == 0 {
		return fmt.Errorf("createtransaction: missing raw_data_hex")
	}
	txID, err := hex.DecodeString(tx.TxID)
	if err != nil {
		return fmt.Errorf("createtransaction: malformed txID: %w", err)
	}
	digest := sha256.Sum256(raw)
	if !bytes.Equal(digest[:], txID) {
		return fmt.Errorf("createtransaction: txID does not match raw_data_hex")
	}

	sig, err := crypto.Sign(digest[:], key)
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	tx.Signature = append(tx.Signature, hex.EncodeToString(sig))
	return nil
}

func tronAddressFromKey(pub *ecdsa.PublicKey) string {
	return base58.CheckEncode(crypto.PubkeyToAddress(*pub).Bytes(), tronAddressPrefix)
}

// decodeTronAddress validates a base58check T-address and returns its 20 byte account id
func decodeTronAddress(addr string) ([]byte, error) {
	payload, version, err := base58.CheckDecode(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, addr, err)
	}
	if version != tronAddressPrefix || len(payload) != common.AddressLength {
		return nil, fmt.Errorf("%w: %q is not a TRON address", ErrInvalidAddress, addr)
	}
	return payload, nil
}

// TronGrid hex-encodes most error messages
func decodeTronMessage(msg string) string {
	if b, err := hex.DecodeString(msg); err == nil {
		return string(b)
	}
	return msg
}
