package chains

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"chain-gateway/internal/config"
	"chain-gateway/internal/models"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

const (
	evmDecimals      = 18
	defaultGasLimit  = uint64(21000)
	erc20ABIFragment = `[
	{"constant":true,"inputs":[{"name":"who","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`
)

var erc20ABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIFragment))
	if err != nil {
		panic(fmt.Sprintf("parse erc20 abi: %v", err))
	}
	return parsed
}()

// EVMBackend is the subset of ethclient.Client the EVM client needs
type EVMBackend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	ChainID(ctx context.Context) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// EVMOptions tunes transaction submission on an EVM network
type EVMOptions struct {
	// ChainID is used for signing. Zero means ask the node.
	ChainID        int64
	WaitForReceipt bool
	ReceiptTimeout time.Duration
	PollInterval   time.Duration
}

// EVMClient serves ETH and BSC over JSON-RPC
type EVMClient struct {
	network models.Network
	backend EVMBackend
	opts    EVMOptions
	closer  func()
}

// NewEVMClient dials the configured RPC endpoint
func NewEVMClient(network models.Network, cfg config.EVMConfig) (*EVMClient, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("%s: rpc url is empty", network)
	}
	rpc, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%s: dial rpc: %w", network, err)
	}

	client := NewEVMClientWithBackend(network, rpc, EVMOptions{
		ChainID:        cfg.ChainID,
		WaitForReceipt: cfg.WaitForReceipt,
		ReceiptTimeout: cfg.ReceiptTimeout,
		PollInterval:   cfg.PollInterval,
	})
	client.closer = rpc.Close
	return client, nil
}

// NewEVMClientWithBackend wraps an existing backend
func NewEVMClientWithBackend(network models.Network, backend EVMBackend, opts EVMOptions) *EVMClient {
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	return &EVMClient{network: network, backend: backend, opts: opts}
}

func (c *EVMClient) Network() models.Network {
	return c.network
}

// CreateWallet generates a fresh secp256k1 account
func (c *EVMClient) CreateWallet(ctx context.Context) (*models.WalletRecord, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &models.WalletRecord{
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
		Network:    c.network,
	}, nil
}

func (c *EVMClient) GetBalance(ctx context.Context, query *models.BalanceQuery) (*models.BalanceResult, error) {
	holder, err := parseEVMAddress(query.Address)
	if err != nil {
		return nil, err
	}
	if query.IsToken() {
		return c.tokenBalance(ctx, holder, query.ContractAddress)
	}

	wei, err := c.backend.BalanceAt(ctx, holder, nil)
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", holder.Hex(), err)
	}
	raw := decimal.NewFromBigInt(wei, 0)
	return &models.BalanceResult{
		Network:   c.network,
		Address:   holder.Hex(),
		Balance:   raw.String(),
		Formatted: models.FormatUnits(raw, evmDecimals),
		Decimals:  evmDecimals,
		Symbol:    c.network.NativeSymbol(),
	}, nil
}

func (c *EVMClient) tokenBalance(ctx context.Context, holder common.Address, contractHex string) (*models.BalanceResult, error) {
	contract, err := parseEVMAddress(contractHex)
	if err != nil {
		return nil, err
	}

	out, err := c.callERC20(ctx, contract, "balanceOf", holder)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no contract deployed at %s", ErrInvalidAddress, contract.Hex())
	}
	values, err := erc20ABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("decode balanceOf: %w", err)
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("decode balanceOf: unexpected type %T", values[0])
	}

	raw := decimal.NewFromBigInt(amount, 0)
	result := &models.BalanceResult{
		Network:         c.network,
		Address:         holder.Hex(),
		ContractAddress: contract.Hex(),
		Balance:         raw.String(),
	}

	// decimals and symbol are optional in ERC20
	if out, err := c.callERC20(ctx, contract, "decimals"); err == nil {
		if values, err := erc20ABI.Unpack("decimals", out); err == nil {
			if d, ok := values[0].(uint8); ok {
				result.Decimals = int32(d)
				result.Formatted = models.FormatUnits(raw, result.Decimals)
			}
		}
	}
	if out, err := c.callERC20(ctx, contract, "symbol"); err == nil {
		if values, err := erc20ABI.Unpack("symbol", out); err == nil {
			if s, ok := values[0].(string); ok {
				result.Symbol = s
			}
		}
	}
	return result, nil
}

func (c *EVMClient) callERC20(ctx context.Context, contract common.Address, method string, args ...interface{}) ([]byte, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, contract.Hex(), err)
	}
	return out, nil
}

// SendTransaction signs a legacy value transfer with the caller's key and broadcasts it
func (c *EVMClient) SendTransaction(ctx context.Context, req *models.TransactionRequest) (*models.TxResult, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(req.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	to, err := parseEVMAddress(req.To)
	if err != nil {
		return nil, err
	}
	value, err := positiveBaseUnits(req.Amount, evmDecimals, models.MaxUint256)
	if err != nil {
		return nil, err
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}

	gasPrice, err := c.gasPrice(ctx, req.GasPrice)
	if err != nil {
		return nil, err
	}

	gasLimit := defaultGasLimit
	if req.GasLimit != nil && *req.GasLimit > 0 {
		gasLimit = *req.GasLimit
	} else if estimated, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:     from,
		To:       &to,
		GasPrice: gasPrice,
		Value:    value,
	}); err == nil && estimated > 0 {
		gasLimit = estimated
	}

	chainID, err := c.chainID(ctx)
	if err != nil {
		return nil, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("broadcast transaction: %w", err)
	}

	result := &models.TxResult{
		Network: c.network,
		TxHash:  signed.Hash().Hex(),
		From:    from.Hex(),
		To:      to.Hex(),
		Amount:  req.Amount.String(),
		Status:  models.TxStatusSubmitted,
	}
	if c.opts.WaitForReceipt {
		c.awaitReceipt(ctx, signed.Hash(), result)
	}
	return result, nil
}

func (c *EVMClient) gasPrice(ctx context.Context, requested *decimal.Decimal) (*big.Int, error) {
	if requested != nil {
		wei, ok := models.ToBaseUnitsWithin(*requested, 0, models.MaxUint256)
		if !ok {
			return nil, fmt.Errorf("%w: gasPrice does not fit in 256 bits", ErrInvalidAmount)
		}
		// IsInteger is only cheap once the exponent is known to be small
		if wei.Sign() <= 0 || !requested.IsInteger() {
			return nil, fmt.Errorf("%w: gasPrice must be a positive integer amount of wei", ErrInvalidAmount)
		}
		return wei, nil
	}
	price, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}
	return price, nil
}

func (c *EVMClient) chainID(ctx context.Context) (*big.Int, error) {
	if c.opts.ChainID > 0 {
		return big.NewInt(c.opts.ChainID), nil
	}
	id, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	return id, nil
}

// awaitReceipt polls until the transaction is mined. Running out of time is
// not an error: the transaction stays "submitted".
func (c *EVMClient) awaitReceipt(ctx context.Context, hash common.Hash, result *models.TxResult) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			result.Status = models.TxStatusConfirmed
			if receipt.Status != types.ReceiptStatusSuccessful {
				result.Status = models.TxStatusFailed
			}
			if receipt.BlockNumber != nil {
				block := receipt.BlockNumber.Uint64()
				result.BlockNumber = &block
			}
			return
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *EVMClient) Ping(ctx context.Context) error {
	_, err := c.backend.BlockNumber(ctx)
	return err
}

// Close releases the RPC connection
func (c *EVMClient) Close() {
	if c.closer != nil {
		c.closer()
	}
}

func parseEVMAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q is not a hex address", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// positiveBaseUnits converts a whole-coin amount and rejects anything that
// rounds down to zero base units or exceeds limit base units.
func positiveBaseUnits(amount *decimal.Decimal, decimals int32, limit *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}
	units, ok := models.ToBaseUnitsWithin(*amount, decimals, limit)
	if !ok {
		return nil, fmt.Errorf("%w: amount exceeds %s base units", ErrInvalidAmount, limit.String())
	}
	if units.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount is below the smallest unit", ErrInvalidAmount)
	}
	return units, nil
}
