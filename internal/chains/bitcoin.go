package chains

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"chain-gateway/internal/config"
	"chain-gateway/internal/models"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// Bitcoin address encodings
const (
	AddressTypeP2PKH  = "p2pkh"
	AddressTypeP2WPKH = "p2wpkh"
)

// BitcoinClient only generates wallets; there is no node behind it.
type BitcoinClient struct {
	params      *chaincfg.Params
	addressType string
}

// NewBitcoinClient resolves the configured network parameters
func NewBitcoinClient(cfg config.BTCConfig) (*BitcoinClient, error) {
	params, err := bitcoinParams(cfg.Network)
	if err != nil {
		return nil, err
	}
	addressType := strings.ToLower(cfg.AddressType)
	if addressType == "" {
		addressType = AddressTypeP2PKH
	}
	if addressType != AddressTypeP2PKH && addressType != AddressTypeP2WPKH {
		return nil, fmt.Errorf("BTC: unknown address type %q", cfg.AddressType)
	}
	return &BitcoinClient{params: params, addressType: addressType}, nil
}

func bitcoinParams(network string) (*chaincfg.Params, error) {
	switch strings.ToLower(network) {
	case "", "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("BTC: unknown network %q", network)
	}
}

func (c *BitcoinClient) Network() models.Network {
	return models.NetworkBTC
}

// CreateWallet returns a compressed-key WIF and the matching address
func (c *BitcoinClient) CreateWallet(ctx context.Context) (*models.WalletRecord, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	wif, err := btcutil.NewWIF(key, c.params, true)
	if err != nil {
		return nil, fmt.Errorf("encode wif: %w", err)
	}

	pub := key.PubKey().SerializeCompressed()
	pubKeyHash := btcutil.Hash160(pub)

	var addr btcutil.Address
	switch c.addressType {
	case AddressTypeP2WPKH:
		addr, err = btcutil.NewAddressWitnessPubKeyHash(pubKeyHash, c.params)
	default:
		addr, err = btcutil.NewAddressPubKeyHash(pubKeyHash, c.params)
	}
	if err != nil {
		return nil, fmt.Errorf("derive address: %w", err)
	}

	return &models.WalletRecord{
		Address:    addr.EncodeAddress(),
		PrivateKey: wif.String(),
		PublicKey:  hex.EncodeToString(pub),
		Network:    models.NetworkBTC,
	}, nil
}

func (c *BitcoinClient) GetBalance(ctx context.Context, query *models.BalanceQuery) (*models.BalanceResult, error) {
	return nil, ErrUnsupportedOperation
}

func (c *BitcoinClient) SendTransaction(ctx context.Context, req *models.TransactionRequest) (*models.TxResult, error) {
	return nil, ErrUnsupportedOperation
}

// Ping always succeeds; wallet generation is offline
func (c *BitcoinClient) Ping(ctx context.Context) error {
	return nil
}
