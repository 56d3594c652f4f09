package chains

import (
	"context"
	"strings"
	"testing"

	"chain-gateway/internal/config"
	"chain-gateway/internal/models"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitcoinCreateWallet(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.BTCConfig
		params     *chaincfg.Params
		prefixes   []string
		wantSegwit bool
	}{
		{"mainnet p2pkh", config.BTCConfig{Network: "mainnet", AddressType: "p2pkh"}, &chaincfg.MainNetParams, []string{"1"}, false},
		{"mainnet p2wpkh", config.BTCConfig{Network: "mainnet", AddressType: "p2wpkh"}, &chaincfg.MainNetParams, []string{"bc1q"}, true},
		{"testnet p2pkh", config.BTCConfig{Network: "testnet3", AddressType: "P2PKH"}, &chaincfg.TestNet3Params, []string{"m", "n"}, false},
		{"testnet p2wpkh", config.BTCConfig{Network: "testnet", AddressType: "p2wpkh"}, &chaincfg.TestNet3Params, []string{"tb1q"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewBitcoinClient(tt.cfg)
			require.NoError(t, err)

			wallet, err := client.CreateWallet(context.Background())
			require.NoError(t, err)
			assert.Equal(t, models.NetworkBTC, wallet.Network)
			assert.NotEmpty(t, wallet.PublicKey)

			hasPrefix := false
			for _, p := range tt.prefixes {
				hasPrefix = hasPrefix || strings.HasPrefix(wallet.Address, p)
			}
			assert.True(t, hasPrefix, "unexpected address %s", wallet.Address)

			wif, err := btcutil.DecodeWIF(wallet.PrivateKey)
			require.NoError(t, err)
			assert.True(t, wif.IsForNet(tt.params))
			assert.True(t, wif.CompressPubKey)

			addr, err := btcutil.DecodeAddress(wallet.Address, tt.params)
			require.NoError(t, err)
			hash := btcutil.Hash160(wif.PrivKey.PubKey().SerializeCompressed())
			assert.Equal(t, hash, addr.ScriptAddress())

			_, isSegwit := addr.(*btcutil.AddressWitnessPubKeyHash)
			assert.Equal(t, tt.wantSegwit, isSegwit)
		})
	}
}

func TestBitcoinUnsupportedOperations(t *testing.T) {
	client, err := NewBitcoinClient(config.BTCConfig{})
	require.NoError(t, err)

	_, err = client.GetBalance(context.Background(), &models.BalanceQuery{Address: "1BoatSLRHtKNngkdXEeobR76b53LETtpyT"})
	assert.ErrorIs(t, err, ErrUnsupportedOperation)

	_, err = client.SendTransaction(context.Background(), &models.TransactionRequest{})
	assert.ErrorIs(t, err, ErrUnsupportedOperation)

	assert.NoError(t, client.Ping(context.Background()))
}

func TestBitcoinRejectsUnknownConfig(t *testing.T) {
	_, err := NewBitcoinClient(config.BTCConfig{Network: "litecoin"})
	assert.Error(t, err)

	_, err = NewBitcoinClient(config.BTCConfig{Network: "mainnet", AddressType: "taproot"})
	assert.Error(t, err)
}
