package models

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmountBits bounds the coefficient of a caller supplied decimal, roughly
// 96 significant digits.
const maxAmountBits = 320

// MaxUint256 is the largest value an EVM word can hold
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// WalletRecord is a freshly generated keypair. It is never persisted or logged.
type WalletRecord struct {
	Address    string  `json:"address"`
	PrivateKey string  `json:"privateKey"`
	PublicKey  string  `json:"publicKey,omitempty"`
	Network    Network `json:"network"`
}

// TransactionRequest is the body of POST /transaction.
// Amount is expressed in whole coins; GasPrice is in wei.
type TransactionRequest struct {
	Network    string           `json:"network"`
	To         string           `json:"to"`
	Amount     *decimal.Decimal `json:"amount"`
	PrivateKey string           `json:"privateKey"`
	GasPrice   *decimal.Decimal `json:"gasPrice,omitempty"`
	GasLimit   *uint64          `json:"gasLimit,omitempty"`
}

// MissingFields lists the required fields absent from the request
func (r *TransactionRequest) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(r.Network) == "" {
		missing = append(missing, "network")
	}
	if strings.TrimSpace(r.To) == "" {
		missing = append(missing, "to")
	}
	if r.Amount == nil {
		missing = append(missing, "amount")
	}
	if strings.TrimSpace(r.PrivateKey) == "" {
		missing = append(missing, "privateKey")
	}
	return missing
}

// OutOfRange lists the numeric fields whose magnitude cannot fit a uint256
// on any network. It never expands the decimals it inspects.
func (r *TransactionRequest) OutOfRange() []string {
	var fields []string
	if r.Amount != nil {
		if _, ok := ToBaseUnitsWithin(*r.Amount, 0, MaxUint256); !ok {
			fields = append(fields, "amount")
		}
	}
	if r.GasPrice != nil {
		if _, ok := ToBaseUnitsWithin(*r.GasPrice, 0, MaxUint256); !ok {
			fields = append(fields, "gasPrice")
		}
	}
	return fields
}

// TxStatus describes how far a submitted transaction got
type TxStatus string

const (
	TxStatusSubmitted TxStatus = "submitted"
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusFailed    TxStatus = "failed"
)

// TxResult is returned after a transaction has been broadcast
type TxResult struct {
	Network     Network  `json:"network"`
	TxHash      string   `json:"txHash"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	Amount      string   `json:"amount"`
	Status      TxStatus `json:"status"`
	BlockNumber *uint64  `json:"blockNumber,omitempty"`
}

// BalanceQuery holds the query string of GET /balance
type BalanceQuery struct {
	Network         string `form:"network" json:"network"`
	Address         string `form:"address" json:"address"`
	ContractAddress string `form:"contractAddress" json:"contractAddress,omitempty"`
}

// MissingFields lists the required fields absent from the query
func (q *BalanceQuery) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(q.Network) == "" {
		missing = append(missing, "network")
	}
	if strings.TrimSpace(q.Address) == "" {
		missing = append(missing, "address")
	}
	return missing
}

// IsToken reports whether the query targets a token contract instead of the native coin
func (q *BalanceQuery) IsToken() bool {
	return strings.TrimSpace(q.ContractAddress) != ""
}

// BalanceResult is the balance of one address, native or token.
// Balance is the raw integer amount in the smallest unit.
type BalanceResult struct {
	Network         Network `json:"network"`
	Address         string  `json:"address"`
	ContractAddress string  `json:"contractAddress,omitempty"`
	Balance         string  `json:"balance"`
	Formatted       string  `json:"formatted,omitempty"`
	Decimals        int32   `json:"decimals"`
	Symbol          string  `json:"symbol,omitempty"`
	Cached          bool    `json:"cached"`
}

// FormatUnits renders a raw integer amount with the given number of decimals
func FormatUnits(raw decimal.Decimal, decimals int32) string {
	return raw.Shift(-decimals).String()
}

// ToBaseUnits converts a whole-coin amount to the smallest unit, truncating
// anything below one base unit.
func ToBaseUnits(amount decimal.Decimal, decimals int32) decimal.Decimal {
	return amount.Shift(decimals).Truncate(0)
}

// ToBaseUnitsWithin converts amount like ToBaseUnits and reports false when
// the absolute result would exceed limit. The magnitude is read from the
// coefficient and exponent first, so extreme exponents such as "1e60000000"
// are rejected without any big number arithmetic.
func ToBaseUnitsWithin(amount decimal.Decimal, decimals int32, limit *big.Int) (*big.Int, bool) {
	coefficient := amount.Coefficient()
	if coefficient.BitLen() > maxAmountBits {
		return nil, false
	}
	digits := int64(len(coefficient.Text(10)))
	if coefficient.Sign() < 0 {
		digits--
	}

	// the value is below 10^magnitude base units
	magnitude := digits + int64(amount.Exponent()) + int64(decimals)
	if magnitude > int64(len(limit.Text(10))) {
		return nil, false
	}
	if magnitude <= 0 {
		return new(big.Int), true
	}

	units := ToBaseUnits(amount, decimals).BigInt()
	return units, new(big.Int).Abs(units).Cmp(limit) <= 0
}
