package assetv1

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when an amount is zero, negative or carries
// more fractional digits than the asset allows.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrInvalidPair is returned when a trading pair symbol cannot be parsed.
var ErrInvalidPair = errors.New("invalid pair")

// Asset is a ledger asset symbol, e.g. "BTC" or "USDT".
type Asset string

// DefaultDecimals is the precision used for assets without an explicit entry
// in the registry.
const DefaultDecimals = 8

// MaxIntegerDigits caps the integer part of any amount accepted at the
// ledger boundary.
const MaxIntegerDigits = 20

// decimalsByAsset lists assets whose canonical precision differs from
// DefaultDecimals. Stablecoins settle with 6 fractional digits.
var decimalsByAsset = map[Asset]int32{
	"USDT": 6,
	"USDC": 6,
}

// Decimals returns the canonical number of fractional digits for an asset.
func Decimals(asset Asset) int32 {
	if d, ok := decimalsByAsset[asset]; ok {
		return d
	}
	return DefaultDecimals
}

// Normalize validates an amount against the asset's canonical precision.
// The amount must be strictly positive, must not exceed MaxIntegerDigits
// integer digits and must not carry fractional digits beyond the asset's
// precision.
func Normalize(asset Asset, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "amount %s must be positive", amount)
	}

	scale := Decimals(asset)
	if !amount.Equal(amount.Truncate(scale)) {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "amount %s exceeds %d decimals for %s", amount, scale, asset)
	}

	if len(amount.Truncate(0).BigInt().String()) > MaxIntegerDigits {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "amount %s exceeds %d integer digits", amount, MaxIntegerDigits)
	}

	return amount, nil
}

// Pair is a base/quote trading pair, e.g. BTC-USDT.
type Pair struct {
	Base  Asset `json:"base"`
	Quote Asset `json:"quote"`
}

// ParsePair parses a "BASE-QUOTE" symbol into a Pair.
func ParsePair(symbol string) (Pair, error) {
	parts := strings.Split(symbol, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, errors.Wrapf(ErrInvalidPair, "symbol %q", symbol)
	}

	return Pair{
		Base:  Asset(strings.ToUpper(parts[0])),
		Quote: Asset(strings.ToUpper(parts[1])),
	}, nil
}

// Symbol renders the pair as "BASE-QUOTE".
func (p Pair) Symbol() string {
	return string(p.Base) + "-" + string(p.Quote)
}
