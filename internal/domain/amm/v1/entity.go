package ammv1

import (
	"github.com/shopspring/decimal"

	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
)

// DefaultFeeBps is the swap fee applied when a pool does not configure one.
const DefaultFeeBps = 30

// Quote is the result of pricing a swap without executing it.
type Quote struct {
	AssetIn   assetv1.Asset   `json:"assetIn"`
	AssetOut  assetv1.Asset   `json:"assetOut"`
	AmountIn  decimal.Decimal `json:"amountIn"`
	AmountOut decimal.Decimal `json:"amountOut"`
	Fee       decimal.Decimal `json:"fee"`
	Price     decimal.Decimal `json:"price"` // effective quote per base
}

// PoolRecord is the serializable state of a liquidity pool, used by
// snapshots.
type PoolRecord struct {
	Pair         string          `json:"pair"`
	ReserveBase  decimal.Decimal `json:"reserveBase"`
	ReserveQuote decimal.Decimal `json:"reserveQuote"`
	FeeBps       int64           `json:"feeBps"`
	Active       bool            `json:"active"`
	LastPrice    decimal.Decimal `json:"lastPrice"`
	// LastPriceUpdate is the UnixNano time of the swap that set LastPrice.
	LastPriceUpdate int64 `json:"lastPriceUpdate"`
}
