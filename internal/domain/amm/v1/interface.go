package ammv1

import (
	"github.com/shopspring/decimal"

	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
)

// Pool prices and executes swaps against a constant-ratio liquidity pool.
//
// Output amounts are computed as floor(amountIn * reserveOut / reserveIn)
// at the asset's canonical precision, with the fee deducted from the output.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=ammv1_mock
type Pool interface {
	// Pair returns the pool's trading pair.
	Pair() assetv1.Pair

	// QuoteSwap prices a swap of amountIn of assetIn without mutating
	// reserves.
	QuoteSwap(assetIn assetv1.Asset, amountIn decimal.Decimal) (Quote, error)

	// Swap executes a swap, updating reserves and recording the
	// post-update reserve-ratio price with its timestamp.
	Swap(assetIn assetv1.Asset, amountIn decimal.Decimal) (Quote, error)

	// AddLiquidity increases both reserves. Either amount may be zero.
	AddLiquidity(base, quote decimal.Decimal) error

	// SetActive toggles the pool's trading flag.
	SetActive(active bool)

	// SpotPrice returns the current reserveQuote/reserveBase ratio.
	SpotPrice() (decimal.Decimal, error)

	// LastPrice returns the reserve-ratio price recorded by the most
	// recent swap, or the spot price when the pool has never traded.
	LastPrice() (decimal.Decimal, error)

	// Record returns the pool's serializable state.
	Record() PoolRecord

	// Restore replaces the pool's state with the given record.
	Restore(record PoolRecord) error
}
