package amm

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ammv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/amm/v1"
	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestPool(t *testing.T) *Pool {
	t.Helper()

	pair, err := assetv1.ParsePair("BTC-USDT")
	require.NoError(t, err)

	// 100 BTC / 1,000,000 USDT, spot 10,000
	return NewPool(pair, dec("100"), dec("1000000"), 0)
}

func TestPool_QuoteSwap(t *testing.T) {
	pool := newTestPool(t)

	quote, err := pool.QuoteSwap("USDT", dec("1000"))
	require.NoError(t, err)

	// gross 0.1 BTC, 30 bps fee = 0.0003
	assert.True(t, quote.AmountOut.Equal(dec("0.0997")), "got %s", quote.AmountOut)
	assert.True(t, quote.Fee.Equal(dec("0.0003")))
	assert.Equal(t, assetv1.Asset("BTC"), quote.AssetOut)

	// Quoting does not touch reserves
	record := pool.Record()
	assert.True(t, record.ReserveBase.Equal(dec("100")))
	assert.True(t, record.ReserveQuote.Equal(dec("1000000")))
}

func TestPool_SwapUpdatesReserves(t *testing.T) {
	pool := newTestPool(t)

	quote, err := pool.Swap("USDT", dec("1000"))
	require.NoError(t, err)

	record := pool.Record()
	assert.True(t, record.ReserveQuote.Equal(dec("1001000")))
	assert.True(t, record.ReserveBase.Equal(dec("100").Sub(quote.AmountOut)))

	// Last price is the reserve ratio observed after the update, not the
	// fee-laden execution price, and it carries the swap's timestamp.
	last, err := pool.LastPrice()
	require.NoError(t, err)
	assert.True(t, last.Equal(record.ReserveQuote.Div(record.ReserveBase)), "got %s", last)
	assert.False(t, last.Equal(quote.Price))
	assert.Positive(t, record.LastPriceUpdate)

	// Base-in direction
	quote, err = pool.Swap("BTC", dec("1"))
	require.NoError(t, err)
	assert.Equal(t, assetv1.Asset("USDT"), quote.AssetOut)
	assert.True(t, quote.AmountOut.IsPositive())
}

func TestPool_OutputFloorsAtAssetPrecision(t *testing.T) {
	pair, err := assetv1.ParsePair("BTC-USDT")
	require.NoError(t, err)

	// Awkward ratio so the raw division has a long tail
	pool := NewPool(pair, dec("3"), dec("1000"), -1)

	quote, err := pool.QuoteSwap("USDT", dec("1"))
	require.NoError(t, err)

	// 1 * 3/1000 = 0.003 exactly; 1 * 7/9000 style tails get truncated
	assert.True(t, quote.AmountOut.Equal(dec("0.003")))

	pool = NewPool(pair, dec("7"), dec("9000"), -1)
	quote, err = pool.QuoteSwap("USDT", dec("1"))
	require.NoError(t, err)
	// 7/9000 = 0.000777777... floored to 8 decimals
	assert.True(t, quote.AmountOut.Equal(dec("0.00077777")), "got %s", quote.AmountOut)
}

func TestPool_Inactive(t *testing.T) {
	pool := newTestPool(t)
	pool.SetActive(false)

	_, err := pool.QuoteSwap("USDT", dec("1000"))
	assert.ErrorIs(t, err, ammv1.ErrPairInactive)

	_, err = pool.Swap("USDT", dec("1000"))
	assert.ErrorIs(t, err, ammv1.ErrPairInactive)

	pool.SetActive(true)
	_, err = pool.QuoteSwap("USDT", dec("1000"))
	assert.NoError(t, err)
}

func TestPool_InsufficientLiquidity(t *testing.T) {
	pair, err := assetv1.ParsePair("BTC-USDT")
	require.NoError(t, err)

	// Dust input quotes to zero output
	pool := NewPool(pair, dec("1"), dec("1000000"), 0)
	_, err = pool.QuoteSwap("USDT", dec("0.000001"))
	assert.ErrorIs(t, err, ammv1.ErrInsufficientLiquidity)

	// Output that would drain the reserve
	pool = NewPool(pair, dec("1"), dec("100"), 0)
	_, err = pool.QuoteSwap("USDT", dec("1000"))
	assert.ErrorIs(t, err, ammv1.ErrInsufficientLiquidity)
}

func TestPool_EmptyReservesArePairInactive(t *testing.T) {
	pair, err := assetv1.ParsePair("BTC-USDT")
	require.NoError(t, err)

	// A pool with either side empty has no price to trade at.
	pool := NewPool(pair, decimal.Zero, decimal.Zero, 0)
	_, err = pool.QuoteSwap("USDT", dec("1"))
	assert.ErrorIs(t, err, ammv1.ErrPairInactive)

	pool = NewPool(pair, dec("1"), decimal.Zero, 0)
	_, err = pool.Swap("BTC", dec("1"))
	assert.ErrorIs(t, err, ammv1.ErrPairInactive)

	pool = NewPool(pair, decimal.Zero, dec("100"), 0)
	_, err = pool.QuoteSwap("BTC", dec("1"))
	assert.ErrorIs(t, err, ammv1.ErrPairInactive)
}

func TestPool_RejectsForeignAssetAndBadAmounts(t *testing.T) {
	pool := newTestPool(t)

	_, err := pool.QuoteSwap("ETH", dec("1"))
	assert.ErrorIs(t, err, assetv1.ErrInvalidAmount)

	_, err = pool.QuoteSwap("USDT", dec("-5"))
	assert.ErrorIs(t, err, assetv1.ErrInvalidAmount)

	_, err = pool.QuoteSwap("USDT", decimal.Zero)
	assert.ErrorIs(t, err, assetv1.ErrInvalidAmount)
}

func TestPool_RecordRestoreRoundTrip(t *testing.T) {
	pool := newTestPool(t)
	_, err := pool.Swap("USDT", dec("5000"))
	require.NoError(t, err)

	record := pool.Record()

	pair, err := assetv1.ParsePair("BTC-USDT")
	require.NoError(t, err)
	restored := NewPool(pair, decimal.Zero, decimal.Zero, 0)
	require.NoError(t, restored.Restore(record))

	assert.Equal(t, record, restored.Record())

	wrong := record
	wrong.Pair = "ETH-USDT"
	assert.ErrorIs(t, restored.Restore(wrong), ammv1.ErrPoolNotFound)
}

func TestPool_RoundTripNeverProfits(t *testing.T) {
	pool := newTestPool(t)

	in := dec("1000")
	first, err := pool.Swap("USDT", in)
	require.NoError(t, err)

	second, err := pool.Swap("BTC", first.AmountOut)
	require.NoError(t, err)

	// The fee and output flooring guarantee a swap there and back loses
	assert.True(t, second.AmountOut.LessThanOrEqual(in),
		"round trip returned %s for %s in", second.AmountOut, in)
}

func TestPool_RoundTripNeverProfitsRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		pool := newTestPool(t)

		in := decimal.NewFromFloat(rng.Float64()*5000 + 0.01).Truncate(assetv1.Decimals("USDT"))

		first, err := pool.Swap("USDT", in)
		if err != nil {
			require.ErrorIs(t, err, ammv1.ErrInsufficientLiquidity, "input %s", in)
			continue
		}
		second, err := pool.Swap("BTC", first.AmountOut)
		if err != nil {
			require.ErrorIs(t, err, ammv1.ErrInsufficientLiquidity, "input %s", in)
			continue
		}

		assert.True(t, second.AmountOut.LessThanOrEqual(in),
			"round trip of %s came back as %s", in, second.AmountOut)
	}
}
