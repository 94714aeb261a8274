package marketmaker

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anteyko-labs/TradeShield-sub000/pkg/logger"

	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
	marketmakerv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/marketmaker/v1"
	tradev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/trade/v1"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/amm"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/ledger"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/oracle"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/orderbook"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/settlement"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/tradelog"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	scheduler *Scheduler
	book      *orderbook.Orderbook
	ledger    *ledger.Ledger
	oracle    *oracle.StaticOracle
	pair      assetv1.Pair
}

func setupFixture(t *testing.T, withPool bool, prices map[string]decimal.Decimal) *fixture {
	t.Helper()

	log, err := logger.NewLogger()
	require.NoError(t, err)

	pair, err := assetv1.ParsePair("BTC-USDT")
	require.NoError(t, err)

	l := ledger.NewLedger()
	require.NoError(t, l.Register("maker-1", map[assetv1.Asset]decimal.Decimal{
		"BTC":  dec("10"),
		"USDT": dec("100000"),
	}))

	var pool *amm.Pool
	if withPool {
		pool = amm.NewPool(pair, dec("100"), dec("1000000"), 0)
	}

	settler := settlement.NewSettler(l, tradelog.NewLog(), nil, nil, log)

	var book *orderbook.Orderbook
	if withPool {
		book = orderbook.NewOrderbook(pair, l, settler, pool, log)
	} else {
		book = orderbook.NewOrderbook(pair, l, settler, nil, log)
	}

	priceOracle := oracle.NewStaticOracle(prices)

	var scheduler *Scheduler
	if withPool {
		scheduler = NewScheduler(book, l, priceOracle, pool, log)
	} else {
		scheduler = NewScheduler(book, l, priceOracle, nil, log)
	}

	return &fixture{
		scheduler: scheduler,
		book:      book,
		ledger:    l,
		oracle:    priceOracle,
		pair:      pair,
	}
}

func makerConfig(pair assetv1.Pair) marketmakerv1.MakerConfig {
	return marketmakerv1.MakerConfig{
		ID:           "mm-1",
		Account:      "maker-1",
		Pair:         pair,
		SpreadBps:    100, // 1%
		SizeFraction: dec("0.1"),
		Active:       true,
	}
}

func TestScheduler_TickQuotesAroundReference(t *testing.T) {
	f := setupFixture(t, false, map[string]decimal.Decimal{"BTC-USDT": dec("10000")})
	require.NoError(t, f.scheduler.AddMaker(makerConfig(f.pair)))

	f.scheduler.Tick(context.Background())

	depth := f.book.Depth(5)
	require.Len(t, depth.Bids, 1)
	require.Len(t, depth.Asks, 1)

	// 1% around 10,000
	assert.True(t, depth.Bids[0].Price.Equal(dec("9900")), "bid at %s", depth.Bids[0].Price)
	assert.True(t, depth.Asks[0].Price.Equal(dec("10100")), "ask at %s", depth.Asks[0].Price)

	// Ask side quotes 10% of the 10 BTC balance
	assert.True(t, depth.Asks[0].Volume.Equal(dec("1")))

	stats, err := f.scheduler.Stats("mm-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.QuotesPlaced)
	assert.Equal(t, int64(0), stats.QuotesFailed)
	assert.NotZero(t, stats.LastQuoteAt)

	// The maker's funds back its quotes
	btc, err := f.ledger.Balance("maker-1", "BTC")
	require.NoError(t, err)
	assert.True(t, btc.Frozen.Equal(dec("1")))
}

func TestScheduler_RequoteReplacesOpenQuotes(t *testing.T) {
	f := setupFixture(t, false, map[string]decimal.Decimal{"BTC-USDT": dec("10000")})
	require.NoError(t, f.scheduler.AddMaker(makerConfig(f.pair)))

	ctx := context.Background()
	f.scheduler.Tick(ctx)

	// Price moves; the next tick cancels the old quotes first
	f.oracle.SetPrice(f.pair, dec("12000"))
	f.scheduler.Tick(ctx)

	depth := f.book.Depth(5)
	require.Len(t, depth.Bids, 1, "stale bids must be cancelled")
	require.Len(t, depth.Asks, 1, "stale asks must be cancelled")
	assert.True(t, depth.Bids[0].Price.Equal(dec("11880")))
	assert.True(t, depth.Asks[0].Price.Equal(dec("12120")))

	stats, err := f.scheduler.Stats("mm-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.QuotesPlaced)
}

func TestScheduler_FallsBackToPoolPrice(t *testing.T) {
	// No oracle price at all: the pool's price drives the quotes
	f := setupFixture(t, true, nil)
	require.NoError(t, f.scheduler.AddMaker(makerConfig(f.pair)))

	f.scheduler.Tick(context.Background())

	depth := f.book.Depth(5)
	require.Len(t, depth.Asks, 1)
	// Pool spot is 10,000
	assert.True(t, depth.Asks[0].Price.Equal(dec("10100")))

	stats, err := f.scheduler.Stats("mm-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.QuotesFailed)
}

func TestScheduler_NoPriceSourceRecordsFailure(t *testing.T) {
	f := setupFixture(t, false, nil)
	require.NoError(t, f.scheduler.AddMaker(makerConfig(f.pair)))

	f.scheduler.Tick(context.Background())

	stats, err := f.scheduler.Stats("mm-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.QuotesFailed)
	assert.NotEmpty(t, stats.LastError)
	assert.Equal(t, int64(0), stats.QuotesPlaced)

	// Nothing rested
	assert.True(t, f.book.AskTotalVolume().IsZero())
	assert.True(t, f.book.BidTotalVolume().IsZero())
}

func TestScheduler_InactiveMakerSkipped(t *testing.T) {
	f := setupFixture(t, false, map[string]decimal.Decimal{"BTC-USDT": dec("10000")})
	cfg := makerConfig(f.pair)
	cfg.Active = false
	require.NoError(t, f.scheduler.AddMaker(cfg))

	f.scheduler.Tick(context.Background())
	assert.True(t, f.book.AskTotalVolume().IsZero())

	// Resume and tick again
	require.NoError(t, f.scheduler.SetActive("mm-1", true))
	f.scheduler.Tick(context.Background())
	assert.True(t, f.book.AskTotalVolume().IsPositive())

	assert.ErrorIs(t, f.scheduler.SetActive("nope", true), marketmakerv1.ErrMakerNotFound)
}

func TestScheduler_RecordFill(t *testing.T) {
	f := setupFixture(t, false, map[string]decimal.Decimal{"BTC-USDT": dec("10000")})
	require.NoError(t, f.scheduler.AddMaker(makerConfig(f.pair)))

	trade := tradev1.Trade{
		ID:           "trade-1",
		Pair:         "BTC-USDT",
		MakerAccount: "maker-1",
		TakerAccount: "alice",
		Asset:        "BTC",
		Amount:       dec("0.5"),
		Price:        dec("10000"),
		Fee:          dec("1"),
	}

	f.scheduler.RecordFill("maker-1", trade)
	// Unknown accounts are ignored
	f.scheduler.RecordFill("alice", trade)

	stats, err := f.scheduler.Stats("mm-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TradesExecuted)
	assert.True(t, stats.BaseVolume.Equal(dec("0.5")))
	assert.True(t, stats.QuoteVolume.Equal(dec("5000")))
	// Maker side pays no taker fee
	assert.True(t, stats.FeesPaid.IsZero())
}

func TestScheduler_RejectsBadSizeFraction(t *testing.T) {
	f := setupFixture(t, false, nil)

	cfg := makerConfig(f.pair)
	cfg.SizeFraction = dec("0")
	assert.Error(t, f.scheduler.AddMaker(cfg))

	cfg.SizeFraction = dec("1.5")
	assert.Error(t, f.scheduler.AddMaker(cfg))
}
