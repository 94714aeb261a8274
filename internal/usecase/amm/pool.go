package amm

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	ammv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/amm/v1"
	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
)

var basisPoints = decimal.NewFromInt(10000)

// Pool is a constant-ratio liquidity pool for one trading pair.
//
// A swap of amountIn produces floor(amountIn * reserveOut / reserveIn) at
// the output asset's precision; the fee is taken from the output and stays
// in the pool.
type Pool struct {
	mu sync.RWMutex

	pair            assetv1.Pair
	reserveBase     decimal.Decimal
	reserveQuote    decimal.Decimal
	feeBps          int64
	active          bool
	lastPrice       decimal.Decimal
	lastPriceUpdate int64
}

var _ ammv1.Pool = (*Pool)(nil)

// NewPool creates an active pool with the given reserves. A fee of zero
// basis points falls back to ammv1.DefaultFeeBps; pass a negative fee for a
// genuinely free pool.
func NewPool(pair assetv1.Pair, reserveBase, reserveQuote decimal.Decimal, feeBps int64) *Pool {
	if feeBps == 0 {
		feeBps = ammv1.DefaultFeeBps
	}
	if feeBps < 0 {
		feeBps = 0
	}

	return &Pool{
		pair:         pair,
		reserveBase:  reserveBase,
		reserveQuote: reserveQuote,
		feeBps:       feeBps,
		active:       true,
	}
}

// Pair returns the pool's trading pair.
func (p *Pool) Pair() assetv1.Pair {
	return p.pair
}

// QuoteSwap prices a swap of amountIn of assetIn without mutating reserves.
func (p *Pool) QuoteSwap(assetIn assetv1.Asset, amountIn decimal.Decimal) (ammv1.Quote, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.quote(assetIn, amountIn)
}

// Swap executes a swap and updates reserves. The pool's last price is the
// reserveQuote/reserveBase ratio observed after the update, timestamped at
// execution time. The quote's effective price (which bakes in the fee) is
// returned to the caller but never stored.
func (p *Pool) Swap(assetIn assetv1.Asset, amountIn decimal.Decimal) (ammv1.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	quote, err := p.quote(assetIn, amountIn)
	if err != nil {
		return ammv1.Quote{}, err
	}

	if assetIn == p.pair.Base {
		p.reserveBase = p.reserveBase.Add(quote.AmountIn)
		p.reserveQuote = p.reserveQuote.Sub(quote.AmountOut)
	} else {
		p.reserveQuote = p.reserveQuote.Add(quote.AmountIn)
		p.reserveBase = p.reserveBase.Sub(quote.AmountOut)
	}
	p.lastPrice = p.reserveQuote.Div(p.reserveBase)
	p.lastPriceUpdate = time.Now().UnixNano()

	return quote, nil
}

// quote prices a swap. Callers hold at least a read lock.
func (p *Pool) quote(assetIn assetv1.Asset, amountIn decimal.Decimal) (ammv1.Quote, error) {
	if !p.active {
		return ammv1.Quote{}, errors.Wrapf(ammv1.ErrPairInactive, "pair %s", p.pair.Symbol())
	}

	var assetOut assetv1.Asset
	var reserveIn, reserveOut decimal.Decimal
	switch assetIn {
	case p.pair.Base:
		assetOut = p.pair.Quote
		reserveIn, reserveOut = p.reserveBase, p.reserveQuote
	case p.pair.Quote:
		assetOut = p.pair.Base
		reserveIn, reserveOut = p.reserveQuote, p.reserveBase
	default:
		return ammv1.Quote{}, errors.Wrapf(assetv1.ErrInvalidAmount, "asset %s not in pair %s", assetIn, p.pair.Symbol())
	}

	amt, err := assetv1.Normalize(assetIn, amountIn)
	if err != nil {
		return ammv1.Quote{}, err
	}

	// A pool with an empty side has no price; that is inactivity, not a
	// liquidity shortfall on an otherwise priceable swap.
	if !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return ammv1.Quote{}, errors.Wrapf(ammv1.ErrPairInactive, "pair %s has empty reserves", p.pair.Symbol())
	}

	outScale := assetv1.Decimals(assetOut)
	gross := amt.Mul(reserveOut).Div(reserveIn).Truncate(outScale)
	fee := gross.Mul(decimal.NewFromInt(p.feeBps)).Div(basisPoints).Truncate(outScale)
	net := gross.Sub(fee)

	if !net.IsPositive() {
		return ammv1.Quote{}, errors.Wrapf(ammv1.ErrInsufficientLiquidity,
			"amount %s %s quotes to nothing", amt, assetIn)
	}
	if net.GreaterThanOrEqual(reserveOut) {
		return ammv1.Quote{}, errors.Wrapf(ammv1.ErrInsufficientLiquidity,
			"swap of %s %s would drain the %s reserve", amt, assetIn, assetOut)
	}

	var price decimal.Decimal
	if assetIn == p.pair.Base {
		price = net.Div(amt)
	} else {
		price = amt.Div(net)
	}

	return ammv1.Quote{
		AssetIn:   assetIn,
		AssetOut:  assetOut,
		AmountIn:  amt,
		AmountOut: net,
		Fee:       fee,
		Price:     price,
	}, nil
}

// AddLiquidity increases both reserves.
func (p *Pool) AddLiquidity(base, quote decimal.Decimal) error {
	if base.IsNegative() || quote.IsNegative() {
		return errors.Wrap(assetv1.ErrInvalidAmount, "liquidity amounts must not be negative")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.reserveBase = p.reserveBase.Add(base)
	p.reserveQuote = p.reserveQuote.Add(quote)

	return nil
}

// SetActive toggles the pool's trading flag.
func (p *Pool) SetActive(active bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = active
}

// SpotPrice returns the current reserveQuote/reserveBase ratio.
func (p *Pool) SpotPrice() (decimal.Decimal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.reserveBase.IsPositive() {
		return decimal.Zero, errors.Wrapf(ammv1.ErrInsufficientLiquidity, "pair %s has no base reserve", p.pair.Symbol())
	}

	return p.reserveQuote.Div(p.reserveBase), nil
}

// LastPrice returns the reserve-ratio price recorded after the most recent
// swap, or the spot price when the pool has never traded.
func (p *Pool) LastPrice() (decimal.Decimal, error) {
	p.mu.RLock()
	last := p.lastPrice
	p.mu.RUnlock()

	if last.IsPositive() {
		return last, nil
	}

	return p.SpotPrice()
}

// Record returns the pool's serializable state.
func (p *Pool) Record() ammv1.PoolRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ammv1.PoolRecord{
		Pair:            p.pair.Symbol(),
		ReserveBase:     p.reserveBase,
		ReserveQuote:    p.reserveQuote,
		FeeBps:          p.feeBps,
		Active:          p.active,
		LastPrice:       p.lastPrice,
		LastPriceUpdate: p.lastPriceUpdate,
	}
}

// Restore replaces the pool's state with the given record.
func (p *Pool) Restore(record ammv1.PoolRecord) error {
	if record.Pair != p.pair.Symbol() {
		return errors.Wrapf(ammv1.ErrPoolNotFound, "record pair %s does not match pool %s", record.Pair, p.pair.Symbol())
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.reserveBase = record.ReserveBase
	p.reserveQuote = record.ReserveQuote
	p.feeBps = record.FeeBps
	p.active = record.Active
	p.lastPrice = record.LastPrice
	p.lastPriceUpdate = record.LastPriceUpdate

	return nil
}
