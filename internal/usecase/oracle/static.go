package oracle

import (
	"context"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"

	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
	oraclev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/oracle/v1"
)

// StaticOracle serves fixed prices. Useful for local runs without a feed.
type StaticOracle struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

var _ oraclev1.PriceOracle = (*StaticOracle)(nil)

// NewStaticOracle creates an oracle with the given prices keyed by pair
// symbol.
func NewStaticOracle(prices map[string]decimal.Decimal) *StaticOracle {
	if prices == nil {
		prices = make(map[string]decimal.Decimal)
	}
	return &StaticOracle{prices: prices}
}

// SetPrice updates the price for the pair.
func (o *StaticOracle) SetPrice(pair assetv1.Pair, price decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[pair.Symbol()] = price
}

// GetPrice returns the configured price for the pair.
func (o *StaticOracle) GetPrice(ctx context.Context, pair assetv1.Pair) (decimal.Decimal, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	price, ok := o.prices[pair.Symbol()]
	if !ok || !price.IsPositive() {
		return decimal.Zero, pkgerrors.Wrapf(oraclev1.ErrStalePrice, "no price for pair %s", pair.Symbol())
	}
	return price, nil
}
