package oraclev1

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
)

// ErrStalePrice is returned when the oracle cannot produce a price fresher
// than its staleness window.
var ErrStalePrice = errors.New("stale oracle price")

// PriceOracle supplies external reference prices for trading pairs.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=oraclev1_mock
type PriceOracle interface {
	// GetPrice returns the current reference price of the pair in its
	// quote asset.
	GetPrice(ctx context.Context, pair assetv1.Pair) (decimal.Decimal, error)
}
