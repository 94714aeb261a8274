package orderbookv1

import (
	"context"

	"github.com/shopspring/decimal"

	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
	snapshotv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/snapshot/v1"
)

// MaxDepthLevels caps the number of price levels Depth will return per side.
const MaxDepthLevels = 9

// DepthLevel is one aggregated price level of the book.
type DepthLevel struct {
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
	Orders int             `json:"orders"`
}

// Depth is an aggregated view of the top of the book.
type Depth struct {
	Pair string       `json:"pair"`
	Bids []DepthLevel `json:"bids"`
	Asks []DepthLevel `json:"asks"`
}

// Orderbook matches orders for a single trading pair. Placement freezes the
// taker's funds, matches against resting orders in price/time priority at
// the maker's price and settles each fill before the method returns.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=orderbookv1_mock
type Orderbook interface {
	// PlaceOrder validates, escrows and executes an order. Limit orders
	// rest their remainder; market orders fall back to the liquidity pool
	// and never rest.
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error)

	// CancelOrder removes a resting order and releases its hold.
	CancelOrder(ctx context.Context, orderID string) error

	// GetOrder returns a copy of the order with the given ID.
	GetOrder(orderID string) (*Order, error)

	// Depth aggregates up to levels price levels per side, best first.
	Depth(levels int) Depth

	Pair() assetv1.Pair
	Asks() []*Limit
	Bids() []*Limit
	AskTotalVolume() decimal.Decimal
	BidTotalVolume() decimal.Decimal

	// CreateSnapshot captures the resting orders and sequence counters.
	CreateSnapshot() snapshotv1.OrderBookSnapshot

	// RestoreOrderbook reinstates resting orders from a snapshot.
	RestoreOrderbook(book snapshotv1.OrderBookSnapshot) error
}
