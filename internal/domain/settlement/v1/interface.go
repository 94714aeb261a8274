package settlementv1

import (
	"context"

	ammv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/amm/v1"
	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
	orderbookv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/orderbook/v1"
	tradev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/trade/v1"
)

// Settler turns matches into balance movements and append-only trades.
// Both operations are atomic with respect to the ledger: escrowed funds are
// consumed and the counterparty credited before the trade is recorded.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=settlementv1_mock
type Settler interface {
	// ApplyMatch settles one book fill: the seller's base escrow and the
	// buyer's quote escrow are consumed and both sides credited at the
	// match price.
	ApplyMatch(ctx context.Context, pair assetv1.Pair, match orderbookv1.Match) (*tradev1.Trade, error)

	// ApplySwap settles a fill taken against the liquidity pool. The
	// taker's escrow pays the swap input and the taker is credited the
	// swap output.
	ApplySwap(ctx context.Context, pair assetv1.Pair, taker *orderbookv1.Order, quote ammv1.Quote) (*tradev1.Trade, error)
}
