package settlement

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/anteyko-labs/TradeShield-sub000/pkg/errors"
	"github.com/anteyko-labs/TradeShield-sub000/pkg/logger"

	ammv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/amm/v1"
	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
	marketmakerv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/marketmaker/v1"
	orderbookv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/orderbook/v1"
	settlementv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/settlement/v1"
	tradev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/trade/v1"
)

// Sink receives settled trades for asynchronous delivery (publishing,
// archiving). It must not block: settlement runs inside the book's critical
// section.
type Sink func(trade tradev1.Trade)

// Settler applies matches to the ledger and records the resulting trades.
type Settler struct {
	ledger   ledgerInterface
	tradeLog tradev1.Log
	registry marketmakerv1.Registry
	sink     Sink
	logger   logger.Interface
}

// ledgerInterface is the slice of the ledger settlement needs.
type ledgerInterface interface {
	Settle(orderID string, amount decimal.Decimal) error
	Credit(account string, asset assetv1.Asset, amount decimal.Decimal) error
}

var _ settlementv1.Settler = (*Settler)(nil)

// NewSettler wires a settler. Registry and sink may be nil.
func NewSettler(ledger ledgerInterface, tradeLog tradev1.Log, registry marketmakerv1.Registry, sink Sink, log logger.Interface) *Settler {
	return &Settler{
		ledger:   ledger,
		tradeLog: tradeLog,
		registry: registry,
		sink:     sink,
		logger:   log,
	}
}

// SetRegistry wires the maker registry after construction. The scheduler
// depends on the book, which depends on this settler, so the registry is
// attached once both exist. Call before the first order flows.
func (s *Settler) SetRegistry(registry marketmakerv1.Registry) {
	s.registry = registry
}

// SetSink wires the asynchronous trade sink after construction. Call before
// the first order flows.
func (s *Settler) SetSink(sink Sink) {
	s.sink = sink
}

// ApplyMatch settles one book fill at the maker's price.
//
// Settlement is all-or-nothing: a fill whose quote cost truncates to zero
// is refused up front, before either side's ledger state is touched, so a
// failing match never consumes the seller's base without crediting quote.
func (s *Settler) ApplyMatch(ctx context.Context, pair assetv1.Pair, match orderbookv1.Match) (*tradev1.Trade, error) {
	cost := match.AmountFilled.Mul(match.Price).Truncate(assetv1.Decimals(pair.Quote))
	if !cost.IsPositive() {
		return nil, errors.NewTracer("zero_notional_match_error").Wrap(
			pkgerrors.Wrapf(orderbookv1.ErrBelowMinNotional,
				"fill of %s at %s is worth less than one %s tick", match.AmountFilled, match.Price, pair.Quote))
	}

	// Seller hands over base, receives quote.
	if err := s.ledger.Settle(match.Ask.ID, match.AmountFilled); err != nil {
		return nil, errors.NewTracer("settle_ask_escrow_error").Wrap(err)
	}
	if err := s.ledger.Credit(match.Ask.Account, pair.Quote, cost); err != nil {
		return nil, errors.NewTracer("credit_seller_error").Wrap(err)
	}

	// Buyer hands over quote, receives base.
	if err := s.ledger.Settle(match.Bid.ID, cost); err != nil {
		return nil, errors.NewTracer("settle_bid_escrow_error").Wrap(err)
	}
	if err := s.ledger.Credit(match.Bid.Account, pair.Base, match.AmountFilled); err != nil {
		return nil, errors.NewTracer("credit_buyer_error").Wrap(err)
	}

	trade := tradev1.Trade{
		ID:           ulid.Make().String(),
		Pair:         pair.Symbol(),
		MakerOrderID: match.Maker.ID,
		TakerOrderID: match.Taker.ID,
		MakerAccount: match.Maker.Account,
		TakerAccount: match.Taker.Account,
		TakerSide:    match.Taker.Side(),
		Asset:        pair.Base,
		Amount:       match.AmountFilled,
		Price:        match.Price,
		Fee:          decimal.Zero,
		Timestamp:    time.Now().UnixNano(),
	}
	s.record(ctx, trade)

	return &trade, nil
}

// ApplySwap settles a fill taken against the liquidity pool.
func (s *Settler) ApplySwap(ctx context.Context, pair assetv1.Pair, taker *orderbookv1.Order, quote ammv1.Quote) (*tradev1.Trade, error) {
	if err := s.ledger.Settle(taker.ID, quote.AmountIn); err != nil {
		return nil, errors.NewTracer("settle_swap_escrow_error").Wrap(err)
	}
	if err := s.ledger.Credit(taker.Account, quote.AssetOut, quote.AmountOut); err != nil {
		return nil, errors.NewTracer("credit_swap_output_error").Wrap(err)
	}

	// Trade amount is always in the base asset.
	amount := quote.AmountOut
	if quote.AssetIn == pair.Base {
		amount = quote.AmountIn
	}

	trade := tradev1.Trade{
		ID:           ulid.Make().String(),
		Pair:         pair.Symbol(),
		MakerOrderID: tradev1.CounterpartyAMM,
		TakerOrderID: taker.ID,
		TakerAccount: taker.Account,
		TakerSide:    taker.Side(),
		Asset:        pair.Base,
		Amount:       amount,
		Price:        quote.Price,
		Fee:          quote.Fee,
		Timestamp:    time.Now().UnixNano(),
	}
	s.record(ctx, trade)

	return &trade, nil
}

func (s *Settler) record(ctx context.Context, trade tradev1.Trade) {
	if s.tradeLog != nil {
		s.tradeLog.Append(trade)
	}
	if s.registry != nil {
		if trade.MakerAccount != "" {
			s.registry.RecordFill(trade.MakerAccount, trade)
		}
		s.registry.RecordFill(trade.TakerAccount, trade)
	}
	if s.sink != nil {
		s.sink(trade)
	}

	s.logger.InfoContext(ctx, "trade settled",
		logger.Field{Key: "tradeID", Value: trade.ID},
		logger.Field{Key: "pair", Value: trade.Pair},
		logger.Field{Key: "amount", Value: trade.Amount.String()},
		logger.Field{Key: "price", Value: trade.Price.String()},
	)
}
