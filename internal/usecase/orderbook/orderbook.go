package orderbook

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/anteyko-labs/TradeShield-sub000/pkg/logger"

	ammv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/amm/v1"
	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
	ledgerv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/ledger/v1"
	orderbookv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/orderbook/v1"
	settlementv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/settlement/v1"
	snapshotv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/snapshot/v1"
)

// Orderbook matches orders for a single trading pair. All placement and
// cancellation runs under one mutex per pair, so escrow, matching and
// settlement happen with no observable gap between check and mutation.
type Orderbook struct {
	mu sync.RWMutex

	pair   assetv1.Pair
	asks   map[string]*orderbookv1.Limit
	bids   map[string]*orderbookv1.Limit
	orders map[string]*orderbookv1.Order

	sequence int64

	ledger  ledgerv1.Ledger
	settler settlementv1.Settler
	pool    ammv1.Pool // nil when the pair has no liquidity pool
	logger  logger.Interface
}

var _ orderbookv1.Orderbook = (*Orderbook)(nil)

// NewOrderbook creates an empty book for the pair. pool may be nil.
func NewOrderbook(pair assetv1.Pair, ledger ledgerv1.Ledger, settler settlementv1.Settler, pool ammv1.Pool, log logger.Interface) *Orderbook {
	return &Orderbook{
		pair:    pair,
		asks:    make(map[string]*orderbookv1.Limit),
		bids:    make(map[string]*orderbookv1.Limit),
		orders:  make(map[string]*orderbookv1.Order),
		ledger:  ledger,
		settler: settler,
		pool:    pool,
		logger:  log,
	}
}

// Pair returns the book's trading pair.
func (ob *Orderbook) Pair() assetv1.Pair {
	return ob.pair
}

// PlaceOrder validates, escrows and executes an order. Limit orders rest
// their remainder; market orders fall back to the liquidity pool and never
// rest.
func (ob *Orderbook) PlaceOrder(ctx context.Context, req orderbookv1.PlaceOrderRequest) (*orderbookv1.Order, error) {
	amount, err := assetv1.Normalize(ob.pair.Base, req.Amount)
	if err != nil {
		return nil, err
	}

	var price decimal.Decimal
	if req.Type == orderbookv1.OrderTypeLimit {
		price, err = assetv1.Normalize(ob.pair.Quote, req.Price)
		if err != nil {
			return nil, pkgerrors.Wrap(orderbookv1.ErrInvalidPrice, err.Error())
		}
		if !amount.Mul(price).Truncate(assetv1.Decimals(ob.pair.Quote)).IsPositive() {
			return nil, pkgerrors.Wrapf(orderbookv1.ErrBelowMinNotional,
				"%s %s at %s is worth less than one %s tick", amount, ob.pair.Base, price, ob.pair.Quote)
		}
	}

	orderID := req.OrderID
	if orderID == "" {
		orderID = ulid.Make().String()
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	if _, exists := ob.orders[orderID]; exists {
		return nil, pkgerrors.Wrapf(orderbookv1.ErrDuplicateOrder, "order %s", orderID)
	}

	order := &orderbookv1.Order{
		ID:             orderID,
		Account:        req.Account,
		Type:           req.Type,
		Bid:            req.Bid,
		Amount:         amount,
		OriginalAmount: amount,
		Price:          price,
		Status:         orderbookv1.StatusPending,
		Timestamp:      time.Now().UnixNano(),
		Sequence:       ob.nextSequence(),
	}

	if err := ob.freezeForOrder(order); err != nil {
		return nil, err
	}
	ob.orders[order.ID] = order

	if req.RouteAMM {
		ob.fillFromPool(ctx, order)
		ob.terminate(ctx, order)
		return order, nil
	}

	switch req.Type {
	case orderbookv1.OrderTypeLimit:
		ob.matchAgainstBook(ctx, order)
		if order.Amount.IsPositive() {
			ob.restOrder(order)
		} else {
			ob.releaseResidual(ctx, order)
		}
	case orderbookv1.OrderTypeMarket:
		ob.matchAgainstBook(ctx, order)
		if order.Amount.IsPositive() {
			ob.fillFromPool(ctx, order)
		}
		ob.terminate(ctx, order)
	default:
		// Unknown types never reach the book; release the escrow.
		ob.releaseHold(order.ID)
		delete(ob.orders, order.ID)
		return nil, pkgerrors.Wrapf(assetv1.ErrInvalidAmount, "unsupported order type %q", req.Type)
	}

	return order, nil
}

// freezeForOrder escrows the taker's funds. Sells freeze the base amount,
// limit buys freeze the worst-case quote cost and market buys freeze the
// account's entire available quote budget.
func (ob *Orderbook) freezeForOrder(order *orderbookv1.Order) error {
	if order.IsAsk() {
		return ob.ledger.Freeze(order.Account, ob.pair.Base, order.Amount, order.ID)
	}

	quoteScale := assetv1.Decimals(ob.pair.Quote)
	if order.Type == orderbookv1.OrderTypeLimit {
		cost := order.Amount.Mul(order.Price).RoundUp(quoteScale)
		return ob.ledger.Freeze(order.Account, ob.pair.Quote, cost, order.ID)
	}

	balance, err := ob.ledger.Balance(order.Account, ob.pair.Quote)
	if err != nil {
		return err
	}
	budget := balance.Available.Truncate(quoteScale)
	if !budget.IsPositive() {
		return pkgerrors.Wrapf(ledgerv1.ErrInsufficientFunds,
			"account %s has no available %s", order.Account, ob.pair.Quote)
	}

	return ob.ledger.Freeze(order.Account, ob.pair.Quote, budget, order.ID)
}

// matchAgainstBook fills the order against resting orders in price/time
// priority. Every fill settles at the resting order's price before the next
// level is touched.
func (ob *Orderbook) matchAgainstBook(ctx context.Context, order *orderbookv1.Order) {
	levels := ob.sortedAsksLocked()
	if order.IsAsk() {
		levels = ob.sortedBidsLocked()
	}

	for _, level := range levels {
		if !order.Amount.IsPositive() {
			break
		}
		if order.Type == orderbookv1.OrderTypeLimit && !ob.priceCrosses(order, level.Price) {
			break
		}

		// A market buy can only take what its frozen budget affords at
		// this level's price.
		var withheld decimal.Decimal
		if order.Type == orderbookv1.OrderTypeMarket && order.IsBid() {
			hold, err := ob.ledger.Hold(order.ID)
			if err != nil {
				break
			}
			affordable := hold.Amount.Div(level.Price).Truncate(assetv1.Decimals(ob.pair.Base))
			if !affordable.IsPositive() {
				break
			}
			if affordable.LessThan(order.Amount) {
				withheld = order.Amount.Sub(affordable)
				order.Amount = affordable
			}
		}

		matches := level.Fill(order, assetv1.Decimals(ob.pair.Quote))
		for _, match := range matches {
			if _, err := ob.settler.ApplyMatch(ctx, ob.pair, match); err != nil {
				ob.logger.ErrorContext(ctx, err,
					logger.Field{Key: "orderID", Value: order.ID},
					logger.Field{Key: "pair", Value: ob.pair.Symbol()},
				)
				continue
			}
			if match.Maker.Status == orderbookv1.StatusFilled {
				ob.releaseResidual(ctx, match.Maker)
			}
		}

		if withheld.IsPositive() {
			order.Amount = order.Amount.Add(withheld)
			if order.Status == orderbookv1.StatusFilled {
				order.Status = orderbookv1.StatusPartiallyFilled
			}
		}

		ob.dropLevelIfEmpty(level)
	}
}

func (ob *Orderbook) priceCrosses(order *orderbookv1.Order, levelPrice decimal.Decimal) bool {
	if order.IsBid() {
		return levelPrice.LessThanOrEqual(order.Price)
	}
	return levelPrice.GreaterThanOrEqual(order.Price)
}

// fillFromPool executes the order's remainder against the liquidity pool.
// Pool errors terminate the leg without failing the order.
func (ob *Orderbook) fillFromPool(ctx context.Context, order *orderbookv1.Order) {
	if ob.pool == nil || !order.Amount.IsPositive() {
		return
	}

	assetIn := ob.pair.Base
	amountIn := order.Amount

	if order.IsBid() {
		hold, err := ob.ledger.Hold(order.ID)
		if err != nil {
			return
		}

		spot, err := ob.pool.SpotPrice()
		if err != nil {
			ob.logger.DebugContext(ctx, "pool has no price, skipping swap leg",
				logger.Field{Key: "orderID", Value: order.ID},
			)
			return
		}

		assetIn = ob.pair.Quote
		amountIn = order.Amount.Mul(spot).Truncate(assetv1.Decimals(ob.pair.Quote))
		if amountIn.GreaterThan(hold.Amount) {
			amountIn = hold.Amount
		}
		if !amountIn.IsPositive() {
			return
		}
	}

	quote, err := ob.pool.Swap(assetIn, amountIn)
	if err != nil {
		ob.logger.DebugContext(ctx, "swap leg skipped",
			logger.Field{Key: "orderID", Value: order.ID},
			logger.Field{Key: "reason", Value: err.Error()},
		)
		return
	}

	if _, err := ob.settler.ApplySwap(ctx, ob.pair, order, quote); err != nil {
		ob.logger.ErrorContext(ctx, err, logger.Field{Key: "orderID", Value: order.ID})
		return
	}

	filled := quote.AmountOut
	if assetIn == ob.pair.Base {
		filled = quote.AmountIn
	}
	order.Amount = order.Amount.Sub(filled)
	if order.Amount.IsNegative() {
		order.Amount = decimal.Zero
	}
	if order.IsFilled() {
		order.Status = orderbookv1.StatusFilled
	} else {
		order.Status = orderbookv1.StatusPartiallyFilled
	}
}

// restOrder parks a limit remainder at its price level.
func (ob *Orderbook) restOrder(order *orderbookv1.Order) {
	side := ob.bids
	if order.IsAsk() {
		side = ob.asks
	}

	key := order.Price.String()
	level, ok := side[key]
	if !ok {
		level = orderbookv1.NewLimit(order.Price)
		side[key] = level
	}

	if err := level.AddOrder(order); err != nil {
		ob.logger.Error(err, logger.Field{Key: "orderID", Value: order.ID})
	}
}

// terminate finalizes a market or AMM-routed order: it never rests, so any
// unfilled remainder is abandoned and the leftover escrow released.
func (ob *Orderbook) terminate(ctx context.Context, order *orderbookv1.Order) {
	if order.Amount.IsPositive() {
		order.Status = orderbookv1.StatusCancelled
	} else {
		order.Status = orderbookv1.StatusFilled
	}
	ob.releaseResidual(ctx, order)
}

// releaseResidual returns whatever escrow is left for a terminal order.
// Buy orders legitimately leave residue behind: the freeze rounds the cost
// up, and fills below the limit price consume less than was escrowed.
func (ob *Orderbook) releaseResidual(ctx context.Context, order *orderbookv1.Order) {
	if !order.Status.IsTerminal() {
		return
	}
	ob.releaseHold(order.ID)
}

func (ob *Orderbook) releaseHold(orderID string) {
	if err := ob.ledger.Release(orderID); err != nil && !pkgerrors.Is(err, ledgerv1.ErrHoldNotFound) {
		ob.logger.Error(err, logger.Field{Key: "orderID", Value: orderID})
	}
}

// CancelOrder removes a resting order and releases its hold.
func (ob *Orderbook) CancelOrder(ctx context.Context, orderID string) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	order, ok := ob.orders[orderID]
	if !ok {
		return pkgerrors.Wrapf(orderbookv1.ErrOrderNotFound, "order %s", orderID)
	}
	if order.Status.IsTerminal() {
		return pkgerrors.Wrapf(orderbookv1.ErrAlreadyTerminal, "order %s is %s", orderID, order.Status)
	}

	if order.Limit != nil {
		level := order.Limit
		if err := level.RemoveOrder(order); err != nil {
			ob.logger.Error(err, logger.Field{Key: "orderID", Value: orderID})
		}
		ob.dropLevelIfEmpty(level)
	}

	order.Status = orderbookv1.StatusCancelled
	ob.releaseHold(orderID)

	ob.logger.InfoContext(ctx, "order cancelled",
		logger.Field{Key: "orderID", Value: orderID},
		logger.Field{Key: "pair", Value: ob.pair.Symbol()},
	)

	return nil
}

// GetOrder returns a copy of the order with the given ID.
func (ob *Orderbook) GetOrder(orderID string) (*orderbookv1.Order, error) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	order, ok := ob.orders[orderID]
	if !ok {
		return nil, pkgerrors.Wrapf(orderbookv1.ErrOrderNotFound, "order %s", orderID)
	}

	copied := *order
	copied.Limit = nil
	return &copied, nil
}

// Depth aggregates up to levels price levels per side, best first.
func (ob *Orderbook) Depth(levels int) orderbookv1.Depth {
	if levels <= 0 || levels > orderbookv1.MaxDepthLevels {
		levels = orderbookv1.MaxDepthLevels
	}

	ob.mu.RLock()
	defer ob.mu.RUnlock()

	depth := orderbookv1.Depth{Pair: ob.pair.Symbol()}
	for i, level := range ob.sortedBidsLocked() {
		if i >= levels {
			break
		}
		depth.Bids = append(depth.Bids, orderbookv1.DepthLevel{
			Price:  level.Price,
			Volume: level.GetTotalVolume(),
			Orders: level.OrderCount(),
		})
	}
	for i, level := range ob.sortedAsksLocked() {
		if i >= levels {
			break
		}
		depth.Asks = append(depth.Asks, orderbookv1.DepthLevel{
			Price:  level.Price,
			Volume: level.GetTotalVolume(),
			Orders: level.OrderCount(),
		})
	}

	return depth
}

// Asks returns the ask levels sorted best (lowest) first.
func (ob *Orderbook) Asks() []*orderbookv1.Limit {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.sortedAsksLocked()
}

// Bids returns the bid levels sorted best (highest) first.
func (ob *Orderbook) Bids() []*orderbookv1.Limit {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.sortedBidsLocked()
}

// AskTotalVolume sums the resting ask volume.
func (ob *Orderbook) AskTotalVolume() decimal.Decimal {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	total := decimal.Zero
	for _, level := range ob.asks {
		total = total.Add(level.GetTotalVolume())
	}
	return total
}

// BidTotalVolume sums the resting bid volume.
func (ob *Orderbook) BidTotalVolume() decimal.Decimal {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	total := decimal.Zero
	for _, level := range ob.bids {
		total = total.Add(level.GetTotalVolume())
	}
	return total
}

// CreateSnapshot captures the resting orders and sequence counters.
func (ob *Orderbook) CreateSnapshot() snapshotv1.OrderBookSnapshot {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	snapshot := snapshotv1.OrderBookSnapshot{
		OrderSequence: ob.sequence,
	}

	for _, order := range ob.orders {
		if order.Status.IsTerminal() {
			continue
		}
		snapshot.Orders = append(snapshot.Orders, snapshotv1.BookOrder{
			OrderID:        order.ID,
			Account:        order.Account,
			Type:           string(order.Type),
			Bid:            order.Bid,
			Amount:         order.Amount,
			OriginalAmount: order.OriginalAmount,
			Price:          order.Price,
			Status:         string(order.Status),
			Timestamp:      order.Timestamp,
			Sequence:       order.Sequence,
		})
	}
	sort.Slice(snapshot.Orders, func(i, j int) bool {
		return snapshot.Orders[i].Sequence < snapshot.Orders[j].Sequence
	})

	return snapshot
}

// RestoreOrderbook reinstates resting orders from a snapshot. Escrow holds
// are restored by the ledger, not here.
func (ob *Orderbook) RestoreOrderbook(book snapshotv1.OrderBookSnapshot) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.asks = make(map[string]*orderbookv1.Limit)
	ob.bids = make(map[string]*orderbookv1.Limit)
	ob.orders = make(map[string]*orderbookv1.Order)
	ob.sequence = book.OrderSequence

	for _, record := range book.Orders {
		order := &orderbookv1.Order{
			ID:             record.OrderID,
			Account:        record.Account,
			Type:           orderbookv1.OrderType(record.Type),
			Bid:            record.Bid,
			Amount:         record.Amount,
			OriginalAmount: record.OriginalAmount,
			Price:          record.Price,
			Status:         orderbookv1.Status(record.Status),
			Timestamp:      record.Timestamp,
			Sequence:       record.Sequence,
		}
		ob.orders[order.ID] = order
		ob.restOrder(order)
	}

	return nil
}

func (ob *Orderbook) nextSequence() int64 {
	ob.sequence++
	return ob.sequence
}

func (ob *Orderbook) dropLevelIfEmpty(level *orderbookv1.Limit) {
	if !level.IsEmpty() {
		return
	}
	key := level.Price.String()
	if l, ok := ob.asks[key]; ok && l == level {
		delete(ob.asks, key)
	}
	if l, ok := ob.bids[key]; ok && l == level {
		delete(ob.bids, key)
	}
}

// sortedAsksLocked returns ask levels best first. Callers hold the mutex.
func (ob *Orderbook) sortedAsksLocked() []*orderbookv1.Limit {
	levels := make(orderbookv1.Limits, 0, len(ob.asks))
	for _, level := range ob.asks {
		levels = append(levels, level)
	}
	sort.Sort(orderbookv1.ByBestAsk{Limits: levels})
	return levels
}

// sortedBidsLocked returns bid levels best first. Callers hold the mutex.
func (ob *Orderbook) sortedBidsLocked() []*orderbookv1.Limit {
	levels := make(orderbookv1.Limits, 0, len(ob.bids))
	for _, level := range ob.bids {
		levels = append(levels, level)
	}
	sort.Sort(orderbookv1.ByBestBid{Limits: levels})
	return levels
}
