package orderbookv1

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
)

// Limit represents a price level in the order book with associated orders.
// Fills at this level always execute at the level's price, which is the
// resting (maker) order's price.
type Limit struct {
	Price       decimal.Decimal `json:"price"`
	Orders      []*Order        `json:"orders"`
	TotalVolume decimal.Decimal `json:"totalVolume"`
	mu          sync.RWMutex
}

// NewLimit creates a new Limit with the specified price.
func NewLimit(price decimal.Decimal) *Limit {
	return &Limit{
		Price:       price,
		Orders:      make([]*Order, 0),
		TotalVolume: decimal.Zero,
	}
}

// AddOrder adds an order to the limit and updates the total volume.
func (l *Limit) AddOrder(order *Order) error {
	if order == nil {
		return ErrNilOrder
	}
	if !order.Amount.IsPositive() {
		return errors.Wrapf(assetv1.ErrInvalidAmount, "got %s", order.Amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	order.Limit = l
	l.Orders = append(l.Orders, order)
	l.TotalVolume = l.TotalVolume.Add(order.Amount)

	return nil
}

// RemoveOrder removes an order from the limit and updates the total volume.
func (l *Limit) RemoveOrder(order *Order) error {
	if order == nil {
		return ErrNilOrder
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for i, o := range l.Orders {
		if o == order {
			l.Orders = append(l.Orders[:i], l.Orders[i+1:]...)
			l.TotalVolume = l.TotalVolume.Sub(order.Amount)
			order.Limit = nil
			return nil
		}
	}

	return errors.Wrapf(ErrOrderNotFound, "order %s at limit %s", order.ID, l.Price)
}

// Fill matches the limit's resting orders against an incoming order in
// price/time priority and returns the matches. Resting orders that fill
// completely are removed from the level.
//
// A prospective fill whose cost at the level's price truncates to zero at
// quoteScale is skipped without touching either order: settling it would
// hand over base with no quote coming back.
func (l *Limit) Fill(incomingOrder *Order, quoteScale int32) []Match {
	if incomingOrder == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var matches []Match

	ordersToProcess := make([]*Order, len(l.Orders))
	copy(ordersToProcess, l.Orders)
	sort.Slice(ordersToProcess, func(i, j int) bool {
		if ordersToProcess[i].Timestamp == ordersToProcess[j].Timestamp {
			return ordersToProcess[i].Sequence < ordersToProcess[j].Sequence
		}
		return ordersToProcess[i].Timestamp < ordersToProcess[j].Timestamp
	})

	var ordersToRemove []*Order

	for _, existingOrder := range ordersToProcess {
		if !incomingOrder.Amount.IsPositive() {
			break
		}

		fill := decimal.Min(incomingOrder.Amount, existingOrder.Amount)
		if !fill.Mul(l.Price).Truncate(quoteScale).IsPositive() {
			continue
		}

		match := l.createMatch(incomingOrder, existingOrder)
		matches = append(matches, match)

		l.TotalVolume = l.TotalVolume.Sub(match.AmountFilled)

		if existingOrder.IsFilled() {
			ordersToRemove = append(ordersToRemove, existingOrder)
		}
	}

	for _, orderToRemove := range ordersToRemove {
		l.removeOrderUnsafe(orderToRemove)
	}

	return matches
}

// createMatch executes a fill between the incoming and a resting order at
// the level's price, advancing both order statuses.
func (l *Limit) createMatch(incomingOrder, existingOrder *Order) Match {
	var bid, ask *Order
	var amountFilled decimal.Decimal

	if incomingOrder.IsBid() {
		bid = incomingOrder
		ask = existingOrder
	} else {
		bid = existingOrder
		ask = incomingOrder
	}

	if incomingOrder.Amount.GreaterThanOrEqual(existingOrder.Amount) {
		amountFilled = existingOrder.Amount
	} else {
		amountFilled = incomingOrder.Amount
	}

	incomingOrder.Amount = incomingOrder.Amount.Sub(amountFilled)
	existingOrder.Amount = existingOrder.Amount.Sub(amountFilled)
	advanceStatus(incomingOrder)
	advanceStatus(existingOrder)

	return Match{
		Ask:          ask,
		Bid:          bid,
		Maker:        existingOrder,
		Taker:        incomingOrder,
		AmountFilled: amountFilled,
		Price:        l.Price,
	}
}

func advanceStatus(order *Order) {
	if order.IsFilled() {
		order.Status = StatusFilled
		return
	}
	order.Status = StatusPartiallyFilled
}

// removeOrderUnsafe removes order without locking (internal use)
func (l *Limit) removeOrderUnsafe(order *Order) {
	for i, o := range l.Orders {
		if o == order {
			l.Orders = append(l.Orders[:i], l.Orders[i+1:]...)
			order.Limit = nil
			break
		}
	}
}

// IsEmpty checks if the limit has no orders
func (l *Limit) IsEmpty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.Orders) == 0
}

// OrderCount returns the number of orders at this limit
func (l *Limit) OrderCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.Orders)
}

// GetTotalVolume returns the total volume at this limit
func (l *Limit) GetTotalVolume() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.TotalVolume
}

// GetOrders returns a copy of the orders slice
func (l *Limit) GetOrders() []*Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	orders := make([]*Order, len(l.Orders))
	copy(orders, l.Orders)
	return orders
}

// GetOrdersByPriority returns orders sorted by timestamp then sequence
func (l *Limit) GetOrdersByPriority() []*Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	orders := make([]*Order, len(l.Orders))
	copy(orders, l.Orders)

	sort.Slice(orders, func(i, j int) bool {
		if orders[i].Timestamp == orders[j].Timestamp {
			return orders[i].Sequence < orders[j].Sequence
		}
		return orders[i].Timestamp < orders[j].Timestamp
	})

	return orders
}

// Validate performs basic validation of the limit's state
func (l *Limit) Validate() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.Price.IsPositive() {
		return errors.Wrapf(ErrInvalidPrice, "limit price %s", l.Price)
	}

	calculatedVolume := decimal.Zero
	for _, order := range l.Orders {
		if order == nil {
			return ErrNilOrder
		}
		if order.Amount.IsNegative() {
			return errors.Wrapf(assetv1.ErrInvalidAmount, "order %s has amount %s", order.ID, order.Amount)
		}
		calculatedVolume = calculatedVolume.Add(order.Amount)
	}

	if !calculatedVolume.Equal(l.TotalVolume) {
		return errors.Errorf("volume mismatch: calculated %s, stored %s", calculatedVolume, l.TotalVolume)
	}

	return nil
}
