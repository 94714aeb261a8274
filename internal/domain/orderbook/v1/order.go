package orderbookv1

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// OrderType represents the type of order.
type OrderType string

const (
	// OrderTypeMarket represents a market order.
	OrderTypeMarket OrderType = "market"
	// OrderTypeLimit represents a limit order.
	OrderTypeLimit OrderType = "limit"
	// OrderTypeCancel represents a cancel request.
	OrderTypeCancel OrderType = "cancel"
)

// Status represents the lifecycle state of an order.
type Status string

const (
	// StatusPending is an accepted order with no fills yet.
	StatusPending Status = "pending"
	// StatusPartiallyFilled is an order with at least one fill and
	// remaining amount.
	StatusPartiallyFilled Status = "partially_filled"
	// StatusFilled is a completely executed order. Terminal.
	StatusFilled Status = "filled"
	// StatusCancelled is an order cancelled before completion. Terminal.
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether the status allows no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusFilled || s == StatusCancelled
}

// Order represents a single order in the order book. Amount is the remaining
// unfilled base amount; OriginalAmount never changes after acceptance.
type Order struct {
	ID             string          `json:"id"`
	Account        string          `json:"account"`
	Type           OrderType       `json:"type"`
	Bid            bool            `json:"bid"`
	Amount         decimal.Decimal `json:"amount"`
	OriginalAmount decimal.Decimal `json:"originalAmount"`
	Price          decimal.Decimal `json:"price"` // zero for market orders
	Status         Status          `json:"status"`
	Limit          *Limit          `json:"-"`
	Timestamp      int64           `json:"timestamp"`
	Sequence       int64           `json:"sequence"`
}

// PlaceOrderRequest represents a request to place an order in the order book.
type PlaceOrderRequest struct {
	OrderID  string          `json:"orderID"`
	Account  string          `json:"account"`
	Type     OrderType       `json:"type"`
	Bid      bool            `json:"bid"`
	Amount   decimal.Decimal `json:"amount"`
	Price    decimal.Decimal `json:"price"`
	RouteAMM bool            `json:"routeAMM"`
	Offset   int64           `json:"-"` // position in the order stream
}

// NewOrder creates a new pending order with the given parameters.
func NewOrder(account string, amount decimal.Decimal, bid bool) *Order {
	return &Order{
		ID:             ulid.Make().String(),
		Account:        account,
		Type:           OrderTypeLimit,
		Bid:            bid,
		Amount:         amount,
		OriginalAmount: amount,
		Status:         StatusPending,
		Timestamp:      time.Now().UnixNano(),
	}
}

// IsBid checks if the order is a bid (buy) order.
func (o *Order) IsBid() bool {
	return o.Bid
}

// IsAsk checks if the order is an ask (sell) order.
func (o *Order) IsAsk() bool {
	return !o.Bid
}

// IsFilled checks if the order has no remaining amount.
func (o *Order) IsFilled() bool {
	return o.Amount.IsZero()
}

// FilledAmount returns the cumulative executed amount.
func (o *Order) FilledAmount() decimal.Decimal {
	return o.OriginalAmount.Sub(o.Amount)
}

// Side returns "buy" or "sell".
func (o *Order) Side() string {
	if o.Bid {
		return "buy"
	}
	return "sell"
}
