package orderbookv1

import "github.com/pkg/errors"

var (
	// ErrNilOrder is returned when a nil order reaches the book.
	ErrNilOrder = errors.New("order cannot be nil")

	// ErrInvalidPrice is returned for non-positive limit prices.
	ErrInvalidPrice = errors.New("price must be positive")

	// ErrBelowMinNotional is returned when amount times price truncates to
	// zero at the quote asset's precision. Such an order could never settle
	// a positive quote leg.
	ErrBelowMinNotional = errors.New("order notional below minimum")

	// ErrOrderNotFound is returned when the order ID is unknown to the book.
	ErrOrderNotFound = errors.New("order not found")

	// ErrDuplicateOrder is returned when an order ID is already tracked.
	ErrDuplicateOrder = errors.New("order already exists")

	// ErrAlreadyTerminal is returned when cancelling a filled or cancelled
	// order.
	ErrAlreadyTerminal = errors.New("order already terminal")
)
