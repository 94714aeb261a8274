package ledgerv1

import "github.com/pkg/errors"

var (
	// ErrInsufficientFunds is returned when an account's available balance
	// cannot cover a freeze or a direct debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrHoldNotFound is returned when no hold exists for the given order ID.
	ErrHoldNotFound = errors.New("hold not found")

	// ErrAccountNotFound is returned when the account has never been
	// registered with the ledger.
	ErrAccountNotFound = errors.New("account not found")
)
