package ledgerv1

import (
	"github.com/shopspring/decimal"

	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
)

// Ledger tracks per-account asset balances and order escrow holds.
//
// Every mutation is atomic: it either applies fully or leaves the ledger
// unchanged. Frozen funds stay part of an account's total until settled.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=ledgerv1_mock
type Ledger interface {
	// Register creates an account if it does not exist and credits the
	// given seed balances.
	Register(account string, seeds map[assetv1.Asset]decimal.Decimal) error

	// Balance returns the balance triple for one asset. Unknown assets
	// report zero balances.
	Balance(account string, asset assetv1.Asset) (Balance, error)

	// Balances returns all non-zero balances of an account sorted by asset.
	Balances(account string) ([]Balance, error)

	// Freeze moves amount from available to frozen and records a hold
	// keyed by orderID.
	Freeze(account string, asset assetv1.Asset, amount decimal.Decimal, orderID string) error

	// Release returns the entire remaining hold for orderID to the
	// account's available balance and removes the hold.
	Release(orderID string) error

	// Settle consumes amount from the hold for orderID, reducing the
	// account's frozen and total balances. A fully consumed hold is
	// removed.
	Settle(orderID string, amount decimal.Decimal) error

	// Credit adds amount to an account's available balance.
	Credit(account string, asset assetv1.Asset, amount decimal.Decimal) error

	// Hold returns the hold recorded for orderID.
	Hold(orderID string) (Hold, error)

	// Snapshot returns a deep copy of all account state.
	Snapshot() []AccountRecord

	// Restore replaces all account state with the given records.
	Restore(records []AccountRecord) error
}
