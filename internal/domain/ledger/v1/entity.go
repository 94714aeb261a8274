package ledgerv1

import (
	"github.com/shopspring/decimal"

	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
)

// Balance is the per-asset view of an account. Available and Frozen always
// sum to Total.
type Balance struct {
	Asset     assetv1.Asset   `json:"asset"`
	Available decimal.Decimal `json:"available"`
	Frozen    decimal.Decimal `json:"frozen"`
	Total     decimal.Decimal `json:"total"`
}

// Hold is an escrow reservation tied to a single order. At most one hold
// exists per order ID.
type Hold struct {
	OrderID   string          `json:"orderID"`
	Account   string          `json:"account"`
	Asset     assetv1.Asset   `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt int64           `json:"createdAt"`
}

// AccountRecord is the serializable state of one account, used by snapshots.
type AccountRecord struct {
	Account  string            `json:"account"`
	Balances []Balance         `json:"balances"`
	Holds    []Hold            `json:"holds"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
