package snapshotv1

import (
	"github.com/shopspring/decimal"

	ammv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/amm/v1"
	ledgerv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/ledger/v1"
	tradev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/trade/v1"
)

// CurrentVersion is the snapshot format version this build reads and
// writes. Loading any other version fails.
const CurrentVersion = 1

// Snapshot is the durable state of one engine pair at a point in time.
type Snapshot struct {
	Version     int                      `json:"version"`
	Pair        string                   `json:"pair"`
	OrderOffset int64                    `json:"orderOffset"`
	CreatedAt   int64                    `json:"createdAt"`
	Book        OrderBookSnapshot        `json:"book"`
	Accounts    []ledgerv1.AccountRecord `json:"accounts"`
	Trades      []tradev1.Trade          `json:"trades"`
	Pool        *ammv1.PoolRecord        `json:"pool,omitempty"`
}

// OrderBookSnapshot represents the state of the order book at a specific
// point in time.
type OrderBookSnapshot struct {
	Orders        []BookOrder `json:"orders"`
	OrderSequence int64       `json:"orderSequence"`
	TradeSequence int64       `json:"tradeSequence"`
}

// BookOrder represents a resting order in the order book with its details.
type BookOrder struct {
	OrderID        string          `json:"orderID"`
	Account        string          `json:"account"`
	Type           string          `json:"type"`
	Bid            bool            `json:"bid"`
	Amount         decimal.Decimal `json:"amount"`
	OriginalAmount decimal.Decimal `json:"originalAmount"`
	Price          decimal.Decimal `json:"price"`
	Status         string          `json:"status"`
	Timestamp      int64           `json:"timestamp"`
	Sequence       int64           `json:"sequence"`
}
