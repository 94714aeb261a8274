package tradev1

import (
	"github.com/shopspring/decimal"

	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
)

// CounterpartyAMM marks the maker side of a trade executed against a
// liquidity pool instead of a resting order.
const CounterpartyAMM = "amm"

// Trade is a settled execution. Trades are append-only: once recorded they
// are never mutated.
type Trade struct {
	ID           string          `json:"id"`
	Pair         string          `json:"pair"`
	MakerOrderID string          `json:"makerOrderID"`
	TakerOrderID string          `json:"takerOrderID"`
	MakerAccount string          `json:"makerAccount,omitempty"`
	TakerAccount string          `json:"takerAccount"`
	TakerSide    string          `json:"takerSide"`
	Asset        assetv1.Asset   `json:"asset"`
	Amount       decimal.Decimal `json:"amount"`
	Price        decimal.Decimal `json:"price"`
	Fee          decimal.Decimal `json:"fee"`
	Timestamp    int64           `json:"timestamp"`
}

// QuoteVolume returns the trade volume in the quote asset.
func (t Trade) QuoteVolume() decimal.Decimal {
	return t.Amount.Mul(t.Price)
}

// Involves reports whether the account took part in the trade.
func (t Trade) Involves(account string) bool {
	return t.MakerAccount == account || t.TakerAccount == account
}
