package trade

import (
	"time"

	"github.com/shopspring/decimal"

	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
	tradev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/trade/v1"
)

// Row is the archived form of a trade.
type Row struct {
	ID           string          `json:"id"`
	Pair         string          `json:"pair"`
	MakerOrderID string          `json:"makerOrderID"`
	TakerOrderID string          `json:"takerOrderID"`
	MakerAccount string          `json:"makerAccount"`
	TakerAccount string          `json:"takerAccount"`
	TakerSide    string          `json:"takerSide"`
	Asset        string          `json:"asset"`
	Amount       decimal.Decimal `json:"amount"`
	Price        decimal.Decimal `json:"price"`
	Fee          decimal.Decimal `json:"fee"`
	ExecutedAt   time.Time       `json:"executedAt"`
}

// FromTrade converts a settled trade into its archive row.
func (r *Row) FromTrade(trade *tradev1.Trade) {
	r.ID = trade.ID
	r.Pair = trade.Pair
	r.MakerOrderID = trade.MakerOrderID
	r.TakerOrderID = trade.TakerOrderID
	r.MakerAccount = trade.MakerAccount
	r.TakerAccount = trade.TakerAccount
	r.TakerSide = trade.TakerSide
	r.Asset = string(trade.Asset)
	r.Amount = trade.Amount
	r.Price = trade.Price
	r.Fee = trade.Fee
	r.ExecutedAt = time.Unix(0, trade.Timestamp).UTC()
}

// ToTrade converts an archive row back to a trade.
func (r *Row) ToTrade() tradev1.Trade {
	return tradev1.Trade{
		ID:           r.ID,
		Pair:         r.Pair,
		MakerOrderID: r.MakerOrderID,
		TakerOrderID: r.TakerOrderID,
		MakerAccount: r.MakerAccount,
		TakerAccount: r.TakerAccount,
		TakerSide:    r.TakerSide,
		Asset:        assetv1.Asset(r.Asset),
		Amount:       r.Amount,
		Price:        r.Price,
		Fee:          r.Fee,
		Timestamp:    r.ExecutedAt.UnixNano(),
	}
}
