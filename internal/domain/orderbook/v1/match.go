package orderbookv1

import "github.com/shopspring/decimal"

// Match represents a fill between an ask and a bid order. Price is always
// the resting (maker) order's limit price.
type Match struct {
	Ask          *Order          `json:"ask"`
	Bid          *Order          `json:"bid"`
	Maker        *Order          `json:"-"`
	Taker        *Order          `json:"-"`
	AmountFilled decimal.Decimal `json:"amountFilled"`
	Price        decimal.Decimal `json:"price"`
}

// QuoteVolume returns the quote-asset volume of the match.
func (m Match) QuoteVolume() decimal.Decimal {
	return m.AmountFilled.Mul(m.Price)
}
