package marketmakerv1

import (
	"github.com/shopspring/decimal"

	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
)

// DefaultSpreadBps is the half-spread applied around the reference price
// when a maker does not configure one.
const DefaultSpreadBps = 50

// MakerConfig describes one market-maker strategy instance.
type MakerConfig struct {
	ID           string          `json:"id"`
	Account      string          `json:"account"`
	Pair         assetv1.Pair    `json:"pair"`
	SpreadBps    int64           `json:"spreadBps"`
	SizeFraction decimal.Decimal `json:"sizeFraction"` // fraction of available balance quoted per side
	Active       bool            `json:"active"`
}

// Stats tracks a maker's cumulative activity.
type Stats struct {
	QuotesPlaced   int64           `json:"quotesPlaced"`
	QuotesFailed   int64           `json:"quotesFailed"`
	TradesExecuted int64           `json:"tradesExecuted"`
	BaseVolume     decimal.Decimal `json:"baseVolume"`
	QuoteVolume    decimal.Decimal `json:"quoteVolume"`
	FeesPaid       decimal.Decimal `json:"feesPaid"`
	LastQuoteAt    int64           `json:"lastQuoteAt"`
	LastError      string          `json:"lastError,omitempty"`
}
