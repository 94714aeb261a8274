package tradepublisherv1

import (
	"context"

	tradev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/trade/v1"
)

// TradePublisher defines the interface for publishing settled trades.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=tradepublisherv1_mock
type TradePublisher interface {
	// PublishTradeEvent publishes a settled trade to the trade topic.
	PublishTradeEvent(ctx context.Context, trade *tradev1.Trade) error
}
