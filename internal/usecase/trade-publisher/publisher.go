package tradepublisher

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/anteyko-labs/TradeShield-sub000/pkg/config"
	"github.com/anteyko-labs/TradeShield-sub000/pkg/errors"
	"github.com/anteyko-labs/TradeShield-sub000/pkg/logger"

	tradepublisherv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/trade-publisher/v1"
	tradev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/trade/v1"
)

// Publisher represents a Kafka publisher for settled trade events.
type Publisher struct {
	kafkaWriter *kafka.Writer
	logger      logger.Logger
}

var _ tradepublisherv1.TradePublisher = (*Publisher)(nil)

// NewPublisher creates a new Kafka publisher for the trade topic.
func NewPublisher(cfg config.TradePublisherConfig, log logger.Logger) *Publisher {
	kafkaWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
	})

	return &Publisher{
		kafkaWriter: kafkaWriter,
		logger:      log,
	}
}

// PublishTradeEvent publishes a settled trade to the trade topic.
func (p *Publisher) PublishTradeEvent(ctx context.Context, trade *tradev1.Trade) error {
	msg := kafka.Message{
		Key:   []byte(trade.Pair),
		Value: tradepublisherv1.ToBytes(trade),
	}

	if err := p.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "error", Value: err.Error()},
			logger.Field{Key: "tradeID", Value: trade.ID},
		)
		return errors.NewTracer("failed to publish trade event").Wrap(err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.kafkaWriter.Close()
}
