package orderreader

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/anteyko-labs/TradeShield-sub000/pkg/config"
	"github.com/anteyko-labs/TradeShield-sub000/pkg/logger"

	orderbookv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/orderbook/v1"
	orderreaderv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/order-reader/v1"
)

// Reader consumes order requests from the order topic.
type Reader struct {
	kafkaReader *kafka.Reader
	logger      logger.Logger
}

var _ orderreaderv1.OrderReader = Reader{}

// NewReader creates a new Kafka reader for the order topic.
func NewReader(cfg config.KafkaConfig, log logger.Logger) Reader {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		Partition:   0,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})

	return Reader{
		kafkaReader: kafkaReader,
		logger:      log,
	}
}

// logError is a helper method to log errors consistently
func (r Reader) logError(err error, operation string) {
	r.logger.Error(err,
		logger.Field{Key: "error", Value: err.Error()},
		logger.Field{Key: "operation", Value: operation},
	)
}

// SetOffset sets the offset for the Kafka reader.
func (r Reader) SetOffset(offset int64) error {
	if err := r.kafkaReader.SetOffset(offset); err != nil {
		r.logError(err, "SetOffset")
		return err
	}
	return nil
}

// ReadMessage reads a message from the order topic and parses it as a
// placement request.
func (r Reader) ReadMessage(ctx context.Context) (kafka.Message, orderbookv1.PlaceOrderRequest, error) {
	msg, err := r.kafkaReader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logError(err, "ReadMessage")
		}
		return kafka.Message{Offset: 0}, orderbookv1.PlaceOrderRequest{}, err
	}

	var request orderbookv1.PlaceOrderRequest
	if err := json.Unmarshal(msg.Value, &request); err != nil {
		r.logError(err, "UnmarshalOrder")
		return kafka.Message{Offset: 0}, orderbookv1.PlaceOrderRequest{}, err
	}

	r.logger.Info("ReadMessage",
		logger.Field{
			Key:   "account",
			Value: request.Account,
		},
		logger.Field{
			Key:   "amount",
			Value: request.Amount.String(),
		},
		logger.Field{
			Key:   "price",
			Value: request.Price.String(),
		},
		logger.Field{
			Key:   "type",
			Value: request.Type,
		},
		logger.Field{
			Key:   "bid",
			Value: request.Bid,
		},
	)

	request.Offset = msg.Offset

	return msg, request, nil
}

// Close properly closes the Kafka reader.
func (r Reader) Close() error {
	if err := r.kafkaReader.Close(); err != nil {
		r.logError(err, "Close")
		return err
	}
	return nil
}

// CommitMessages commits the messages to Kafka after processing.
func (r Reader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if err := r.kafkaReader.CommitMessages(ctx, msgs...); err != nil {
		r.logError(err, "CommitMessages")
		return err
	}
	return nil
}
