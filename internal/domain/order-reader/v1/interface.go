package orderreaderv1

import (
	"context"

	"github.com/segmentio/kafka-go"

	orderbookv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/orderbook/v1"
)

// OrderReader defines the interface for reading orders from a source.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=orderreaderv1_mock
type OrderReader interface {
	// ReadMessage reads a message and returns the parsed order request
	ReadMessage(ctx context.Context) (kafka.Message, orderbookv1.PlaceOrderRequest, error)
	// SetOffset sets the offset for the reader
	SetOffset(offset int64) error
	// Close closes the reader
	Close() error

	// CommitMessages commits the messages to Kafka after processing
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}
