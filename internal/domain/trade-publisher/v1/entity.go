package tradepublisherv1

import (
	"encoding/json"

	tradev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/trade/v1"
)

// ToBytes converts the trade to its wire representation.
func ToBytes(trade *tradev1.Trade) []byte {
	payload, err := json.Marshal(trade)
	if err != nil {
		return nil
	}

	return payload
}

// FromBytes converts a byte array back to a trade.
func FromBytes(data []byte) *tradev1.Trade {
	var trade tradev1.Trade
	if err := json.Unmarshal(data, &trade); err != nil {
		return nil
	}
	return &trade
}
