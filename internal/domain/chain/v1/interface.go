package chainv1

import (
	"context"

	"github.com/shopspring/decimal"

	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
)

// Client reads on-chain balances used to provision ledger accounts.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=chainv1_mock
type Client interface {
	// BalanceOf returns the account's on-chain balance for the asset.
	BalanceOf(ctx context.Context, account string, asset assetv1.Asset) (decimal.Decimal, error)
}
