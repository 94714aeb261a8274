package chain

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
	chainv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/chain/v1"
)

// StaticClient serves configured on-chain balances. It stands in for a real
// chain gateway when provisioning accounts locally.
type StaticClient struct {
	mu       sync.RWMutex
	balances map[string]map[assetv1.Asset]decimal.Decimal
}

var _ chainv1.Client = (*StaticClient)(nil)

// NewStaticClient creates a client with no balances.
func NewStaticClient() *StaticClient {
	return &StaticClient{
		balances: make(map[string]map[assetv1.Asset]decimal.Decimal),
	}
}

// SetBalance records the on-chain balance for an account and asset.
func (c *StaticClient) SetBalance(account string, asset assetv1.Asset, amount decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.balances[account] == nil {
		c.balances[account] = make(map[assetv1.Asset]decimal.Decimal)
	}
	c.balances[account][asset] = amount
}

// BalanceOf returns the account's on-chain balance for the asset. Unknown
// accounts and assets read as zero.
func (c *StaticClient) BalanceOf(ctx context.Context, account string, asset assetv1.Asset) (decimal.Decimal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.balances[account][asset], nil
}
