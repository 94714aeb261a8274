package ledger

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
	ledgerv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/ledger/v1"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newFundedLedger(t *testing.T, account string, asset assetv1.Asset, amount string) *Ledger {
	t.Helper()

	l := NewLedger()
	err := l.Register(account, map[assetv1.Asset]decimal.Decimal{asset: dec(amount)})
	require.NoError(t, err)

	return l
}

func TestLedger_FreezeSettleRelease(t *testing.T) {
	l := newFundedLedger(t, "alice", "USDT", "100")

	// 1. Freeze part of the balance
	err := l.Freeze("alice", "USDT", dec("95"), "order-1")
	require.NoError(t, err)

	balance, err := l.Balance("alice", "USDT")
	require.NoError(t, err)
	assert.True(t, balance.Available.Equal(dec("5")), "available should be 5, got %s", balance.Available)
	assert.True(t, balance.Frozen.Equal(dec("95")))
	assert.True(t, balance.Total.Equal(dec("100")))

	// 2. Settle part of the hold
	err = l.Settle("order-1", dec("60"))
	require.NoError(t, err)

	balance, err = l.Balance("alice", "USDT")
	require.NoError(t, err)
	assert.True(t, balance.Available.Equal(dec("5")))
	assert.True(t, balance.Frozen.Equal(dec("35")))
	assert.True(t, balance.Total.Equal(dec("40")))

	// 3. Release the remainder of the hold
	err = l.Release("order-1")
	require.NoError(t, err)

	balance, err = l.Balance("alice", "USDT")
	require.NoError(t, err)
	assert.True(t, balance.Available.Equal(dec("40")))
	assert.True(t, balance.Frozen.IsZero())
	assert.True(t, balance.Total.Equal(dec("40")))

	// 4. Hold is gone
	_, err = l.Hold("order-1")
	assert.ErrorIs(t, err, ledgerv1.ErrHoldNotFound)
}

func TestLedger_FreezeInsufficientFunds(t *testing.T) {
	l := newFundedLedger(t, "alice", "USDT", "10")

	err := l.Freeze("alice", "USDT", dec("10.000001"), "order-1")
	assert.ErrorIs(t, err, ledgerv1.ErrInsufficientFunds)

	// Frozen funds do not count as available for a second freeze
	require.NoError(t, l.Freeze("alice", "USDT", dec("8"), "order-2"))
	err = l.Freeze("alice", "USDT", dec("3"), "order-3")
	assert.ErrorIs(t, err, ledgerv1.ErrInsufficientFunds)

	// Failed freeze leaves the ledger untouched
	balance, err := l.Balance("alice", "USDT")
	require.NoError(t, err)
	assert.True(t, balance.Available.Equal(dec("2")))
	assert.True(t, balance.Frozen.Equal(dec("8")))
}

func TestLedger_SettleExceedsHold(t *testing.T) {
	l := newFundedLedger(t, "alice", "BTC", "1")
	require.NoError(t, l.Freeze("alice", "BTC", dec("0.5"), "order-1"))

	err := l.Settle("order-1", dec("0.6"))
	assert.ErrorIs(t, err, assetv1.ErrInvalidAmount)

	// Hold unchanged after the failed settle
	hold, err := l.Hold("order-1")
	require.NoError(t, err)
	assert.True(t, hold.Amount.Equal(dec("0.5")))
}

func TestLedger_DuplicateHold(t *testing.T) {
	l := newFundedLedger(t, "alice", "USDT", "100")
	require.NoError(t, l.Freeze("alice", "USDT", dec("10"), "order-1"))

	err := l.Freeze("alice", "USDT", dec("10"), "order-1")
	assert.ErrorIs(t, err, assetv1.ErrInvalidAmount)
}

func TestLedger_InvalidAmounts(t *testing.T) {
	l := newFundedLedger(t, "alice", "USDT", "100")

	tests := []struct {
		name   string
		asset  assetv1.Asset
		amount string
	}{
		{name: "zero", asset: "USDT", amount: "0"},
		{name: "negative", asset: "USDT", amount: "-1"},
		{name: "too many decimals for USDT", asset: "USDT", amount: "1.0000001"},
		{name: "too many decimals for BTC", asset: "BTC", amount: "0.000000001"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := l.Freeze("alice", tc.asset, dec(tc.amount), "order-"+tc.name)
			assert.ErrorIs(t, err, assetv1.ErrInvalidAmount)

			err = l.Credit("alice", tc.asset, dec(tc.amount))
			assert.ErrorIs(t, err, assetv1.ErrInvalidAmount)
		})
	}

	// Eight decimals is fine for BTC
	assert.NoError(t, l.Credit("alice", "BTC", dec("0.00000001")))
}

func TestLedger_UnknownAccountAndHold(t *testing.T) {
	l := NewLedger()

	_, err := l.Balance("ghost", "USDT")
	assert.ErrorIs(t, err, ledgerv1.ErrAccountNotFound)

	err = l.Freeze("ghost", "USDT", dec("1"), "order-1")
	assert.ErrorIs(t, err, ledgerv1.ErrAccountNotFound)

	assert.ErrorIs(t, l.Release("nope"), ledgerv1.ErrHoldNotFound)
	assert.ErrorIs(t, l.Settle("nope", dec("1")), ledgerv1.ErrHoldNotFound)
}

func TestLedger_SnapshotRestoreRoundTrip(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Register("alice", map[assetv1.Asset]decimal.Decimal{"USDT": dec("100"), "BTC": dec("2")}))
	require.NoError(t, l.Register("bob", map[assetv1.Asset]decimal.Decimal{"USDT": dec("50")}))
	require.NoError(t, l.Freeze("alice", "USDT", dec("30"), "order-1"))
	require.NoError(t, l.Freeze("bob", "USDT", dec("50"), "order-2"))
	require.NoError(t, l.Settle("order-2", dec("20")))

	records := l.Snapshot()
	require.Len(t, records, 2)

	restored := NewLedger()
	require.NoError(t, restored.Restore(records))

	for _, account := range []string{"alice", "bob"} {
		want, err := l.Balances(account)
		require.NoError(t, err)
		got, err := restored.Balances(account)
		require.NoError(t, err)
		require.Equal(t, len(want), len(got))
		for i := range want {
			assert.True(t, want[i].Total.Equal(got[i].Total))
			assert.True(t, want[i].Frozen.Equal(got[i].Frozen))
		}
	}

	// Holds survive the round trip and can still be settled
	require.NoError(t, restored.Settle("order-2", dec("30")))
	balance, err := restored.Balance("bob", "USDT")
	require.NoError(t, err)
	assert.True(t, balance.Frozen.IsZero())
	assert.True(t, balance.Total.Equal(dec("0")))
}

// TestLedger_RandomizedInvariant hammers one ledger with random operations
// and checks the balance invariants after every step: available plus frozen
// equals total, and the sum of holds per asset equals the frozen amount.
func TestLedger_RandomizedInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	l := NewLedger()

	accounts := []string{"alice", "bob", "carol"}
	assets := []assetv1.Asset{"BTC", "USDT"}
	for _, account := range accounts {
		require.NoError(t, l.Register(account, map[assetv1.Asset]decimal.Decimal{
			"BTC":  dec("10"),
			"USDT": dec("100000"),
		}))
	}

	type holdRef struct {
		orderID string
		account string
		asset   assetv1.Asset
	}
	var open []holdRef
	next := 0

	for i := 0; i < 5000; i++ {
		switch rng.Intn(4) {
		case 0: // freeze
			account := accounts[rng.Intn(len(accounts))]
			asset := assets[rng.Intn(len(assets))]
			amount := decimal.NewFromInt(int64(rng.Intn(50) + 1)).Div(decimal.NewFromInt(100))
			amount = amount.Truncate(assetv1.Decimals(asset))
			next++
			orderID := fmt.Sprintf("order-%d", next)
			if err := l.Freeze(account, asset, amount, orderID); err == nil {
				open = append(open, holdRef{orderID: orderID, account: account, asset: asset})
			}
		case 1: // settle part of a random hold
			if len(open) == 0 {
				continue
			}
			ref := open[rng.Intn(len(open))]
			hold, err := l.Hold(ref.orderID)
			if err != nil {
				continue
			}
			part := hold.Amount.Div(decimal.NewFromInt(2)).Truncate(assetv1.Decimals(ref.asset))
			if !part.IsPositive() {
				part = hold.Amount
			}
			require.NoError(t, l.Settle(ref.orderID, part))
		case 2: // release a random hold
			if len(open) == 0 {
				continue
			}
			idx := rng.Intn(len(open))
			if err := l.Release(open[idx].orderID); err == nil {
				open = append(open[:idx], open[idx+1:]...)
			}
		case 3: // credit
			account := accounts[rng.Intn(len(accounts))]
			asset := assets[rng.Intn(len(assets))]
			require.NoError(t, l.Credit(account, asset, dec("0.5")))
		}

		// Drop fully settled holds from our tracking
		live := open[:0]
		for _, ref := range open {
			if _, err := l.Hold(ref.orderID); err == nil {
				live = append(live, ref)
			}
		}
		open = live

		assertInvariants(t, l, accounts)
		if t.Failed() {
			t.Fatalf("invariant broken at step %d", i)
		}
	}
}

func assertInvariants(t *testing.T, l *Ledger, accounts []string) {
	t.Helper()

	held := make(map[string]map[assetv1.Asset]decimal.Decimal)
	for _, record := range l.Snapshot() {
		for _, hold := range record.Holds {
			if held[record.Account] == nil {
				held[record.Account] = make(map[assetv1.Asset]decimal.Decimal)
			}
			held[record.Account][hold.Asset] = held[record.Account][hold.Asset].Add(hold.Amount)
		}
	}

	for _, account := range accounts {
		balances, err := l.Balances(account)
		require.NoError(t, err)
		for _, balance := range balances {
			assert.True(t, balance.Available.Add(balance.Frozen).Equal(balance.Total),
				"account %s asset %s: available %s + frozen %s != total %s",
				account, balance.Asset, balance.Available, balance.Frozen, balance.Total)
			assert.False(t, balance.Available.IsNegative(),
				"account %s asset %s: negative available %s", account, balance.Asset, balance.Available)
			assert.True(t, held[account][balance.Asset].Equal(balance.Frozen),
				"account %s asset %s: holds sum %s != frozen %s",
				account, balance.Asset, held[account][balance.Asset], balance.Frozen)
		}
	}
}

func TestLedger_ConcurrentAccountsIndependent(t *testing.T) {
	l := NewLedger()
	const workers = 16

	for i := 0; i < workers; i++ {
		account := fmt.Sprintf("account-%d", i)
		require.NoError(t, l.Register(account, map[assetv1.Asset]decimal.Decimal{"USDT": dec("1000")}))
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			account := fmt.Sprintf("account-%d", i)
			for j := 0; j < 200; j++ {
				orderID := fmt.Sprintf("order-%d-%d", i, j)
				if err := l.Freeze(account, "USDT", dec("1"), orderID); err != nil {
					continue
				}
				if j%2 == 0 {
					_ = l.Settle(orderID, dec("1"))
					_ = l.Credit(account, "USDT", dec("1"))
				} else {
					_ = l.Release(orderID)
				}
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		account := fmt.Sprintf("account-%d", i)
		balance, err := l.Balance(account, "USDT")
		require.NoError(t, err)
		assert.True(t, balance.Frozen.IsZero(), "account %s still has frozen %s", account, balance.Frozen)
		assert.True(t, balance.Total.Equal(dec("1000")), "account %s total %s", account, balance.Total)
	}
}
