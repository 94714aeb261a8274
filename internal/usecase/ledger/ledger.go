package ledger

import (
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
	ledgerv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/ledger/v1"
)

// shardCount spreads account locks so unrelated accounts never contend.
const shardCount = 32

type accountState struct {
	totals map[assetv1.Asset]decimal.Decimal
	frozen map[assetv1.Asset]decimal.Decimal
}

func newAccountState() *accountState {
	return &accountState{
		totals: make(map[assetv1.Asset]decimal.Decimal),
		frozen: make(map[assetv1.Asset]decimal.Decimal),
	}
}

func (s *accountState) available(asset assetv1.Asset) decimal.Decimal {
	return s.totals[asset].Sub(s.frozen[asset])
}

type shard struct {
	mu       sync.RWMutex
	accounts map[string]*accountState
}

// Ledger is an in-memory, shard-locked implementation of ledgerv1.Ledger.
//
// Lock order is holds before shard; every mutation touching both a hold and
// a balance runs under both locks so the frozen/hold invariant never has an
// observable gap.
type Ledger struct {
	shards [shardCount]*shard

	holdMu sync.RWMutex
	holds  map[string]*ledgerv1.Hold
}

var _ ledgerv1.Ledger = (*Ledger)(nil)

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	l := &Ledger{
		holds: make(map[string]*ledgerv1.Hold),
	}
	for i := range l.shards {
		l.shards[i] = &shard{accounts: make(map[string]*accountState)}
	}
	return l
}

func (l *Ledger) shardFor(account string) *shard {
	h := fnv.New32a()
	h.Write([]byte(account))
	return l.shards[h.Sum32()%shardCount]
}

// Register creates an account if it does not exist and credits the given
// seed balances.
func (l *Ledger) Register(account string, seeds map[assetv1.Asset]decimal.Decimal) error {
	normalized := make(map[assetv1.Asset]decimal.Decimal, len(seeds))
	for asset, amount := range seeds {
		if amount.IsZero() {
			continue
		}
		amt, err := assetv1.Normalize(asset, amount)
		if err != nil {
			return err
		}
		normalized[asset] = amt
	}

	sh := l.shardFor(account)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, ok := sh.accounts[account]
	if !ok {
		state = newAccountState()
		sh.accounts[account] = state
	}
	for asset, amount := range normalized {
		state.totals[asset] = state.totals[asset].Add(amount)
	}

	return nil
}

// Balance returns the balance triple for one asset.
func (l *Ledger) Balance(account string, asset assetv1.Asset) (ledgerv1.Balance, error) {
	sh := l.shardFor(account)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	state, ok := sh.accounts[account]
	if !ok {
		return ledgerv1.Balance{}, errors.Wrapf(ledgerv1.ErrAccountNotFound, "account %s", account)
	}

	return ledgerv1.Balance{
		Asset:     asset,
		Available: state.available(asset),
		Frozen:    state.frozen[asset],
		Total:     state.totals[asset],
	}, nil
}

// Balances returns all non-zero balances of an account sorted by asset.
func (l *Ledger) Balances(account string) ([]ledgerv1.Balance, error) {
	sh := l.shardFor(account)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	state, ok := sh.accounts[account]
	if !ok {
		return nil, errors.Wrapf(ledgerv1.ErrAccountNotFound, "account %s", account)
	}

	balances := make([]ledgerv1.Balance, 0, len(state.totals))
	for asset, total := range state.totals {
		if total.IsZero() && state.frozen[asset].IsZero() {
			continue
		}
		balances = append(balances, ledgerv1.Balance{
			Asset:     asset,
			Available: state.available(asset),
			Frozen:    state.frozen[asset],
			Total:     total,
		})
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].Asset < balances[j].Asset })

	return balances, nil
}

// Freeze moves amount from available to frozen and records a hold keyed by
// orderID.
func (l *Ledger) Freeze(account string, asset assetv1.Asset, amount decimal.Decimal, orderID string) error {
	amt, err := assetv1.Normalize(asset, amount)
	if err != nil {
		return err
	}

	l.holdMu.Lock()
	defer l.holdMu.Unlock()

	if _, exists := l.holds[orderID]; exists {
		return errors.Wrapf(assetv1.ErrInvalidAmount, "hold for order %s already exists", orderID)
	}

	sh := l.shardFor(account)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, ok := sh.accounts[account]
	if !ok {
		return errors.Wrapf(ledgerv1.ErrAccountNotFound, "account %s", account)
	}
	if state.available(asset).LessThan(amt) {
		return errors.Wrapf(ledgerv1.ErrInsufficientFunds,
			"account %s needs %s %s, available %s", account, amt, asset, state.available(asset))
	}

	state.frozen[asset] = state.frozen[asset].Add(amt)
	l.holds[orderID] = &ledgerv1.Hold{
		OrderID:   orderID,
		Account:   account,
		Asset:     asset,
		Amount:    amt,
		CreatedAt: time.Now().UnixNano(),
	}

	return nil
}

// Release returns the entire remaining hold for orderID to the account's
// available balance and removes the hold.
func (l *Ledger) Release(orderID string) error {
	l.holdMu.Lock()
	defer l.holdMu.Unlock()

	hold, ok := l.holds[orderID]
	if !ok {
		return errors.Wrapf(ledgerv1.ErrHoldNotFound, "order %s", orderID)
	}

	sh := l.shardFor(hold.Account)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state := sh.accounts[hold.Account]
	state.frozen[hold.Asset] = state.frozen[hold.Asset].Sub(hold.Amount)
	delete(l.holds, orderID)

	return nil
}

// Settle consumes amount from the hold for orderID, reducing the account's
// frozen and total balances.
func (l *Ledger) Settle(orderID string, amount decimal.Decimal) error {
	l.holdMu.Lock()
	defer l.holdMu.Unlock()

	hold, ok := l.holds[orderID]
	if !ok {
		return errors.Wrapf(ledgerv1.ErrHoldNotFound, "order %s", orderID)
	}

	amt, err := assetv1.Normalize(hold.Asset, amount)
	if err != nil {
		return err
	}
	if amt.GreaterThan(hold.Amount) {
		return errors.Wrapf(assetv1.ErrInvalidAmount,
			"settle %s exceeds hold %s for order %s", amt, hold.Amount, orderID)
	}

	sh := l.shardFor(hold.Account)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state := sh.accounts[hold.Account]
	state.frozen[hold.Asset] = state.frozen[hold.Asset].Sub(amt)
	state.totals[hold.Asset] = state.totals[hold.Asset].Sub(amt)

	hold.Amount = hold.Amount.Sub(amt)
	if hold.Amount.IsZero() {
		delete(l.holds, orderID)
	}

	return nil
}

// Credit adds amount to an account's available balance.
func (l *Ledger) Credit(account string, asset assetv1.Asset, amount decimal.Decimal) error {
	amt, err := assetv1.Normalize(asset, amount)
	if err != nil {
		return err
	}

	sh := l.shardFor(account)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, ok := sh.accounts[account]
	if !ok {
		return errors.Wrapf(ledgerv1.ErrAccountNotFound, "account %s", account)
	}
	state.totals[asset] = state.totals[asset].Add(amt)

	return nil
}

// Hold returns the hold recorded for orderID.
func (l *Ledger) Hold(orderID string) (ledgerv1.Hold, error) {
	l.holdMu.RLock()
	defer l.holdMu.RUnlock()

	hold, ok := l.holds[orderID]
	if !ok {
		return ledgerv1.Hold{}, errors.Wrapf(ledgerv1.ErrHoldNotFound, "order %s", orderID)
	}

	return *hold, nil
}

// Snapshot returns a deep copy of all account state sorted by account name.
func (l *Ledger) Snapshot() []ledgerv1.AccountRecord {
	l.holdMu.RLock()
	defer l.holdMu.RUnlock()

	holdsByAccount := make(map[string][]ledgerv1.Hold)
	for _, hold := range l.holds {
		holdsByAccount[hold.Account] = append(holdsByAccount[hold.Account], *hold)
	}

	var records []ledgerv1.AccountRecord
	for _, sh := range l.shards {
		sh.mu.RLock()
		for account, state := range sh.accounts {
			record := ledgerv1.AccountRecord{Account: account}
			for asset, total := range state.totals {
				record.Balances = append(record.Balances, ledgerv1.Balance{
					Asset:     asset,
					Available: state.available(asset),
					Frozen:    state.frozen[asset],
					Total:     total,
				})
			}
			sort.Slice(record.Balances, func(i, j int) bool {
				return record.Balances[i].Asset < record.Balances[j].Asset
			})

			record.Holds = holdsByAccount[account]
			sort.Slice(record.Holds, func(i, j int) bool {
				return record.Holds[i].OrderID < record.Holds[j].OrderID
			})

			records = append(records, record)
		}
		sh.mu.RUnlock()
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Account < records[j].Account })

	return records
}

// Restore replaces all account state with the given records.
func (l *Ledger) Restore(records []ledgerv1.AccountRecord) error {
	l.holdMu.Lock()
	defer l.holdMu.Unlock()

	for _, sh := range l.shards {
		sh.mu.Lock()
	}
	defer func() {
		for _, sh := range l.shards {
			sh.mu.Unlock()
		}
	}()

	for i := range l.shards {
		l.shards[i].accounts = make(map[string]*accountState)
	}
	l.holds = make(map[string]*ledgerv1.Hold)

	for _, record := range records {
		state := newAccountState()
		for _, balance := range record.Balances {
			state.totals[balance.Asset] = balance.Total
			state.frozen[balance.Asset] = balance.Frozen
		}
		l.shardFor(record.Account).accounts[record.Account] = state

		for _, hold := range record.Holds {
			h := hold
			if h.Account != record.Account {
				return errors.Wrapf(ledgerv1.ErrHoldNotFound,
					"hold %s belongs to %s, recorded under %s", h.OrderID, h.Account, record.Account)
			}
			l.holds[h.OrderID] = &h
		}
	}

	return nil
}
