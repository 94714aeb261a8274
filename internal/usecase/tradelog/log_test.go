package tradelog

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tradev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/trade/v1"
)

func makeTrade(id int, account string, ts int64) tradev1.Trade {
	return tradev1.Trade{
		ID:           fmt.Sprintf("trade-%d", id),
		Pair:         "BTC-USDT",
		TakerAccount: account,
		MakerAccount: "maker",
		Asset:        "BTC",
		Amount:       decimal.NewFromInt(1),
		Price:        decimal.NewFromInt(10000),
		Timestamp:    ts,
	}
}

func TestLog_AppendAndRecent(t *testing.T) {
	log := NewLog()

	for i := 0; i < 5; i++ {
		log.Append(makeTrade(i, "alice", int64(i)))
	}

	require.Equal(t, 5, log.Len())

	recent := log.Recent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "trade-4", recent[0].ID)
	assert.Equal(t, "trade-2", recent[2].ID)

	// Zero limit returns everything
	assert.Len(t, log.Recent(0), 5)
}

func TestLog_ByAccount(t *testing.T) {
	log := NewLog()
	log.Append(makeTrade(1, "alice", 1))
	log.Append(makeTrade(2, "bob", 2))
	log.Append(makeTrade(3, "alice", 3))

	trades := log.ByAccount("alice", 10)
	require.Len(t, trades, 2)
	assert.Equal(t, "trade-3", trades[0].ID)

	// Maker side matches too
	trades = log.ByAccount("maker", 10)
	assert.Len(t, trades, 3)

	assert.Empty(t, log.ByAccount("carol", 10))
}

func TestLog_EntryCapEvictsOldest(t *testing.T) {
	var drained []tradev1.Trade
	log := NewLog(
		WithMaxEntries(3),
		WithDrain(func(trades []tradev1.Trade) {
			drained = append(drained, trades...)
		}),
	)

	for i := 0; i < 5; i++ {
		log.Append(makeTrade(i, "alice", int64(i)))
	}

	assert.Equal(t, 3, log.Len())
	require.Len(t, drained, 2)
	assert.Equal(t, "trade-0", drained[0].ID)
	assert.Equal(t, "trade-1", drained[1].ID)

	snapshot := log.Snapshot()
	assert.Equal(t, "trade-2", snapshot[0].ID)
	assert.Equal(t, "trade-4", snapshot[2].ID)
}

func TestLog_PruneByAge(t *testing.T) {
	now := time.Now().UnixNano()

	var drained []tradev1.Trade
	log := NewLog(
		WithRetention(time.Hour),
		WithDrain(func(trades []tradev1.Trade) {
			drained = append(drained, trades...)
		}),
	)

	log.Append(makeTrade(1, "alice", now-2*time.Hour.Nanoseconds()))
	log.Append(makeTrade(2, "alice", now-30*time.Minute.Nanoseconds()))
	log.Append(makeTrade(3, "alice", now))

	log.Prune(now)

	assert.Equal(t, 2, log.Len())
	require.Len(t, drained, 1)
	assert.Equal(t, "trade-1", drained[0].ID)

	// Prune with nothing old enough is a no-op
	log.Prune(now)
	assert.Equal(t, 2, log.Len())
	assert.Len(t, drained, 1)
}

func TestLog_SnapshotRestore(t *testing.T) {
	log := NewLog()
	log.Append(makeTrade(1, "alice", 1))
	log.Append(makeTrade(2, "bob", 2))

	snapshot := log.Snapshot()

	restored := NewLog()
	restored.Restore(snapshot)

	assert.Equal(t, log.Len(), restored.Len())
	assert.Equal(t, snapshot, restored.Snapshot())
}
