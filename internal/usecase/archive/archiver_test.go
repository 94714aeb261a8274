package archive

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anteyko-labs/TradeShield-sub000/pkg/logger"

	tradev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/trade/v1"
	"github.com/anteyko-labs/TradeShield-sub000/internal/infrastructure/postgresql/trade"
)

// fakeRepository collects batches in memory and can fail on demand.
type fakeRepository struct {
	mu       sync.Mutex
	rows     []*trade.Row
	failures int
}

func (f *fakeRepository) Store(ctx context.Context, row *trade.Row) error {
	return f.StoreBatch(ctx, []*trade.Row{row})
}

func (f *fakeRepository) StoreBatch(ctx context.Context, rows []*trade.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failures > 0 {
		f.failures--
		return fmt.Errorf("archive unavailable")
	}
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeRepository) GetByID(ctx context.Context, id string) (*trade.Row, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeRepository) ListByAccount(ctx context.Context, account string, limit int) ([]*trade.Row, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeRepository) stored() []*trade.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*trade.Row, len(f.rows))
	copy(out, f.rows)
	return out
}

func makeTrade(id int) tradev1.Trade {
	return tradev1.Trade{
		ID:           fmt.Sprintf("trade-%d", id),
		Pair:         "BTC-USDT",
		TakerAccount: "alice",
		TakerSide:    "buy",
		Asset:        "BTC",
		Amount:       decimal.NewFromInt(1),
		Price:        decimal.NewFromInt(10000),
		Timestamp:    time.Now().UnixNano(),
	}
}

func TestArchiver_FlushesOnBatchSize(t *testing.T) {
	log, err := logger.NewLogger()
	require.NoError(t, err)

	repo := &fakeRepository{}
	archiver := NewArchiver(repo, log,
		WithBatchSize(2),
		WithFlushInterval(time.Hour), // only the size trigger fires
	)

	ctx, cancel := context.WithCancel(context.Background())
	archiver.Start(ctx)

	archiver.Enqueue(makeTrade(1))
	archiver.Enqueue(makeTrade(2))

	require.Eventually(t, func() bool {
		return len(repo.stored()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	archiver.Wait()
}

func TestArchiver_FlushesPendingOnShutdown(t *testing.T) {
	log, err := logger.NewLogger()
	require.NoError(t, err)

	repo := &fakeRepository{}
	archiver := NewArchiver(repo, log,
		WithBatchSize(100),
		WithFlushInterval(time.Hour),
	)

	ctx, cancel := context.WithCancel(context.Background())
	archiver.Start(ctx)

	archiver.EnqueueAll([]tradev1.Trade{makeTrade(1), makeTrade(2), makeTrade(3)})

	cancel()
	archiver.Wait()

	rows := repo.stored()
	require.Len(t, rows, 3)
	assert.Equal(t, "trade-1", rows[0].ID)
}

func TestArchiver_RetriesFailedFlush(t *testing.T) {
	log, err := logger.NewLogger()
	require.NoError(t, err)

	repo := &fakeRepository{failures: 1}
	archiver := NewArchiver(repo, log,
		WithBatchSize(1),
		WithFlushInterval(time.Hour),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	archiver.Start(ctx)

	archiver.Enqueue(makeTrade(1))

	require.Eventually(t, func() bool {
		return len(repo.stored()) == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestArchiver_RowConversionRoundTrip(t *testing.T) {
	original := makeTrade(7)
	original.Fee = decimal.RequireFromString("0.0003")
	original.MakerOrderID = tradev1.CounterpartyAMM

	row := &trade.Row{}
	row.FromTrade(&original)
	back := row.ToTrade()

	assert.Equal(t, original.ID, back.ID)
	assert.Equal(t, original.MakerOrderID, back.MakerOrderID)
	assert.True(t, original.Amount.Equal(back.Amount))
	assert.True(t, original.Fee.Equal(back.Fee))
	assert.Equal(t, original.Timestamp, back.Timestamp)
}
