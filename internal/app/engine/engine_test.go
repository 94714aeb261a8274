package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anteyko-labs/TradeShield-sub000/pkg/config"
	"github.com/anteyko-labs/TradeShield-sub000/pkg/logger"

	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
	orderbookv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/orderbook/v1"
	snapshotv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/snapshot/v1"
	tradev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/trade/v1"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/chain"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/ledger"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/orderbook"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/settlement"
	"github.com/anteyko-labs/TradeShield-sub000/internal/usecase/tradelog"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeOrderReader serves a scripted sequence of order messages and blocks
// once the script runs out, like a quiet Kafka partition.
type fakeOrderReader struct {
	mu        sync.Mutex
	queue     []scriptedMessage
	offset    int64
	committed []int64
	closed    bool
}

type scriptedMessage struct {
	msg     kafka.Message
	request orderbookv1.PlaceOrderRequest
	err     error
}

func (r *fakeOrderReader) ReadMessage(ctx context.Context) (kafka.Message, orderbookv1.PlaceOrderRequest, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		next := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return next.msg, next.request, next.err
	}
	r.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, orderbookv1.PlaceOrderRequest{}, ctx.Err()
}

func (r *fakeOrderReader) SetOffset(offset int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offset = offset
	return nil
}

func (r *fakeOrderReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeOrderReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range msgs {
		r.committed = append(r.committed, msg.Offset)
	}
	return nil
}

func (r *fakeOrderReader) committedOffsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

// fakeSnapshotStore keeps snapshots in memory.
type fakeSnapshotStore struct {
	mu       sync.Mutex
	loaded   *snapshotv1.Snapshot
	loadErr  error
	stored   []*snapshotv1.Snapshot
	storeErr error
}

func (s *fakeSnapshotStore) Store(_ context.Context, snapshot *snapshotv1.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return s.storeErr
	}
	s.stored = append(s.stored, snapshot)
	return nil
}

func (s *fakeSnapshotStore) LoadStore(_ context.Context) (*snapshotv1.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded, s.loadErr
}

func (s *fakeSnapshotStore) storedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stored)
}

// fakePublisher records published trade events.
type fakePublisher struct {
	mu     sync.Mutex
	trades []tradev1.Trade
}

func (p *fakePublisher) PublishTradeEvent(_ context.Context, trade *tradev1.Trade) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trades = append(p.trades, *trade)
	return nil
}

func (p *fakePublisher) published() []tradev1.Trade {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]tradev1.Trade(nil), p.trades...)
}

// fakeArchiver records enqueued trades.
type fakeArchiver struct {
	mu       sync.Mutex
	enqueued []tradev1.Trade
	started  bool
}

func (a *fakeArchiver) Enqueue(trade tradev1.Trade) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enqueued = append(a.enqueued, trade)
}

func (a *fakeArchiver) Start(_ context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.started = true
}

func (a *fakeArchiver) Wait() {}

func (a *fakeArchiver) enqueuedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.enqueued)
}

// Test fixtures and helpers
type testFixture struct {
	ledger    *ledger.Ledger
	book      *orderbook.Orderbook
	settler   *settlement.Settler
	tradeLog  *tradelog.Log
	reader    *fakeOrderReader
	store     *fakeSnapshotStore
	publisher *fakePublisher
	archiver  *fakeArchiver
	chain     *chain.StaticClient
	logger    *logger.Logger
	config    *config.Config
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	log, err := logger.NewLogger()
	require.NoError(t, err)

	pair, err := assetv1.ParsePair("BTC-USDT")
	require.NoError(t, err)

	l := ledger.NewLedger()
	require.NoError(t, l.Register("alice", map[assetv1.Asset]decimal.Decimal{"USDT": dec("100000")}))
	require.NoError(t, l.Register("bob", map[assetv1.Asset]decimal.Decimal{"BTC": dec("10")}))

	tl := tradelog.NewLog()
	settler := settlement.NewSettler(l, tl, nil, nil, log)
	book := orderbook.NewOrderbook(pair, l, settler, nil, log)

	return &testFixture{
		ledger:    l,
		book:      book,
		settler:   settler,
		tradeLog:  tl,
		reader:    &fakeOrderReader{},
		store:     &fakeSnapshotStore{},
		publisher: &fakePublisher{},
		archiver:  &fakeArchiver{},
		chain:     chain.NewStaticClient(),
		logger:    log,
		config:    &config.Config{Pair: "BTC-USDT"},
	}
}

func (f *testFixture) dependencies() Dependencies {
	return Dependencies{
		Ledger:        f.ledger,
		Orderbook:     f.book,
		TradeLog:      f.tradeLog,
		OrderReader:   f.reader,
		SnapshotStore: f.store,
		Publisher:     f.publisher,
		Archiver:      f.archiver,
		Chain:         f.chain,
	}
}

// Helper function to create engine with initialized context
func createTestEngine(f *testFixture) *Engine {
	e := NewEngine(f.dependencies(), f.logger, f.config)
	f.settler.SetSink(e.HandleTrade)

	// Initialize context to prevent nil pointer dereference
	e.ctx = context.Background()

	return e
}

func limitRequest(orderID, account string, bid bool, amount, price string) orderbookv1.PlaceOrderRequest {
	return orderbookv1.PlaceOrderRequest{
		OrderID: orderID,
		Account: account,
		Type:    orderbookv1.OrderTypeLimit,
		Bid:     bid,
		Amount:  dec(amount),
		Price:   dec(price),
	}
}

func TestNewEngine(t *testing.T) {
	t.Run("nil snapshot starts from the beginning", func(t *testing.T) {
		f := setupTestFixture(t)

		e := NewEngine(f.dependencies(), f.logger, f.config)

		assert.NotNil(t, e)
		assert.Equal(t, int64(-1), e.GetOrderOffset())
		assert.Equal(t, int64(0), e.GetTotalTrades())
	})

	t.Run("existing snapshot restores book, ledger and history", func(t *testing.T) {
		f := setupTestFixture(t)
		f.store.loaded = &snapshotv1.Snapshot{
			Version:     snapshotv1.CurrentVersion,
			Pair:        "BTC-USDT",
			OrderOffset: 100,
			Accounts:    f.ledger.Snapshot(),
			Trades: []tradev1.Trade{
				{ID: "t1", Pair: "BTC-USDT", Asset: "BTC", Amount: dec("1"), Price: dec("9000")},
			},
			Book: snapshotv1.OrderBookSnapshot{
				Orders: []snapshotv1.BookOrder{
					{
						OrderID:        "resting-1",
						Account:        "bob",
						Type:           string(orderbookv1.OrderTypeLimit),
						Bid:            false,
						Amount:         dec("1"),
						OriginalAmount: dec("1"),
						Price:          dec("10000"),
						Status:         string(orderbookv1.StatusPending),
						Timestamp:      time.Now().UnixNano(),
						Sequence:       1,
					},
				},
				OrderSequence: 1,
			},
		}

		e := NewEngine(f.dependencies(), f.logger, f.config)

		assert.Equal(t, int64(100), e.GetOrderOffset())
		assert.Equal(t, int64(100), e.GetLastSnapshotOffset())
		assert.Equal(t, 1, f.tradeLog.Len())

		restored, err := e.GetOrder("resting-1")
		require.NoError(t, err)
		assert.Equal(t, orderbookv1.StatusPending, restored.Status)
	})
}

func TestNewEngineWithOptions(t *testing.T) {
	f := setupTestFixture(t)

	options := &Options{
		SnapshotInterval:    10 * time.Second,
		SnapshotOffsetDelta: 500,
		MakerInterval:       time.Second,
		PruneInterval:       time.Minute,
		TradeBuffer:         16,
	}

	e := NewEngineWithOptions(f.dependencies(), f.logger, f.config, options)

	assert.Equal(t, 10*time.Second, e.snapshotInterval)
	assert.Equal(t, int64(500), e.snapshotOffsetDelta)
	assert.Equal(t, time.Second, e.makerInterval)
	assert.Equal(t, 16, cap(e.trades))
}

func TestEngine_ProcessOrder(t *testing.T) {
	t.Run("limit order rests on the book", func(t *testing.T) {
		f := setupTestFixture(t)
		e := createTestEngine(f)

		req := limitRequest("limit-1", "bob", false, "1", "10000")
		err := e.processOrder(&req)
		require.NoError(t, err)

		order, err := e.GetOrder("limit-1")
		require.NoError(t, err)
		assert.Equal(t, orderbookv1.StatusPending, order.Status)
		assert.Equal(t, dec("1").String(), e.GetDepth(1).Asks[0].Volume.String())
	})

	t.Run("crossing orders settle and reach the sink", func(t *testing.T) {
		f := setupTestFixture(t)
		e := createTestEngine(f)

		ask := limitRequest("ask-1", "bob", false, "1", "10000")
		require.NoError(t, e.processOrder(&ask))
		bid := limitRequest("bid-1", "alice", true, "1", "10000")
		require.NoError(t, e.processOrder(&bid))

		assert.Equal(t, int64(1), e.GetTotalTrades())
		assert.Equal(t, 1, f.archiver.enqueuedCount())
		assert.Len(t, e.GetTradeHistory(10), 1)

		balance, err := e.GetBalance("alice", "BTC")
		require.NoError(t, err)
		assert.Equal(t, "1", balance.Available.String())
	})

	t.Run("cancel request removes the resting order", func(t *testing.T) {
		f := setupTestFixture(t)
		e := createTestEngine(f)

		req := limitRequest("to-cancel", "bob", false, "1", "10000")
		require.NoError(t, e.processOrder(&req))

		cancel := orderbookv1.PlaceOrderRequest{
			OrderID: "to-cancel",
			Type:    orderbookv1.OrderTypeCancel,
		}
		require.NoError(t, e.processOrder(&cancel))

		order, err := e.GetOrder("to-cancel")
		require.NoError(t, err)
		assert.Equal(t, orderbookv1.StatusCancelled, order.Status)
	})

	t.Run("unknown account is provisioned from the chain", func(t *testing.T) {
		f := setupTestFixture(t)
		f.chain.SetBalance("carol", "BTC", dec("3"))
		e := createTestEngine(f)

		req := limitRequest("carol-1", "carol", false, "2", "10000")
		require.NoError(t, e.processOrder(&req))

		balance, err := e.GetBalance("carol", "BTC")
		require.NoError(t, err)
		assert.Equal(t, "2", balance.Frozen.String())
		assert.Equal(t, "3", balance.Total.String())
	})
}

func TestEngine_HandleTrade(t *testing.T) {
	f := setupTestFixture(t)
	e := createTestEngine(f)

	trade := tradev1.Trade{ID: "t1", Pair: "BTC-USDT", Asset: "BTC", Amount: dec("1"), Price: dec("10000")}
	e.HandleTrade(trade)

	assert.Equal(t, int64(1), e.GetTotalTrades())
	assert.Equal(t, 1, f.archiver.enqueuedCount())

	queued := <-e.trades
	assert.Equal(t, "t1", queued.ID)
}

func TestEngine_SnapshotDecision(t *testing.T) {
	f := setupTestFixture(t)
	e := NewEngineWithOptions(f.dependencies(), f.logger, f.config, &Options{
		SnapshotInterval:    time.Second,
		SnapshotOffsetDelta: 10,
		PruneInterval:       time.Minute,
		TradeBuffer:         16,
	})
	e.ctx = context.Background()

	// No orders processed yet
	assert.False(t, e.shouldCreateSnapshot())

	e.setOrderOffset(5)
	assert.False(t, e.shouldCreateSnapshot())

	e.setOrderOffset(10)
	assert.True(t, e.shouldCreateSnapshot())

	e.createAndStoreSnapshot()
	assert.Equal(t, 1, f.store.storedCount())
	assert.Equal(t, int64(10), e.GetLastSnapshotOffset())
	assert.False(t, e.shouldCreateSnapshot())

	stored := f.store.stored[0]
	assert.Equal(t, int64(10), stored.OrderOffset)
	assert.NotEmpty(t, stored.Accounts)
}

func TestEngine_StartStop(t *testing.T) {
	f := setupTestFixture(t)
	e := createTestEngine(f)

	require.NoError(t, e.Start(context.Background()))
	assert.True(t, func() bool {
		f.archiver.mu.Lock()
		defer f.archiver.mu.Unlock()
		return f.archiver.started
	}())

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Stop(stopCtx))

	f.reader.mu.Lock()
	closed := f.reader.closed
	f.reader.mu.Unlock()
	assert.True(t, closed)
}

func TestEngine_PublisherDrainsTrades(t *testing.T) {
	f := setupTestFixture(t)
	e := createTestEngine(f)

	require.NoError(t, e.Start(context.Background()))

	e.HandleTrade(tradev1.Trade{ID: "t1", Pair: "BTC-USDT", Asset: "BTC", Amount: dec("1"), Price: dec("10000")})
	e.HandleTrade(tradev1.Trade{ID: "t2", Pair: "BTC-USDT", Asset: "BTC", Amount: dec("2"), Price: dec("10100")})

	require.Eventually(t, func() bool {
		return len(f.publisher.published()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Stop(stopCtx))

	published := f.publisher.published()
	assert.Equal(t, "t1", published[0].ID)
	assert.Equal(t, "t2", published[1].ID)
}
