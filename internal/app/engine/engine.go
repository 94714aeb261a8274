package engine

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zapcore"

	"github.com/anteyko-labs/TradeShield-sub000/pkg/config"
	"github.com/anteyko-labs/TradeShield-sub000/pkg/logger"

	ammv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/amm/v1"
	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
	chainv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/chain/v1"
	ledgerv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/ledger/v1"
	marketmakerv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/marketmaker/v1"
	orderreaderv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/order-reader/v1"
	orderbookv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/orderbook/v1"
	snapshotv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/snapshot/v1"
	tradepublisherv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/trade-publisher/v1"
	tradev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/trade/v1"
)

// Archiver drains settled trades to durable storage in the background.
type Archiver interface {
	Enqueue(trade tradev1.Trade)
	Start(ctx context.Context)
	Wait()
}

// Dependencies collects everything the engine drives. Pool, Scheduler,
// Publisher, Archiver and Chain are optional; the engine skips the
// corresponding loop when one is nil.
type Dependencies struct {
	Ledger        ledgerv1.Ledger
	Orderbook     orderbookv1.Orderbook
	Pool          ammv1.Pool
	TradeLog      tradev1.Log
	Scheduler     marketmakerv1.Scheduler
	OrderReader   orderreaderv1.OrderReader
	SnapshotStore snapshotv1.Store
	Publisher     tradepublisherv1.TradePublisher
	Archiver      Archiver
	Chain         chainv1.Client
}

// Engine is the main engine: it consumes the order stream, drives the book,
// requotes makers, snapshots state and fans settled trades out to the
// publisher and the archive.
type Engine struct {
	// Core components
	ledger        ledgerv1.Ledger
	orderbook     orderbookv1.Orderbook
	pool          ammv1.Pool
	tradeLog      tradev1.Log
	scheduler     marketmakerv1.Scheduler
	orderReader   orderreaderv1.OrderReader
	snapshotStore snapshotv1.Store
	publisher     tradepublisherv1.TradePublisher
	archiver      Archiver
	chain         chainv1.Client
	logger        *logger.Logger
	config        *config.Config

	// Stream position, guarded by mu
	mu                 sync.RWMutex
	orderOffset        int64
	lastSnapshotOffset int64

	// Settled trades awaiting publication
	trades chan tradev1.Trade

	// Shutdown coordination
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Configuration
	snapshotInterval    time.Duration
	snapshotOffsetDelta int64
	makerInterval       time.Duration
	pruneInterval       time.Duration

	// Trade statistics
	totalTrades int64
	tradesMutex sync.RWMutex
}

// NewEngine creates a new instance of Engine with the provided dependencies.
func NewEngine(deps Dependencies, logger *logger.Logger, config *config.Config) *Engine {
	return NewEngineWithOptions(deps, logger, config, DefaultEngineOptions())
}

// NewEngineWithOptions creates a new engine with custom options
func NewEngineWithOptions(deps Dependencies, logger *logger.Logger, config *config.Config, options *Options) *Engine {
	defaults := DefaultEngineOptions()
	if options.SnapshotInterval <= 0 {
		options.SnapshotInterval = defaults.SnapshotInterval
	}
	if options.PruneInterval <= 0 {
		options.PruneInterval = defaults.PruneInterval
	}
	if options.TradeBuffer <= 0 {
		options.TradeBuffer = defaults.TradeBuffer
	}

	e := &Engine{
		ledger:        deps.Ledger,
		orderbook:     deps.Orderbook,
		pool:          deps.Pool,
		tradeLog:      deps.TradeLog,
		scheduler:     deps.Scheduler,
		orderReader:   deps.OrderReader,
		snapshotStore: deps.SnapshotStore,
		publisher:     deps.Publisher,
		archiver:      deps.Archiver,
		chain:         deps.Chain,
		logger:        logger,
		config:        config,

		trades: make(chan tradev1.Trade, options.TradeBuffer),

		snapshotInterval:    options.SnapshotInterval,
		snapshotOffsetDelta: options.SnapshotOffsetDelta,
		makerInterval:       options.MakerInterval,
		pruneInterval:       options.PruneInterval,
		orderOffset:         -1,
	}

	// Load snapshot during initialization
	if err := e.loadSnapshot(context.Background()); err != nil {
		e.logger.GetZap().Fatal("Failed to load snapshot", zapcore.Field{
			Key:       "error",
			Type:      zapcore.ErrorType,
			Interface: err,
		})
	}

	return e
}

// Start initializes the engine and starts processing routines.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(3)
	go e.runOrderProcessor()
	go e.runSnapshotManager()
	go e.runPruner()

	if e.scheduler != nil && e.makerInterval > 0 {
		e.wg.Add(1)
		go e.runMakerScheduler()
	}
	if e.publisher != nil {
		e.wg.Add(1)
		go e.runTradePublisher()
	}
	if e.archiver != nil {
		e.archiver.Start(e.ctx)
	}

	e.logger.Info("Engine started", logger.Field{
		Key:   "pair",
		Value: e.config.Pair,
	})

	return nil
}

// Stop gracefully shuts down the engine
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}

	// Wait for goroutines to finish with timeout
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		if e.archiver != nil {
			e.archiver.Wait()
		}
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("Engine stopped gracefully")
		return nil
	case <-ctx.Done():
		e.logger.Warn("Engine stop timeout exceeded")
		return ctx.Err()
	}
}

// HandleTrade is the settlement sink: it counts the trade and hands it to
// the publisher queue and the archive. Settlement calls it inside the
// book's critical section, so it never blocks.
func (e *Engine) HandleTrade(trade tradev1.Trade) {
	e.tradesMutex.Lock()
	e.totalTrades++
	e.tradesMutex.Unlock()

	if e.archiver != nil {
		e.archiver.Enqueue(trade)
	}

	if e.publisher == nil {
		return
	}
	select {
	case e.trades <- trade:
	default:
		e.logger.Warn("Trade publish queue full, dropping event", logger.Field{
			Key:   "tradeID",
			Value: trade.ID,
		})
	}
}

// runOrderProcessor combines order reading and processing in a single goroutine
func (e *Engine) runOrderProcessor() {
	defer e.wg.Done()

	e.logger.Info("Starting order processor", logger.Field{
		Key:   "pair",
		Value: e.config.Pair,
	})

	// Resume after the last order the snapshot has seen
	currentOffset := e.getOrderOffset()
	if currentOffset >= 0 {
		currentOffset++
	}

	if err := e.orderReader.SetOffset(currentOffset); err != nil {
		e.logger.GetZap().Fatal("Failed to set offset for order reader", zapcore.Field{
			Key:       "error",
			Type:      zapcore.ErrorType,
			Interface: err,
		})
	}

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("Order processor shutting down")
			e.orderReader.Close()
			return
		default:
			msg, orderRequest, err := e.orderReader.ReadMessage(e.ctx)
			if err != nil {
				if e.ctx.Err() != nil {
					continue
				}
				e.logger.ErrorContext(e.ctx, err, logger.Field{
					Key:   "action",
					Value: "read_order_message",
				})
				time.Sleep(100 * time.Millisecond)
				continue
			}

			if err := e.orderReader.CommitMessages(e.ctx, msg); err != nil {
				e.logger.ErrorContext(e.ctx, err, logger.Field{
					Key:   "action",
					Value: "commit_order_message",
				})
			}

			if err := e.processOrder(&orderRequest); err != nil {
				e.logger.ErrorContext(e.ctx, err,
					logger.Field{Key: "action", Value: "process_order"},
					logger.Field{Key: "orderID", Value: orderRequest.OrderID},
				)
			}

			e.setOrderOffset(msg.Offset)
		}
	}
}

// processOrder processes a single order request
func (e *Engine) processOrder(orderRequest *orderbookv1.PlaceOrderRequest) error {
	e.logger.Debug("Processing order",
		logger.Field{Key: "orderOffset", Value: orderRequest.Offset},
		logger.Field{Key: "orderID", Value: orderRequest.OrderID},
		logger.Field{Key: "account", Value: orderRequest.Account},
		logger.Field{Key: "bid", Value: orderRequest.Bid},
	)

	if orderRequest.Type == orderbookv1.OrderTypeCancel {
		return e.orderbook.CancelOrder(e.ctx, orderRequest.OrderID)
	}

	if err := e.ProvisionAccount(e.ctx, orderRequest.Account); err != nil {
		return err
	}

	order, err := e.orderbook.PlaceOrder(e.ctx, *orderRequest)
	if err != nil {
		return err
	}

	e.logger.Info("Order processed",
		logger.Field{Key: "orderID", Value: order.ID},
		logger.Field{Key: "status", Value: order.Status},
		logger.Field{Key: "filled", Value: order.FilledAmount()},
	)

	return nil
}

// ProvisionAccount registers the account in the ledger, seeding its
// balances from the chain. Known accounts and engines without a chain
// client are a no-op.
func (e *Engine) ProvisionAccount(ctx context.Context, account string) error {
	if e.chain == nil {
		return nil
	}
	if _, err := e.ledger.Balances(account); err == nil {
		return nil
	}

	pair := e.orderbook.Pair()
	seeds := make(map[assetv1.Asset]decimal.Decimal, 2)
	for _, asset := range []assetv1.Asset{pair.Base, pair.Quote} {
		balance, err := e.chain.BalanceOf(ctx, account, asset)
		if err != nil {
			return err
		}
		if balance.IsPositive() {
			seeds[asset] = balance
		}
	}

	if err := e.ledger.Register(account, seeds); err != nil {
		return err
	}

	e.logger.Info("Account provisioned",
		logger.Field{Key: "account", Value: account},
		logger.Field{Key: "assets", Value: len(seeds)},
	)

	return nil
}

// runSnapshotManager handles periodic snapshots
func (e *Engine) runSnapshotManager() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.snapshotInterval)
	defer ticker.Stop()

	e.logger.Info("Starting snapshot manager")

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("Snapshot manager shutting down")
			return
		case <-ticker.C:
			if e.shouldCreateSnapshot() {
				e.createAndStoreSnapshot()
			}
		}
	}
}

// runMakerScheduler requotes the registered market makers.
func (e *Engine) runMakerScheduler() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.makerInterval)
	defer ticker.Stop()

	e.logger.Info("Starting maker scheduler", logger.Field{
		Key:   "interval",
		Value: e.makerInterval.String(),
	})

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("Maker scheduler shutting down")
			return
		case <-ticker.C:
			e.scheduler.Tick(e.ctx)
		}
	}
}

// runTradePublisher drains settled trades to the trade topic.
func (e *Engine) runTradePublisher() {
	defer e.wg.Done()

	e.logger.Info("Starting trade publisher")

	for {
		select {
		case <-e.ctx.Done():
			// Flush whatever settlement managed to enqueue.
			for {
				select {
				case trade := <-e.trades:
					e.publishTrade(context.Background(), trade)
				default:
					e.logger.Info("Trade publisher shutting down")
					return
				}
			}
		case trade := <-e.trades:
			e.publishTrade(e.ctx, trade)
		}
	}
}

func (e *Engine) publishTrade(ctx context.Context, trade tradev1.Trade) {
	if err := e.publisher.PublishTradeEvent(ctx, &trade); err != nil {
		e.logger.ErrorContext(ctx, err,
			logger.Field{Key: "action", Value: "publish_trade"},
			logger.Field{Key: "tradeID", Value: trade.ID},
		)
	}
}

// runPruner drops trades that aged out of the history retention window.
func (e *Engine) runPruner() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.tradeLog.Prune(time.Now().UnixNano())
		}
	}
}

// shouldCreateSnapshot checks if a snapshot should be created
func (e *Engine) shouldCreateSnapshot() bool {
	e.mu.RLock()
	currentOffset := e.orderOffset
	lastSnapshotOffset := e.lastSnapshotOffset
	e.mu.RUnlock()

	if currentOffset < 0 {
		return false
	}

	delta := currentOffset - lastSnapshotOffset
	return delta >= e.snapshotOffsetDelta
}

// createAndStoreSnapshot captures the book, ledger, trade history and pool
// in one document and stores it.
func (e *Engine) createAndStoreSnapshot() {
	currentOffset := e.getOrderOffset()

	e.logger.Info("Creating snapshot", logger.Field{
		Key:   "currentOffset",
		Value: currentOffset,
	})

	snapshot := &snapshotv1.Snapshot{
		OrderOffset: currentOffset,
		CreatedAt:   time.Now().UnixNano(),
		Book:        e.orderbook.CreateSnapshot(),
		Accounts:    e.ledger.Snapshot(),
		Trades:      e.tradeLog.Snapshot(),
	}
	if e.pool != nil {
		record := e.pool.Record()
		snapshot.Pool = &record
	}

	if err := e.snapshotStore.Store(e.ctx, snapshot); err != nil {
		e.logger.ErrorContext(e.ctx, err, logger.Field{
			Key:   "action",
			Value: "store_snapshot",
		})
		return
	}

	e.setLastSnapshotOffset(currentOffset)
	e.logger.Info("Snapshot stored successfully", logger.Field{
		Key:   "pair",
		Value: e.config.Pair,
	}, logger.Field{
		Key:   "offset",
		Value: currentOffset,
	})
}

// Thread-safe getters and setters
func (e *Engine) getOrderOffset() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.orderOffset
}

func (e *Engine) setOrderOffset(offset int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.orderOffset = offset
}

func (e *Engine) getLastSnapshotOffset() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSnapshotOffset
}

func (e *Engine) setLastSnapshotOffset(offset int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSnapshotOffset = offset
}

// loadSnapshot restores the book, ledger, trade history and pool from the
// latest stored snapshot.
func (e *Engine) loadSnapshot(ctx context.Context) error {
	snapshot, err := e.snapshotStore.LoadStore(ctx)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return nil
	}

	if err := e.ledger.Restore(snapshot.Accounts); err != nil {
		return err
	}
	if err := e.orderbook.RestoreOrderbook(snapshot.Book); err != nil {
		return err
	}
	e.tradeLog.Restore(snapshot.Trades)
	if e.pool != nil && snapshot.Pool != nil {
		if err := e.pool.Restore(*snapshot.Pool); err != nil {
			return err
		}
	}

	e.mu.Lock()
	e.orderOffset = snapshot.OrderOffset
	e.lastSnapshotOffset = snapshot.OrderOffset
	e.mu.Unlock()

	e.logger.Info("Engine restored from snapshot", logger.Field{
		Key:   "orderOffset",
		Value: snapshot.OrderOffset,
	}, logger.Field{
		Key:   "restingOrders",
		Value: len(snapshot.Book.Orders),
	})

	return nil
}

// PlaceOrder provisions the account if needed and submits the order to the
// book. It bypasses the order stream; callers that need replayability go
// through Kafka instead.
func (e *Engine) PlaceOrder(ctx context.Context, req orderbookv1.PlaceOrderRequest) (*orderbookv1.Order, error) {
	if err := e.ProvisionAccount(ctx, req.Account); err != nil {
		return nil, err
	}
	return e.orderbook.PlaceOrder(ctx, req)
}

// CancelOrder cancels a resting order and releases its escrow.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) error {
	return e.orderbook.CancelOrder(ctx, orderID)
}

// GetOrder returns a copy of the order with the given ID.
func (e *Engine) GetOrder(orderID string) (*orderbookv1.Order, error) {
	return e.orderbook.GetOrder(orderID)
}

// GetDepth aggregates the top of the book.
func (e *Engine) GetDepth(levels int) orderbookv1.Depth {
	return e.orderbook.Depth(levels)
}

// GetBalance returns an account's balance triple for one asset.
func (e *Engine) GetBalance(account string, asset assetv1.Asset) (ledgerv1.Balance, error) {
	return e.ledger.Balance(account, asset)
}

// GetBalances returns all non-zero balances of an account.
func (e *Engine) GetBalances(account string) ([]ledgerv1.Balance, error) {
	return e.ledger.Balances(account)
}

// GetTradeHistory returns up to limit trades, newest first.
func (e *Engine) GetTradeHistory(limit int) []tradev1.Trade {
	return e.tradeLog.Recent(limit)
}

// GetAccountTrades returns up to limit trades involving the account.
func (e *Engine) GetAccountTrades(account string, limit int) []tradev1.Trade {
	return e.tradeLog.ByAccount(account, limit)
}

// GetOrderOffset returns the current order offset
func (e *Engine) GetOrderOffset() int64 {
	return e.getOrderOffset()
}

// GetLastSnapshotOffset returns the last snapshot offset
func (e *Engine) GetLastSnapshotOffset() int64 {
	return e.getLastSnapshotOffset()
}

// GetTotalTrades returns the number of trades settled since start.
func (e *Engine) GetTotalTrades() int64 {
	e.tradesMutex.RLock()
	defer e.tradesMutex.RUnlock()
	return e.totalTrades
}
