package archive

import (
	"context"
	"sync"
	"time"

	"github.com/anteyko-labs/TradeShield-sub000/pkg/logger"

	tradev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/trade/v1"
	"github.com/anteyko-labs/TradeShield-sub000/internal/infrastructure/postgresql/trade"
)

const (
	defaultBatchSize     = 256
	defaultFlushInterval = 2 * time.Second
	defaultQueueDepth    = 4096
	maxStoreAttempts     = 3
	initialRetryDelay    = 200 * time.Millisecond
)

// Archiver drains settled trades into the Postgres archive in batches. The
// queue is bounded; when the archive cannot keep up, trades are dropped with
// a warning rather than stalling settlement.
type Archiver struct {
	repo   trade.Repository
	logger logger.Interface

	queue         chan tradev1.Trade
	batchSize     int
	flushInterval time.Duration

	wg sync.WaitGroup
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithBatchSize caps the number of trades per batch insert.
func WithBatchSize(n int) Option {
	return func(a *Archiver) {
		if n > 0 {
			a.batchSize = n
		}
	}
}

// WithFlushInterval sets how long a partial batch may wait.
func WithFlushInterval(d time.Duration) Option {
	return func(a *Archiver) {
		if d > 0 {
			a.flushInterval = d
		}
	}
}

// WithQueueDepth sets the pending-trade buffer size.
func WithQueueDepth(n int) Option {
	return func(a *Archiver) {
		if n > 0 {
			a.queue = make(chan tradev1.Trade, n)
		}
	}
}

// NewArchiver creates an archiver over the given repository.
func NewArchiver(repo trade.Repository, log logger.Interface, opts ...Option) *Archiver {
	a := &Archiver{
		repo:          repo,
		logger:        log,
		queue:         make(chan tradev1.Trade, defaultQueueDepth),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Enqueue hands a trade to the archiver without blocking.
func (a *Archiver) Enqueue(t tradev1.Trade) {
	select {
	case a.queue <- t:
	default:
		a.logger.Warn("archive queue full, dropping trade",
			logger.Field{Key: "tradeID", Value: t.ID},
		)
	}
}

// EnqueueAll hands a batch of trades to the archiver without blocking.
func (a *Archiver) EnqueueAll(trades []tradev1.Trade) {
	for _, t := range trades {
		a.Enqueue(t)
	}
}

// Start launches the flush loop. It runs until ctx is cancelled; pending
// trades are flushed once more on the way out.
func (a *Archiver) Start(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.run(ctx)
	}()
}

// Wait blocks until the flush loop has exited.
func (a *Archiver) Wait() {
	a.wg.Wait()
}

func (a *Archiver) run(ctx context.Context) {
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	batch := make([]tradev1.Trade, 0, a.batchSize)

	for {
		select {
		case <-ctx.Done():
			a.drainQueue(&batch)
			a.flush(context.Background(), batch)
			return
		case t := <-a.queue:
			batch = append(batch, t)
			if len(batch) >= a.batchSize {
				a.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

func (a *Archiver) drainQueue(batch *[]tradev1.Trade) {
	for {
		select {
		case t := <-a.queue:
			*batch = append(*batch, t)
		default:
			return
		}
	}
}

// flush writes one batch, retrying with exponential backoff before giving
// up.
func (a *Archiver) flush(ctx context.Context, batch []tradev1.Trade) {
	if len(batch) == 0 {
		return
	}

	rows := make([]*trade.Row, len(batch))
	for i := range batch {
		row := &trade.Row{}
		row.FromTrade(&batch[i])
		rows[i] = row
	}

	delay := initialRetryDelay
	var err error
	for attempt := 1; attempt <= maxStoreAttempts; attempt++ {
		if err = a.repo.StoreBatch(ctx, rows); err == nil {
			return
		}

		a.logger.WarnContext(ctx, "trade archive flush failed",
			logger.Field{Key: "attempt", Value: attempt},
			logger.Field{Key: "batchSize", Value: len(rows)},
			logger.Field{Key: "reason", Value: err.Error()},
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
	}

	a.logger.ErrorContext(ctx, err,
		logger.Field{Key: "action", Value: "archive_flush_giving_up"},
		logger.Field{Key: "batchSize", Value: len(rows)},
	)
}
