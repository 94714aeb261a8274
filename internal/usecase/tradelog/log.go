package tradelog

import (
	"sync"
	"time"

	tradev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/trade/v1"
)

const (
	// DefaultMaxEntries bounds the in-memory history.
	DefaultMaxEntries = 100000

	// DefaultRetention bounds the age of retained trades.
	DefaultRetention = 30 * 24 * time.Hour
)

// Drain receives trades as they age out of the in-memory log.
type Drain func(trades []tradev1.Trade)

// Log is a bounded, append-only trade history. When either the entry cap or
// the retention window evicts trades, they are handed to the drain before
// being dropped.
type Log struct {
	mu         sync.RWMutex
	trades     []tradev1.Trade // oldest first
	maxEntries int
	retention  time.Duration
	drain      Drain
}

var _ tradev1.Log = (*Log)(nil)

// Option configures a Log.
type Option func(*Log)

// WithMaxEntries caps the number of retained trades.
func WithMaxEntries(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.maxEntries = n
		}
	}
}

// WithRetention caps the age of retained trades.
func WithRetention(d time.Duration) Option {
	return func(l *Log) {
		if d > 0 {
			l.retention = d
		}
	}
}

// WithDrain sets the eviction sink.
func WithDrain(drain Drain) Option {
	return func(l *Log) {
		l.drain = drain
	}
}

// NewLog creates a trade log with the default caps.
func NewLog(opts ...Option) *Log {
	l := &Log{
		maxEntries: DefaultMaxEntries,
		retention:  DefaultRetention,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records a settled trade, evicting the oldest entries beyond the
// cap.
func (l *Log) Append(trade tradev1.Trade) {
	l.mu.Lock()
	l.trades = append(l.trades, trade)

	var evicted []tradev1.Trade
	if len(l.trades) > l.maxEntries {
		overflow := len(l.trades) - l.maxEntries
		evicted = append(evicted, l.trades[:overflow]...)
		l.trades = append(l.trades[:0:0], l.trades[overflow:]...)
	}
	drain := l.drain
	l.mu.Unlock()

	if drain != nil && len(evicted) > 0 {
		drain(evicted)
	}
}

// Recent returns up to limit trades, newest first.
func (l *Log) Recent(limit int) []tradev1.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > len(l.trades) {
		limit = len(l.trades)
	}

	out := make([]tradev1.Trade, 0, limit)
	for i := len(l.trades) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.trades[i])
	}
	return out
}

// ByAccount returns up to limit trades involving the account, newest first.
func (l *Log) ByAccount(account string, limit int) []tradev1.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 {
		limit = len(l.trades)
	}

	var out []tradev1.Trade
	for i := len(l.trades) - 1; i >= 0 && len(out) < limit; i-- {
		if l.trades[i].Involves(account) {
			out = append(out, l.trades[i])
		}
	}
	return out
}

// Len returns the number of retained trades.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trades)
}

// Prune drops trades older than the retention window, draining them first.
func (l *Log) Prune(nowUnixNano int64) {
	cutoff := nowUnixNano - l.retention.Nanoseconds()

	l.mu.Lock()
	idx := 0
	for idx < len(l.trades) && l.trades[idx].Timestamp < cutoff {
		idx++
	}

	var evicted []tradev1.Trade
	if idx > 0 {
		evicted = append(evicted, l.trades[:idx]...)
		l.trades = append(l.trades[:0:0], l.trades[idx:]...)
	}
	drain := l.drain
	l.mu.Unlock()

	if drain != nil && len(evicted) > 0 {
		drain(evicted)
	}
}

// Snapshot returns all retained trades, oldest first.
func (l *Log) Snapshot() []tradev1.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]tradev1.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Restore replaces the log contents with the given trades.
func (l *Log) Restore(trades []tradev1.Trade) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.trades = make([]tradev1.Trade, len(trades))
	copy(l.trades, trades)
}
