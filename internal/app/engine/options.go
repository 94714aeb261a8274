package engine

import "time"

// Options represents configuration options for the Engine.
type Options struct {
	// SnapshotInterval is how often the snapshot manager wakes up.
	SnapshotInterval time.Duration

	// SnapshotOffsetDelta is the minimum number of processed orders
	// between two stored snapshots.
	SnapshotOffsetDelta int64

	// MakerInterval is the cadence of market-maker requotes. Zero
	// disables the maker loop even when a scheduler is wired.
	MakerInterval time.Duration

	// PruneInterval is how often aged trades are dropped from the
	// in-memory history.
	PruneInterval time.Duration

	// TradeBuffer is the capacity of the settled-trade channel feeding
	// the publisher. Settlement never blocks on it; overflow is dropped
	// with a warning.
	TradeBuffer int
}

// DefaultEngineOptions returns the default engine options.
func DefaultEngineOptions() *Options {
	return &Options{
		SnapshotInterval:    30 * time.Second,
		SnapshotOffsetDelta: 1000,
		MakerInterval:       5 * time.Second,
		PruneInterval:       time.Hour,
		TradeBuffer:         4096,
	}
}
