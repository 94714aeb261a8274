package tradev1

// Log is the in-memory trade history. Appends never fail; eviction hands
// aged-out trades to the configured drain.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=tradev1_mock
type Log interface {
	// Append records a settled trade.
	Append(trade Trade)

	// Recent returns up to limit trades, newest first.
	Recent(limit int) []Trade

	// ByAccount returns up to limit trades involving the account, newest
	// first.
	ByAccount(account string, limit int) []Trade

	// Len returns the number of retained trades.
	Len() int

	// Prune drops trades older than the retention window.
	Prune(nowUnixNano int64)

	// Snapshot returns all retained trades, oldest first.
	Snapshot() []Trade

	// Restore replaces the log contents with the given trades.
	Restore(trades []Trade)
}
