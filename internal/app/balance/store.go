/*
Package balance defines the narrow interface to the external durable balance store
and a PostgreSQL implementation of it.

The chat core's cached balances are the operative truth for in-session decisions;
this store only receives best-effort durable commits of every applied delta and
serves the authoritative balance at auth time.
*/
package balance

import "context"

// Store is the interface the economy engine uses to persist balance changes.
type Store interface {
	// Get returns the durable balance for the given user, or 0 when the user
	// has no record yet.
	Get(ctx context.Context, userID string) (int64, error)

	// Commit applies a signed delta to the user's durable balance and records
	// the reason in the ledger.
	Commit(ctx context.Context, userID string, delta int64, reason string) error

	// Close releases the underlying connections.
	Close()
}
