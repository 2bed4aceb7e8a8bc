package domain

import (
	"context"
	"time"
)

// TransactionStore persists transactions. Every write is scoped to a single
// order id.
type TransactionStore interface {
	// Create inserts tx unless a transaction with the same order id exists,
	// in which case the stored one is returned with created=false.
	// Returns ErrDuplicateIdempotencyKey when the key belongs to another order.
	Create(ctx context.Context, tx *Transaction) (stored *Transaction, created bool, err error)

	// Update applies patch atomically. When patch.Status is set, the update
	// only happens if the stored status is one of AllowedPriorStates, and a
	// *TransitionError carrying the current status is returned otherwise.
	Update(ctx context.Context, orderID string, patch TransactionPatch) (*Transaction, error)

	FindByOrderID(ctx context.Context, orderID string) (*Transaction, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Transaction, error)

	// FindByAnyID resolves an internal id, gateway payment id or order id.
	FindByAnyID(ctx context.Context, id string) (*Transaction, error)

	// ListStale returns pending transactions carrying a gateway session that
	// have not been updated since before.
	ListStale(ctx context.Context, before time.Time, limit int) ([]*Transaction, error)

	Ping(ctx context.Context) error
}
