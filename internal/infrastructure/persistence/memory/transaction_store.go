// Package memory is an in-process TransactionStore for local runs and tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

type TransactionStore struct {
	mu              sync.RWMutex
	byOrderID       map[string]*domain.Transaction
	idempotencyKeys map[string]string
	now             func() time.Time
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		byOrderID:       make(map[string]*domain.Transaction),
		idempotencyKeys: make(map[string]string),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *TransactionStore) Create(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byOrderID[tx.OrderID]; ok {
		return clone(existing), false, nil
	}
	if tx.IdempotencyKey != "" {
		if _, taken := s.idempotencyKeys[tx.IdempotencyKey]; taken {
			return nil, false, domain.ErrDuplicateIdempotencyKey
		}
		s.idempotencyKeys[tx.IdempotencyKey] = tx.OrderID
	}

	stored := clone(tx)
	s.byOrderID[tx.OrderID] = stored
	return clone(stored), true, nil
}

func (s *TransactionStore) Update(ctx context.Context, orderID string, patch domain.TransactionPatch) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byOrderID[orderID]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}

	updated := clone(existing)
	if err := updated.Apply(patch, s.now()); err != nil {
		return nil, err
	}
	s.byOrderID[orderID] = updated
	return clone(updated), nil
}

func (s *TransactionStore) FindByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tx, ok := s.byOrderID[orderID]; ok {
		return clone(tx), nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (s *TransactionStore) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if orderID, ok := s.idempotencyKeys[key]; ok {
		return clone(s.byOrderID[orderID]), nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (s *TransactionStore) FindByAnyID(ctx context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tx, ok := s.byOrderID[id]; ok {
		return clone(tx), nil
	}
	for _, tx := range s.byOrderID {
		if tx.ID == id || (tx.GatewayPaymentID != "" && tx.GatewayPaymentID == id) {
			return clone(tx), nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (s *TransactionStore) ListStale(ctx context.Context, before time.Time, limit int) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stale []*domain.Transaction
	for _, tx := range s.byOrderID {
		if tx.Status == domain.StatusPending && tx.SessionID() != "" && tx.UpdatedAt.Before(before) {
			stale = append(stale, clone(tx))
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].UpdatedAt.Before(stale[j].UpdatedAt) })

	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

// Reset drops every stored transaction.
func (s *TransactionStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byOrderID = make(map[string]*domain.Transaction)
	s.idempotencyKeys = make(map[string]string)
}

func (s *TransactionStore) Ping(ctx context.Context) error {
	return nil
}

func clone(tx *domain.Transaction) *domain.Transaction {
	c := *tx
	c.PaymentDetails = maps.Clone(tx.PaymentDetails)
	c.GatewayPayload = slices.Clone(tx.GatewayPayload)
	if tx.Recharge != nil {
		r := *tx.Recharge
		c.Recharge = &r
	}
	if tx.SettledAt != nil {
		at := *tx.SettledAt
		c.SettledAt = &at
	}
	return &c
}
