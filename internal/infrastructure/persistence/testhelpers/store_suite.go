package testhelpers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

// NewPendingTransaction builds a valid pending transaction for store tests.
func NewPendingTransaction(t *testing.T, orderID, idempotencyKey string) *domain.Transaction {
	t.Helper()
	tx, err := domain.NewTransaction(uuid.NewString(), orderID, decimal.RequireFromString("100.00"), "INR", domain.MethodUPI)
	require.NoError(t, err)
	tx.IdempotencyKey = idempotencyKey
	tx.Customer = domain.Customer{Name: "Asha", Phone: "9876543210", Email: "asha@example.com"}
	tx.Description = "General Payment"
	tx.CreatedAt = tx.CreatedAt.Truncate(time.Millisecond)
	tx.UpdatedAt = tx.CreatedAt
	return tx
}

// RunStoreContract exercises the TransactionStore guarantees every driver must give.
// reset is called before each subtest.
func RunStoreContract(t *testing.T, store domain.TransactionStore, reset func(t *testing.T)) {
	ctx := context.Background()

	t.Run("create is insert-if-absent", func(t *testing.T) {
		reset(t)
		tx := NewPendingTransaction(t, "ORD_create", "key-create")

		stored, created, err := store.Create(ctx, tx)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, tx.ID, stored.ID)
		assert.True(t, stored.Amount.Equal(tx.Amount))
		assert.Equal(t, domain.StatusPending, stored.Status)
		assert.Equal(t, "Asha", stored.Customer.Name)

		dup := NewPendingTransaction(t, "ORD_create", "")
		dup.Amount = decimal.NewFromInt(5)
		existing, created, err := store.Create(ctx, dup)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, tx.ID, existing.ID)
		assert.True(t, existing.Amount.Equal(tx.Amount))
	})

	t.Run("idempotency key is unique", func(t *testing.T) {
		reset(t)
		_, _, err := store.Create(ctx, NewPendingTransaction(t, "ORD_k1", "key-1"))
		require.NoError(t, err)

		_, _, err = store.Create(ctx, NewPendingTransaction(t, "ORD_k2", "key-1"))
		assert.ErrorIs(t, err, domain.ErrDuplicateIdempotencyKey)

		found, err := store.FindByIdempotencyKey(ctx, "key-1")
		require.NoError(t, err)
		assert.Equal(t, "ORD_k1", found.OrderID)

		_, err = store.FindByIdempotencyKey(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})

	t.Run("transactions without key do not collide", func(t *testing.T) {
		reset(t)
		_, _, err := store.Create(ctx, NewPendingTransaction(t, "ORD_a", ""))
		require.NoError(t, err)
		_, _, err = store.Create(ctx, NewPendingTransaction(t, "ORD_b", ""))
		require.NoError(t, err)
	})

	t.Run("update merges details without touching status", func(t *testing.T) {
		reset(t)
		tx := NewPendingTransaction(t, "ORD_merge", "")
		tx.PaymentDetails["cardLast4"] = "4242"
		_, _, err := store.Create(ctx, tx)
		require.NoError(t, err)

		updated, err := store.Update(ctx, "ORD_merge", domain.TransactionPatch{
			GatewayOrderID: domain.Ptr("cf_123"),
			Details:        map[string]any{domain.DetailSession: "session_abc"},
		})
		require.NoError(t, err)

		assert.Equal(t, "session_abc", updated.SessionID())
		assert.Equal(t, "4242", updated.PaymentDetails["cardLast4"])
		assert.Equal(t, "cf_123", updated.GatewayOrderID)
		assert.Equal(t, domain.StatusPending, updated.Status)
	})

	t.Run("terminal status is not revoked", func(t *testing.T) {
		reset(t)
		_, _, err := store.Create(ctx, NewPendingTransaction(t, "ORD_term", ""))
		require.NoError(t, err)

		success, err := store.Update(ctx, "ORD_term", domain.TransactionPatch{
			Status:           domain.Ptr(domain.StatusSuccess),
			GatewayPaymentID: domain.Ptr("cf_pay_1"),
			GatewayStatus:    domain.Ptr("SUCCESS"),
			GatewayPayload:   []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK"}`),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSuccess, success.Status)
		assert.JSONEq(t, `{"type":"PAYMENT_SUCCESS_WEBHOOK"}`, string(success.GatewayPayload))

		_, err = store.Update(ctx, "ORD_term", domain.TransactionPatch{
			Status:        domain.Ptr(domain.StatusFailed),
			FailureReason: domain.Ptr("late failure"),
		})
		var te *domain.TransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, domain.StatusSuccess, te.From)
		assert.Equal(t, domain.StatusFailed, te.To)

		final, err := store.FindByOrderID(ctx, "ORD_term")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSuccess, final.Status)
		assert.Empty(t, final.FailureReason)
	})

	t.Run("update of unknown order is not found and creates nothing", func(t *testing.T) {
		reset(t)
		_, err := store.Update(ctx, "ORD_ghost", domain.TransactionPatch{Status: domain.Ptr(domain.StatusPendingVerification)})
		assert.ErrorIs(t, err, domain.ErrTransactionNotFound)

		_, err = store.FindByOrderID(ctx, "ORD_ghost")
		assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})

	t.Run("concurrent conflicting transitions apply exactly once", func(t *testing.T) {
		reset(t)
		_, _, err := store.Create(ctx, NewPendingTransaction(t, "ORD_race", ""))
		require.NoError(t, err)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			applied []domain.Status
		)
		for i := 0; i < 10; i++ {
			target := domain.StatusSuccess
			if i%2 == 1 {
				target = domain.StatusFailed
			}
			wg.Add(1)
			go func(target domain.Status) {
				defer wg.Done()
				if _, err := store.Update(ctx, "ORD_race", domain.TransactionPatch{Status: &target}); err == nil {
					mu.Lock()
					applied = append(applied, target)
					mu.Unlock()
				}
			}(target)
		}
		wg.Wait()

		require.Len(t, applied, 1)
		final, err := store.FindByOrderID(ctx, "ORD_race")
		require.NoError(t, err)
		assert.Equal(t, applied[0], final.Status)
	})

	t.Run("manual verification overrides amount and settlement records recharge", func(t *testing.T) {
		reset(t)
		tx := NewPendingTransaction(t, "ORD_settle", "")
		tx.Recharge = &domain.Recharge{Mobile: "9876543210", Operator: "Jio", PlanID: "J1"}
		_, _, err := store.Create(ctx, tx)
		require.NoError(t, err)

		verified, err := store.Update(ctx, "ORD_settle", domain.TransactionPatch{
			Status:                domain.Ptr(domain.StatusPendingVerification),
			VerificationReference: domain.Ptr("UTR123456"),
			Amount:                domain.Ptr(decimal.RequireFromString("120.50")),
		})
		require.NoError(t, err)
		assert.True(t, verified.Amount.Equal(decimal.RequireFromString("120.50")))

		_, err = store.Update(ctx, "ORD_settle", domain.TransactionPatch{Status: domain.Ptr(domain.StatusSettled)})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		_, err = store.Update(ctx, "ORD_settle", domain.TransactionPatch{Status: domain.Ptr(domain.StatusSuccess)})
		require.NoError(t, err)

		settledAt := time.Now().UTC().Truncate(time.Millisecond)
		_, err = store.Update(ctx, "ORD_settle", domain.TransactionPatch{
			Status:    domain.Ptr(domain.StatusSettled),
			SettledAt: &settledAt,
		})
		require.NoError(t, err)

		final, err := store.Update(ctx, "ORD_settle", domain.TransactionPatch{
			RechargeResult: &domain.RechargeResult{Status: "FAILED", Message: "operator down"},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSettled, final.Status)
		require.NotNil(t, final.SettledAt)
		assert.WithinDuration(t, settledAt, *final.SettledAt, time.Millisecond)
		require.NotNil(t, final.Recharge)
		assert.Equal(t, "FAILED", final.Recharge.Status)
		assert.Equal(t, "operator down", final.Recharge.Message)
		assert.Equal(t, "J1", final.Recharge.PlanID)
	})

	t.Run("find by any id", func(t *testing.T) {
		reset(t)
		tx := NewPendingTransaction(t, "ORD_any", "")
		_, _, err := store.Create(ctx, tx)
		require.NoError(t, err)
		_, err = store.Update(ctx, "ORD_any", domain.TransactionPatch{GatewayPaymentID: domain.Ptr("UTR999")})
		require.NoError(t, err)

		for _, id := range []string{"ORD_any", "UTR999", tx.ID} {
			found, err := store.FindByAnyID(ctx, id)
			require.NoError(t, err, id)
			assert.Equal(t, "ORD_any", found.OrderID)
		}

		_, err = store.FindByAnyID(ctx, "nothing")
		assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})

	t.Run("list stale returns old pending orders with a session", func(t *testing.T) {
		reset(t)
		old := NewPendingTransaction(t, "ORD_old", "")
		old.PaymentDetails[domain.DetailSession] = "s1"
		old.CreatedAt = time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
		old.UpdatedAt = old.CreatedAt
		_, _, err := store.Create(ctx, old)
		require.NoError(t, err)

		fresh := NewPendingTransaction(t, "ORD_fresh", "")
		fresh.PaymentDetails[domain.DetailSession] = "s2"
		_, _, err = store.Create(ctx, fresh)
		require.NoError(t, err)

		noSession := NewPendingTransaction(t, "ORD_nosession", "")
		noSession.CreatedAt = old.CreatedAt
		noSession.UpdatedAt = old.CreatedAt
		_, _, err = store.Create(ctx, noSession)
		require.NoError(t, err)

		stale, err := store.ListStale(ctx, time.Now().Add(-10*time.Minute), 10)
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.Equal(t, "ORD_old", stale[0].OrderID)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}
