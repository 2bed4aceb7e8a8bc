package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

const idempotencyKeyIndex = "ux_transactions_idempotency_key"

type TransactionRepository struct {
	db  *DB
	now func() time.Time
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, bool, error) {
	query := `
		INSERT INTO transactions (
			id, order_id, amount, currency, payment_method, status,
			idempotency_key, gateway_order_id, gateway_payment_id, gateway_status,
			payment_details, gateway_payload,
			customer_name, customer_phone, customer_email,
			description, failure_reason, verification_reference,
			recharge_mobile, recharge_operator, recharge_plan_id,
			recharge_status, recharge_transaction_id, recharge_message,
			settled_at, created_at, updated_at
		) VALUES (
			$1, $2, $3::numeric, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12::jsonb,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27
		)
		ON CONFLICT (order_id) DO NOTHING
		RETURNING ` + selectColumns

	m, err := toDBModel(tx)
	if err != nil {
		return nil, false, err
	}

	row := r.db.Pool.QueryRow(ctx, query,
		m.ID, m.OrderID, m.Amount, m.Currency, m.PaymentMethod, m.Status,
		m.IdempotencyKey, m.GatewayOrderID, m.GatewayPaymentID, m.GatewayStatus,
		m.PaymentDetails, m.GatewayPayload,
		m.CustomerName, m.CustomerPhone, m.CustomerEmail,
		m.Description, m.FailureReason, m.VerificationReference,
		m.RechargeMobile, m.RechargeOperator, m.RechargePlanID,
		m.RechargeStatus, m.RechargeTransactionID, m.RechargeMessage,
		m.SettledAt, m.CreatedAt, m.UpdatedAt,
	)

	created, err := scanTransaction(row)
	switch {
	case err == nil:
		return created, true, nil
	case errors.Is(err, domain.ErrTransactionNotFound):
		existing, err := r.FindByOrderID(ctx, tx.OrderID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	case IsUniqueViolation(err, idempotencyKeyIndex):
		return nil, false, domain.ErrDuplicateIdempotencyKey
	default:
		return nil, false, fmt.Errorf("failed to create transaction: %w", err)
	}
}

// Update applies patch in a single statement. The status precondition lives
// in the WHERE clause so concurrent callbacks cannot interleave a read and a
// write.
func (r *TransactionRepository) Update(ctx context.Context, orderID string, patch domain.TransactionPatch) (*domain.Transaction, error) {
	query := `
		UPDATE transactions SET
			status                  = COALESCE($2, status),
			gateway_order_id        = COALESCE($3, gateway_order_id),
			gateway_payment_id      = COALESCE($4, gateway_payment_id),
			gateway_status          = COALESCE($5, gateway_status),
			failure_reason          = COALESCE($6, failure_reason),
			verification_reference  = COALESCE($7, verification_reference),
			description             = COALESCE($8, description),
			amount                  = COALESCE($9::numeric, amount),
			payment_details         = payment_details || COALESCE($10::jsonb, '{}'::jsonb),
			gateway_payload         = COALESCE($11::jsonb, gateway_payload),
			recharge_status         = CASE WHEN recharge_mobile IS NULL THEN recharge_status ELSE COALESCE($12, recharge_status) END,
			recharge_transaction_id = CASE WHEN recharge_mobile IS NULL THEN recharge_transaction_id ELSE COALESCE($13, recharge_transaction_id) END,
			recharge_message        = CASE WHEN recharge_mobile IS NULL THEN recharge_message ELSE COALESCE($14, recharge_message) END,
			settled_at              = COALESCE($15::timestamptz, settled_at),
			updated_at              = $16
		WHERE order_id = $1
		  AND ($17::text[] IS NULL OR status = ANY($17::text[]))
		RETURNING ` + selectColumns

	args, err := patchArgs(patch)
	if err != nil {
		return nil, err
	}

	var allowed []string
	if patch.Status != nil {
		allowed = make([]string, 0, len(domain.AllowedPriorStates(*patch.Status)))
		for _, s := range domain.AllowedPriorStates(*patch.Status) {
			allowed = append(allowed, string(s))
		}
	}

	params := append([]any{orderID}, args...)
	params = append(params, r.now(), allowed)

	updated, err := scanTransaction(r.db.Pool.QueryRow(ctx, query, params...))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	// Zero rows: either the order is unknown or the precondition failed.
	var current string
	err = r.db.Pool.QueryRow(ctx, `SELECT status FROM transactions WHERE order_id = $1`, orderID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction status: %w", err)
	}
	if patch.Status == nil {
		return nil, fmt.Errorf("update of %s matched no rows", orderID)
	}
	return nil, &domain.TransitionError{From: domain.Status(current), To: *patch.Status}
}

// patchArgs returns parameters $2..$15 of the update statement.
func patchArgs(p domain.TransactionPatch) ([]any, error) {
	var status *string
	if p.Status != nil {
		s := string(*p.Status)
		status = &s
	}

	var amount *string
	if p.Amount != nil {
		a := p.Amount.StringFixed(2)
		amount = &a
	}

	var details *string
	if len(p.Details) > 0 {
		b, err := json.Marshal(p.Details)
		if err != nil {
			return nil, fmt.Errorf("encode payment details: %w", err)
		}
		d := string(b)
		details = &d
	}

	var payload *string
	if len(p.GatewayPayload) > 0 {
		s := string(p.GatewayPayload)
		payload = &s
	}

	var rechargeStatus, rechargeID, rechargeMessage *string
	if p.RechargeResult != nil {
		rechargeStatus = &p.RechargeResult.Status
		rechargeID = &p.RechargeResult.TransactionID
		rechargeMessage = &p.RechargeResult.Message
	}

	return []any{
		status,
		p.GatewayOrderID,
		p.GatewayPaymentID,
		p.GatewayStatus,
		p.FailureReason,
		p.VerificationReference,
		p.Description,
		amount,
		details,
		payload,
		rechargeStatus,
		rechargeID,
		rechargeMessage,
		p.SettledAt,
	}, nil
}

func (r *TransactionRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	query := `SELECT ` + selectColumns + ` FROM transactions WHERE order_id = $1`
	return scanTransaction(r.db.Pool.QueryRow(ctx, query, orderID))
}

func (r *TransactionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	query := `SELECT ` + selectColumns + ` FROM transactions WHERE idempotency_key = $1`
	return scanTransaction(r.db.Pool.QueryRow(ctx, query, key))
}

// FindByAnyID prefers an order id match, then a gateway payment id, then the internal id.
func (r *TransactionRepository) FindByAnyID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM transactions
		WHERE order_id = $1 OR gateway_payment_id = $1 OR id::text = $1
		ORDER BY (order_id = $1) DESC, (gateway_payment_id = $1) DESC NULLS LAST
		LIMIT 1`
	return scanTransaction(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *TransactionRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM transactions
		WHERE status = $1
		  AND payment_details ->> 'session' IS NOT NULL
		  AND updated_at < $2
		ORDER BY updated_at
		LIMIT $3`

	rows, err := r.db.Pool.Query(ctx, query, string(domain.StatusPending), before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale transactions: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Transaction, error) {
		return scanTransaction(row)
	})
}

func (r *TransactionRepository) Ping(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var m transactionModel
	if err := row.Scan(m.scanTargets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return toDomainModel(&m)
}
