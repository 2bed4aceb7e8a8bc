package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

type TransactionRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{
		collection: db.Collection,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, bool, error) {
	doc, err := toDocument(tx)
	if err != nil {
		return nil, false, err
	}

	_, err = r.collection.InsertOne(ctx, doc)
	if err == nil {
		return tx, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, false, fmt.Errorf("failed to create transaction: %w", err)
	}

	// The order id wins over the idempotency key when both collide.
	existing, findErr := r.FindByOrderID(ctx, tx.OrderID)
	if findErr == nil {
		return existing, false, nil
	}
	if !errors.Is(findErr, domain.ErrTransactionNotFound) {
		return nil, false, findErr
	}
	return nil, false, domain.ErrDuplicateIdempotencyKey
}

// Update uses FindOneAndUpdate with the allowed prior states in the filter,
// so the status check and the write are one server-side operation.
func (r *TransactionRepository) Update(ctx context.Context, orderID string, patch domain.TransactionPatch) (*domain.Transaction, error) {
	update, err := updateDocument(patch, r.now())
	if err != nil {
		return nil, err
	}

	filter := bson.M{"orderId": orderID}
	if patch.Status != nil {
		allowed := make([]string, 0, len(domain.AllowedPriorStates(*patch.Status)))
		for _, s := range domain.AllowedPriorStates(*patch.Status) {
			allowed = append(allowed, string(s))
		}
		filter["status"] = bson.M{"$in": allowed}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc transactionDocument
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return toDomain(&doc)
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	current, err := r.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if patch.Status == nil {
		return nil, fmt.Errorf("update of %s matched no documents", orderID)
	}
	return nil, &domain.TransitionError{From: current.Status, To: *patch.Status}
}

func (r *TransactionRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	return r.findOne(ctx, bson.M{"orderId": orderID})
}

func (r *TransactionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	return r.findOne(ctx, bson.M{"idempotencyKey": key})
}

// FindByAnyID prefers an order id match, then a gateway payment id, then the internal id.
func (r *TransactionRepository) FindByAnyID(ctx context.Context, id string) (*domain.Transaction, error) {
	for _, filter := range []bson.M{
		{"orderId": id},
		{"gatewayPaymentId": id},
		{"_id": id},
	} {
		tx, err := r.findOne(ctx, filter)
		if err == nil {
			return tx, nil
		}
		if !errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, err
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (r *TransactionRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]*domain.Transaction, error) {
	filter := bson.M{
		"status":                 string(domain.StatusPending),
		"paymentDetails.session": bson.M{"$exists": true, "$ne": ""},
		"updatedAt":              bson.M{"$lt": before},
	}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: 1}}).SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []transactionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode stale transactions: %w", err)
	}

	txs := make([]*domain.Transaction, 0, len(docs))
	for i := range docs {
		tx, err := toDomain(&docs[i])
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (r *TransactionRepository) Ping(ctx context.Context) error {
	return r.collection.Database().Client().Ping(ctx, nil)
}

func (r *TransactionRepository) findOne(ctx context.Context, filter bson.M) (*domain.Transaction, error) {
	var doc transactionDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return toDomain(&doc)
}
