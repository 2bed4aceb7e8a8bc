// Package mongo stores transactions as documents in a single collection.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/config"
)

const (
	orderIDIndex        = "ux_orderId"
	idempotencyKeyIndex = "ux_idempotencyKey"
)

type DB struct {
	Client     *mongo.Client
	Collection *mongo.Collection
	logger     *slog.Logger
}

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, cfg *config.MongoConfig, logger *slog.Logger) (*DB, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	logger.Info("connecting to mongo", "database", cfg.Database, "collection", cfg.Collection)

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		logger.Error("failed to connect to mongo", "error", err)
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		logger.Error("failed to ping mongo", "error", err)
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	logger.Info("successfully connected to mongo")

	return &DB{
		Client:     client,
		Collection: client.Database(cfg.Database).Collection(cfg.Collection),
		logger:     logger,
	}, nil
}

// EnsureIndexes creates the unique and lookup indexes the store relies on.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderId", Value: 1}},
			Options: options.Index().SetName(orderIDIndex).SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "idempotencyKey", Value: 1}},
			Options: options.Index().
				SetName(idempotencyKeyIndex).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"idempotencyKey": bson.M{"$type": "string"}}),
		},
		{
			Keys:    bson.D{{Key: "gatewayPaymentId", Value: 1}},
			Options: options.Index().SetName("ix_gatewayPaymentId"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "updatedAt", Value: 1}},
			Options: options.Index().SetName("ix_status_updatedAt"),
		},
	}

	if _, err := db.Collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func (db *DB) Close(ctx context.Context) error {
	db.logger.Info("closing mongo client")
	return db.Client.Disconnect(ctx)
}
