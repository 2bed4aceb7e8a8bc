package testhelpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/config"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/infrastructure/persistence/mongo"
)

type TestMongo struct {
	Container testcontainers.Container
	DB        *mongo.DB
	Config    *config.MongoConfig
}

func SetupTestMongo(t *testing.T) *TestMongo {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping mongo integration test in short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor: wait.ForLog("Waiting for connections").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	cfg := &config.MongoConfig{
		URI:            fmt.Sprintf("mongodb://%s:%s", host, port.Port()),
		Database:       "payments_test",
		Collection:     "transactions",
		ConnectTimeout: 10 * time.Second,
	}

	db, err := mongo.Connect(ctx, cfg, quietLogger())
	require.NoError(t, err)
	require.NoError(t, db.EnsureIndexes(ctx))

	return &TestMongo{
		Container: container,
		DB:        db,
		Config:    cfg,
	}
}

func (tm *TestMongo) Cleanup(t *testing.T) {
	require.NoError(t, tm.DB.Close(context.Background()))
	require.NoError(t, tm.Container.Terminate(context.Background()))
}

func (tm *TestMongo) CleanCollection(t *testing.T) {
	_, err := tm.DB.Collection.DeleteMany(context.Background(), map[string]any{})
	require.NoError(t, err)
}
