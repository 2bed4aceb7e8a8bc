package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GATEWAY_GATEWAY__TEST__CLIENT_ID", "test-app")
	t.Setenv("GATEWAY_GATEWAY__TEST__CLIENT_SECRET", "test-secret")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StoreMongo, cfg.Store.Driver)
	assert.Equal(t, "TEST", cfg.Gateway.Environment)
	assert.Equal(t, "2023-08-01", cfg.Gateway.APIVersion)
	assert.Equal(t, 15*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Settlement.MinDelay)
	assert.Equal(t, 3*time.Second, cfg.Settlement.MaxDelay)
	assert.Equal(t, 20*time.Second, cfg.Recharge.Timeout)
	assert.Equal(t, "https://sandbox.cashfree.com/pg", cfg.Gateway.ResolvedBaseURL())
	assert.False(t, cfg.Worker.Enabled)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GATEWAY_STORE__DRIVER", "memory")
	t.Setenv("GATEWAY_SERVER__PORT", "9090")
	t.Setenv("GATEWAY_GATEWAY__TIMEOUT", "5s")
	t.Setenv("GATEWAY_WORKER__ENABLED", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Gateway.Timeout)
	assert.True(t, cfg.Worker.Enabled)
}

func TestLoadConfig_ProdCredentialsSelected(t *testing.T) {
	t.Setenv("GATEWAY_GATEWAY__ENVIRONMENT", "PROD")
	t.Setenv("GATEWAY_GATEWAY__PROD__CLIENT_ID", "prod-app")
	t.Setenv("GATEWAY_GATEWAY__PROD__CLIENT_SECRET", "prod-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "prod-app", cfg.Gateway.Credentials().ClientID)
	assert.Equal(t, "https://api.cashfree.com/pg", cfg.Gateway.ResolvedBaseURL())
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		t.Setenv("GATEWAY_GATEWAY__ENVIRONMENT", "PROD")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("unknown store driver", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("GATEWAY_STORE__DRIVER", "sqlite")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("recharge timeout exceeds settlement budget", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("GATEWAY_RECHARGE__TIMEOUT", "28s")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "recharge timeout")
	})

	t.Run("postgres without host", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("GATEWAY_STORE__DRIVER", "postgres")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("inverted settlement delays", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("GATEWAY_SETTLEMENT__MIN_DELAY", "5s")
		t.Setenv("GATEWAY_SETTLEMENT__MAX_DELAY", "1s")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}

func TestLoggerConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LoggerConfig{Level: "warn", Format: "json"}.NewLogger(&buf, "development")

	logger.Info("dropped")
	logger.Warn("kept", "order_id", "ORD_1")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"order_id":"ORD_1"`)
}
