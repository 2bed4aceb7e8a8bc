package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const (
	envPrefix     = "GATEWAY_"
	configFileEnv = "GATEWAY_CONFIG_FILE"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Primary    Primary          `koanf:"primary"`
	Server     ServerConfig     `koanf:"server"`
	Logger     LoggerConfig     `koanf:"logger"`
	Store      StoreConfig      `koanf:"store"`
	Database   DatabaseConfig   `koanf:"database"`
	Mongo      MongoConfig      `koanf:"mongo"`
	Redis      RedisConfig      `koanf:"redis"`
	Gateway    GatewayConfig    `koanf:"gateway"`
	Retry      RetryConfig      `koanf:"retry"`
	Recharge   RechargeConfig   `koanf:"recharge"`
	Settlement SettlementConfig `koanf:"settlement"`
	Events     EventsConfig     `koanf:"events"`
	Worker     WorkerConfig     `koanf:"worker"`
	HTTP       HTTPConfig       `koanf:"http"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port              string        `koanf:"port" validate:"required"`
	ReadTimeout       time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout      time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout       time.Duration `koanf:"idle_timeout" validate:"required"`
	RequestTimeout    time.Duration `koanf:"request_timeout" validate:"required"`
	SettlementTimeout time.Duration `koanf:"settlement_timeout" validate:"required"`
	// PublicURL is advertised as the server in the API document.
	PublicURL string `koanf:"public_url" validate:"required"`
}

type StoreConfig struct {
	Driver string `koanf:"driver" validate:"required,oneof=mongo postgres memory"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	Migrate         bool          `koanf:"migrate"`
}

type MongoConfig struct {
	URI            string        `koanf:"uri"`
	Database       string        `koanf:"database"`
	Collection     string        `koanf:"collection"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// RedisConfig is optional. An empty Addr disables the idempotency lock.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	LockTTL  time.Duration `koanf:"lock_ttl"`
}

type GatewayConfig struct {
	Environment            string             `koanf:"environment" validate:"required,oneof=TEST PROD"`
	Test                   GatewayCredentials `koanf:"test"`
	Prod                   GatewayCredentials `koanf:"prod"`
	BaseURL                string             `koanf:"base_url"`
	APIVersion             string             `koanf:"api_version" validate:"required"`
	Timeout                time.Duration      `koanf:"timeout" validate:"required"`
	Currency               string             `koanf:"currency" validate:"required,len=3"`
	ReturnURL              string             `koanf:"return_url" validate:"required"`
	NotifyURL              string             `koanf:"notify_url"`
	VerifyWebhookSignature bool               `koanf:"verify_webhook_signature"`
}

type GatewayCredentials struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
}

type RetryConfig struct {
	BaseDelay  time.Duration `koanf:"base_delay"`
	MaxRetries int           `koanf:"max_retries"`
}

type RechargeConfig struct {
	Mode           string        `koanf:"mode" validate:"required,oneof=test live"`
	BaseURL        string        `koanf:"base_url"`
	APIKey         string        `koanf:"api_key"`
	SimulatedDelay time.Duration `koanf:"simulated_delay"`
	Timeout        time.Duration `koanf:"timeout" validate:"required"`
}

type SettlementConfig struct {
	MinDelay time.Duration `koanf:"min_delay"`
	MaxDelay time.Duration `koanf:"max_delay"`
}

// EventsConfig is optional. An empty AMQPURL disables status event publishing.
type EventsConfig struct {
	AMQPURL  string `koanf:"amqp_url"`
	Exchange string `koanf:"exchange"`
}

type WorkerConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Interval   time.Duration `koanf:"interval" validate:"required"`
	BatchSize  int           `koanf:"batch_size" validate:"required"`
	StaleAfter time.Duration `koanf:"stale_after" validate:"required"`
}

type HTTPConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
	RateLimit      int      `koanf:"rate_limit" validate:"required"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Credentials returns the credential pair for the configured gateway environment.
func (g GatewayConfig) Credentials() GatewayCredentials {
	if g.Environment == "PROD" {
		return g.Prod
	}
	return g.Test
}

// ResolvedBaseURL returns BaseURL when set, otherwise the Cashfree host for the environment.
func (g GatewayConfig) ResolvedBaseURL() string {
	if g.BaseURL != "" {
		return strings.TrimRight(g.BaseURL, "/")
	}
	if g.Environment == "PROD" {
		return "https://api.cashfree.com/pg"
	}
	return "https://sandbox.cashfree.com/pg"
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"primary.env":                      "development",
		"server.port":                      "8080",
		"server.read_timeout":              "15s",
		"server.write_timeout":             "30s",
		"server.idle_timeout":              "60s",
		"server.request_timeout":           "20s",
		"server.settlement_timeout":        "30s",
		"server.public_url":                "http://localhost:8080",
		"logger.level":                     "info",
		"logger.format":                    "text",
		"store.driver":                     StoreMongo,
		"database.port":                    5432,
		"database.ssl_mode":                "disable",
		"database.max_open_conns":          10,
		"database.max_idle_conns":          2,
		"database.conn_max_lifetime":       "1h",
		"database.conn_max_idle_time":      "30m",
		"database.migrate":                 true,
		"mongo.uri":                        "mongodb://localhost:27017",
		"mongo.database":                   "payments",
		"mongo.collection":                 "transactions",
		"mongo.connect_timeout":            "10s",
		"redis.lock_ttl":                   "30s",
		"gateway.environment":              "TEST",
		"gateway.api_version":              "2023-08-01",
		"gateway.timeout":                  "15s",
		"gateway.currency":                 "INR",
		"gateway.return_url":               "http://localhost:8080/payment/verify?order_id={order_id}",
		"gateway.verify_webhook_signature": false,
		"retry.base_delay":                 "500ms",
		"retry.max_retries":                3,
		"recharge.mode":                    "test",
		"recharge.simulated_delay":         "2s",
		"recharge.timeout":                 "20s",
		"settlement.min_delay":             "2s",
		"settlement.max_delay":             "3s",
		"events.exchange":                  "payments",
		"worker.enabled":                   false,
		"worker.interval":                  "1m",
		"worker.batch_size":                50,
		"worker.stale_after":               "10m",
		"http.allowed_origins":             []string{"*"},
		"http.rate_limit":                  20,
	}
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		logger.Error("failed to load defaults", "error", err)
		return nil, err
	}

	if path := os.Getenv(configFileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			logger.Error("failed to load config file", "path", path, "error", err)
			return nil, err
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	if err := mainConfig.Validate(); err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

// Validate runs struct tag validation followed by the checks that depend on
// which optional backends are selected.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}

	switch c.Store.Driver {
	case StorePostgres:
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
			return errors.New("database host, user and name are required for the postgres store")
		}
	case StoreMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" || c.Mongo.Collection == "" {
			return errors.New("mongo uri, database and collection are required for the mongo store")
		}
	}

	creds := c.Gateway.Credentials()
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("gateway credentials for environment %s are required", c.Gateway.Environment)
	}

	if c.Recharge.Mode == "live" && (c.Recharge.BaseURL == "" || c.Recharge.APIKey == "") {
		return errors.New("recharge base_url and api_key are required in live mode")
	}

	if c.Settlement.MaxDelay < c.Settlement.MinDelay {
		return errors.New("settlement max_delay must not be less than min_delay")
	}

	// The recharge runs after the settlement delay, inside the settlement budget.
	if budget := c.Server.SettlementTimeout - c.Settlement.MaxDelay; c.Recharge.Timeout >= budget {
		return fmt.Errorf("recharge timeout %s must be below settlement_timeout minus settlement max_delay (%s)",
			c.Recharge.Timeout, budget)
	}

	return nil
}
