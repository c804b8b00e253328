package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config holds application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Log        LogConfig        `mapstructure:"log"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	Commodity  CommodityConfig  `mapstructure:"commodity"`
	Seed       SeedConfig       `mapstructure:"seed"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// StoreConfig picks the backends. Accounts overrides Driver for the account
// store only, so balances can live in redis while the ledger stays in postgres.
type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	Accounts string `mapstructure:"accounts"`
}

type DatabaseConfig struct {
	URL     string `mapstructure:"url"`
	Migrate bool   `mapstructure:"migrate"`
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
	DB   int    `mapstructure:"db"`
}

// KafkaConfig holds publisher settings. No brokers means events are not published.
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

func (k KafkaConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

type LogConfig struct {
	Env   string `mapstructure:"env"`
	Level string `mapstructure:"level"`
}

type ReconcilerConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

type CommodityConfig struct {
	Rate string `mapstructure:"rate"`
}

// PerGram is the configured commodity price.
func (c CommodityConfig) PerGram() decimal.Decimal {
	rate, _ := decimal.NewFromString(c.Rate)
	return rate
}

type SeedConfig struct {
	Demo bool `mapstructure:"demo"`
}

// Load reads an optional .env file, then the environment. Env var overrides
// use prefix LEDGER_, e.g. LEDGER_STORE_DRIVER.
func Load() (Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	v := viper.New()

	// default values
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.accounts", "")
	v.SetDefault("database.url", "")
	v.SetDefault("database.migrate", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "transfer_completed")
	v.SetDefault("log.env", "production")
	v.SetDefault("log.level", "")
	v.SetDefault("reconciler.interval", "30s")
	v.SetDefault("reconciler.stale_after", "1m")
	v.SetDefault("commodity.rate", "13600")
	v.SetDefault("seed.demo", false)

	v.SetEnvPrefix("LEDGER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverPostgres:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Store.Accounts {
	case "", DriverRedis:
	default:
		return fmt.Errorf("unknown account store %q", c.Store.Accounts)
	}
	if c.Store.Driver == DriverPostgres && c.Database.URL == "" {
		return fmt.Errorf("database.url is required for the postgres driver")
	}
	rate, err := decimal.NewFromString(c.Commodity.Rate)
	if err != nil {
		return fmt.Errorf("commodity.rate: %w", err)
	}
	if !rate.IsPositive() {
		return fmt.Errorf("commodity.rate must be positive, got %s", rate)
	}
	if c.Reconciler.Interval <= 0 || c.Reconciler.StaleAfter <= 0 {
		return fmt.Errorf("reconciler interval and stale_after must be positive")
	}
	return nil
}
