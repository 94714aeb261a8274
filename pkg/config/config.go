package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MustLoad loads the configuration from environment variables and .env file.
func MustLoad[T any](cfg T) {
	_ = godotenv.Load() // Load environment variables from .env file

	env.Must(cfg, env.Parse(cfg))
}

// Load loads the configuration from environment variables and .env file.
func Load[T any](cfg T) error {
	_ = godotenv.Load() // .env is optional

	if err := env.Parse(cfg); err != nil {
		return err
	}

	return nil
}

// Config holds the configuration for the engine.
type Config struct {
	Pair string `env:"PAIR" envDefault:"BTC-USDT"` // Trading pair, e.g., BTC-USDT

	KafkaConfig          `envPrefix:"KAFKA_"`
	TradePublisherConfig `envPrefix:"TRADE_PUBLISHER_"`
	RedisConfig          `envPrefix:"REDIS_"`
	PostgresConfig       `envPrefix:"POSTGRES_"`
	PoolConfig           `envPrefix:"POOL_"`
	MarketMakerConfig    `envPrefix:"MM_"`
	OracleConfig         `envPrefix:"ORACLE_"`
	TradeLogConfig       `envPrefix:"TRADELOG_"`

	SnapshotInterval int `env:"SNAPSHOT_INTERVAL_SECONDS" envDefault:"30"`
}

// KafkaConfig holds the configuration for the order stream consumer.
type KafkaConfig struct {
	Topic   string   `env:"TOPIC" envDefault:"orders"`
	GroupID string   `env:"GROUP_ID" envDefault:"default_group"`
	Brokers []string `env:"BROKER" envDefault:"localhost:9092"`
}

// TradePublisherConfig holds the configuration for the trade event producer.
type TradePublisherConfig struct {
	Topic   string   `env:"TOPIC" envDefault:"trades"`
	Brokers []string `env:"BROKER" envDefault:"localhost:9092"`
}

// RedisConfig holds the configuration for the snapshot store connection.
type RedisConfig struct {
	Addrs    string `env:"ADDRESS" envDefault:"localhost:6379"` // Comma-separated list of Redis addresses
	Password string `env:"PASSWORD" envDefault:""`
	Username string `env:"USERNAME" envDefault:""`
	DB       int    `env:"DB" envDefault:"0"`
}

// PostgresConfig holds the configuration for the trade archive. Archiving is
// disabled when Enabled is false.
type PostgresConfig struct {
	Enabled       bool   `env:"ENABLED" envDefault:"false"`
	Host          string `env:"HOST" envDefault:"localhost"`
	Port          int    `env:"PORT" envDefault:"5432"`
	User          string `env:"USER" envDefault:"postgres"`
	Password      string `env:"PASSWORD" envDefault:""`
	Database      string `env:"DATABASE" envDefault:"tradeshield"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
}

// PoolConfig seeds the pair's liquidity pool. A pool with zero reserves is
// not created.
type PoolConfig struct {
	ReserveBase  string `env:"RESERVE_BASE" envDefault:"0"`
	ReserveQuote string `env:"RESERVE_QUOTE" envDefault:"0"`
	FeeBps       int64  `env:"FEE_BPS" envDefault:"30"`
}

// MarketMakerConfig drives the built-in maker scheduler.
type MarketMakerConfig struct {
	Enabled         bool   `env:"ENABLED" envDefault:"false"`
	Account         string `env:"ACCOUNT" envDefault:"maker-1"`
	SpreadBps       int64  `env:"SPREAD_BPS" envDefault:"50"`
	SizeFraction    string `env:"SIZE_FRACTION" envDefault:"0.1"`
	IntervalSeconds int    `env:"INTERVAL_SECONDS" envDefault:"5"`
	SeedBase        string `env:"SEED_BASE" envDefault:"0"`
	SeedQuote       string `env:"SEED_QUOTE" envDefault:"0"`
}

// OracleConfig points the maker scheduler at an external price feed.
type OracleConfig struct {
	URL            string `env:"URL" envDefault:""`
	TimeoutSeconds int    `env:"TIMEOUT_SECONDS" envDefault:"2"`
	MaxAgeSeconds  int    `env:"MAX_AGE_SECONDS" envDefault:"60"`
}

// TradeLogConfig bounds the in-memory trade history.
type TradeLogConfig struct {
	MaxEntries    int `env:"MAX_ENTRIES" envDefault:"100000"`
	RetentionDays int `env:"RETENTION_DAYS" envDefault:"30"`
}
