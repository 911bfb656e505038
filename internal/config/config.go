package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Feeds    []FeedConfig   `mapstructure:"feeds"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Rate     RateConfig     `mapstructure:"rate"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Events   EventsConfig   `mapstructure:"events"`
	Sandbox  SandboxConfig  `mapstructure:"sandbox"`
}

type ServerConfig struct {
	Port                   string `mapstructure:"port"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

type AuthConfig struct {
	// Operator is the only identity allowed to call admin operations.
	Operator string `mapstructure:"operator"`
	// AdminKey, when set, lets requests carrying X-Admin-Key act as the operator.
	AdminKey string `mapstructure:"admin_key"`
	// RequireSignature makes every caller prove its address with a personal signature.
	// With it off, X-Caller-Address is trusted as-is on paid routes; admin routes
	// still need the admin key.
	RequireSignature bool `mapstructure:"require_signature"`
	MaxSkewSeconds   int  `mapstructure:"max_skew_seconds"`
}

type LedgerConfig struct {
	ReserveToken    string `mapstructure:"reserve_token"`
	ReserveDecimals int    `mapstructure:"reserve_decimals"`
	ReservePrice    string `mapstructure:"reserve_price"` // USD, e.g. "0.01175"
	Registry        string `mapstructure:"registry"`
}

// FeedConfig bootstraps a price feed at startup. Price is only used by the static oracle.
type FeedConfig struct {
	Currency string `mapstructure:"currency"`
	Oracle   string `mapstructure:"oracle"`
	Decimals int    `mapstructure:"decimals"`
	Price    string `mapstructure:"price"`
}

type ChainConfig struct {
	RPCURL             string `mapstructure:"rpc_url"`
	OracleCacheSeconds int    `mapstructure:"oracle_cache_seconds"`
	OracleTimeoutMs    int    `mapstructure:"oracle_timeout_ms"`
	OracleRetries      int    `mapstructure:"oracle_retries"`
}

type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Addr                  string `mapstructure:"addr"`
	Password              string `mapstructure:"password"`
	DB                    int    `mapstructure:"db"`
	IdempotencyTTLSeconds int    `mapstructure:"idempotency_ttl_seconds"`
	EventListKey          string `mapstructure:"event_list_key"`
	EventListMax          int    `mapstructure:"event_list_max"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic"`
	MaxRetries     int      `mapstructure:"max_retries"`
	RetryBackoffMs int      `mapstructure:"retry_backoff_ms"`
}

type RateConfig struct {
	QPS   float64 `mapstructure:"qps"`
	Burst int     `mapstructure:"burst"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type EventsConfig struct {
	LogDir     string `mapstructure:"log_dir"`
	BufferSize int    `mapstructure:"buffer_size"`
}

// SandboxConfig runs the registrar against in-memory tokens and an in-memory
// name registry instead of external systems.
type SandboxConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Holder  string         `mapstructure:"holder"`
	Tiers   []TierConfig   `mapstructure:"tiers"`
	Faucet  []FaucetConfig `mapstructure:"faucet"`
}

// TierConfig prices names of exactly Length characters, in reserve-unit tokens.
type TierConfig struct {
	Length int    `mapstructure:"length"`
	Price  string `mapstructure:"price"`
}

// FaucetConfig mints Amount whole tokens of Token to Account at startup.
type FaucetConfig struct {
	Token    string `mapstructure:"token"`
	Account  string `mapstructure:"account"`
	Amount   string `mapstructure:"amount"`
	Decimals int    `mapstructure:"decimals"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. NAMEGATE_AUTH_OPERATOR
	viper.SetEnvPrefix("namegate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("auth.operator", "")
	v.SetDefault("auth.admin_key", "")
	v.SetDefault("auth.require_signature", true)
	v.SetDefault("auth.max_skew_seconds", 300)
	v.SetDefault("ledger.reserve_token", "")
	v.SetDefault("ledger.reserve_decimals", 18)
	v.SetDefault("ledger.reserve_price", "")
	v.SetDefault("ledger.registry", "")
	v.SetDefault("chain.rpc_url", "")
	v.SetDefault("chain.oracle_cache_seconds", 15)
	v.SetDefault("chain.oracle_timeout_ms", 5000)
	v.SetDefault("chain.oracle_retries", 1)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.idempotency_ttl_seconds", 86400)
	v.SetDefault("redis.event_list_key", "namegate:events")
	v.SetDefault("redis.event_list_max", 10000)
	v.SetDefault("kafka.topic", "namegate.events")
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff_ms", 100)
	v.SetDefault("rate.qps", 5)
	v.SetDefault("rate.burst", 10)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("events.log_dir", "")
	v.SetDefault("events.buffer_size", 1000)
	v.SetDefault("sandbox.enabled", true)
}
