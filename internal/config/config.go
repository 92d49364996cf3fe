// Package config defines the top-level configuration for the maker bot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MAKERBOT_* environment variables.
type Config struct {
	Wallet   WalletConfig   `toml:"wallet"`
	Chain    ChainConfig    `toml:"chain"`
	Radar    RadarConfig    `toml:"radar"`
	Venues   VenuesConfig   `toml:"venues"`
	Index    IndexConfig    `toml:"index"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Strategy StrategyConfig `toml:"strategy"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// WalletConfig holds the trading account credentials. Either a raw private
// key or an encrypted key file plus password must be provided for modes that
// sign transactions.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// ChainConfig holds node and contract parameters for the chain the orders
// settle on.
type ChainConfig struct {
	RPCURL  string `toml:"rpc_url"`
	ChainID int64  `toml:"chain_id"`
	// GasPriceGwei is the gas price used for preflight and order transactions.
	GasPriceGwei float64 `toml:"gas_price_gwei"`
	// GasFloorURL is an optional endpoint reporting a safe-low gas price; when
	// set, a configured gas price below the safe-low is logged as a warning.
	GasFloorURL string `toml:"gas_floor_url"`
	// WrappedNativeAddress is the wrapped native asset contract, e.g. WETH.
	WrappedNativeAddress string `toml:"wrapped_native_address"`
	// ExchangeProxyAddress is the spender granted token allowances.
	ExchangeProxyAddress string `toml:"exchange_proxy_address"`
}

// RadarConfig holds DEX API parameters.
type RadarConfig struct {
	APIURL  string   `toml:"api_url"`
	Timeout duration `toml:"timeout"`
}

// VenuesConfig lists the external venues consulted by the ticker aggregator.
type VenuesConfig struct {
	// Enabled is the ordered list of venue identifiers, e.g. ["binance","kraken"].
	Enabled []string `toml:"enabled"`
	// QuoteAsset is the native quote symbol pairs must be quoted in to enter
	// the venue index, e.g. "ETH".
	QuoteAsset string `toml:"quote_asset"`
	// WrappedQuoteAsset is the wrapped form of QuoteAsset, e.g. "WETH".
	WrappedQuoteAsset string `toml:"wrapped_quote_asset"`
	// FetchTimeout bounds each venue catalogue or ticker call.
	FetchTimeout duration `toml:"fetch_timeout"`
}

// IndexConfig holds venue index persistence parameters.
type IndexConfig struct {
	// Path is the on-disk location of the venue index cache file.
	Path string `toml:"path"`
	// UseRedis stores the index in Redis instead of the cache file.
	UseRedis bool `toml:"use_redis"`
	// ArchiveSnapshots uploads a copy of the index to S3 on every rebuild.
	ArchiveSnapshots bool `toml:"archive_snapshots"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; it backs
// the index store variant and the rebuild lock.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds connection parameters for the order journal database.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters for index snapshots.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// StrategyConfig holds the spread-ladder parameters.
type StrategyConfig struct {
	// Spreads is the ordered list of spread fractions; order is significant
	// because each band's price compounds off the previous band.
	Spreads []float64 `toml:"spreads"`
	// ExpirationHours is how long each placed order remains valid.
	ExpirationHours float64 `toml:"expiration_hours"`
	// WrapThreshold is the native balance at or above which preflight wraps.
	WrapThreshold float64 `toml:"wrap_threshold"`
	// WrapReserveFraction is the share of the native balance left unwrapped
	// to cover network fees.
	WrapReserveFraction float64 `toml:"wrap_reserve_fraction"`
	// SubmitDelay is the pause between consecutive submissions per side.
	SubmitDelay duration `toml:"submit_delay"`
}

// NotifyConfig configures operator notifications. A channel is active when
// its credentials are set; with no channels configured notifications are
// silently dropped.
type NotifyConfig struct {
	TelegramToken  string `toml:"telegram_token"`
	TelegramChatID string `toml:"telegram_chat_id"`
	DiscordWebhook string `toml:"discord_webhook"`
	// Events restricts which event types are delivered; empty allows all.
	Events []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			RPCURL:       "http://localhost:8545",
			ChainID:      1,
			GasPriceGwei: 4,
			GasFloorURL:  "https://ethgasstation.info/json/ethgasAPI.json",
		},
		Radar: RadarConfig{
			APIURL:  "https://api.radarrelay.com/v2",
			Timeout: duration{10 * time.Second},
		},
		Venues: VenuesConfig{
			Enabled:           []string{"binance", "kraken", "kucoin"},
			QuoteAsset:        "ETH",
			WrappedQuoteAsset: "WETH",
			FetchTimeout:      duration{10 * time.Second},
		},
		Index: IndexConfig{
			Path: ".cache.json",
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "makerbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "makerbot-data",
			ForcePathStyle: true,
		},
		Strategy: StrategyConfig{
			Spreads:             []float64{0.01, 0.02, 0.03},
			ExpirationHours:     24,
			WrapThreshold:       0.1,
			WrapReserveFraction: 0.02,
			SubmitDelay:         duration{2 * time.Second},
		},
		Mode:     "quote",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"rebuild":  true,
	"quote":    true,
	"seed":     true,
	"balances": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// needsWallet reports whether the mode signs transactions or reads balances.
func needsWallet(mode string) bool {
	return mode == "seed" || mode == "balances"
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: rebuild, quote, seed, balances)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if needsWallet(mode) {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode "+mode)
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
		if c.Chain.RPCURL == "" {
			errs = append(errs, "chain: rpc_url must not be empty for mode "+mode)
		}
		if c.Chain.ChainID <= 0 {
			errs = append(errs, fmt.Sprintf("chain: chain_id must be positive, got %d", c.Chain.ChainID))
		}
		if c.Chain.GasPriceGwei <= 0 {
			errs = append(errs, "chain: gas_price_gwei must be > 0")
		}
	}
	if mode == "seed" {
		if c.Chain.WrappedNativeAddress == "" {
			errs = append(errs, "chain: wrapped_native_address must be set for mode seed")
		}
		if c.Chain.ExchangeProxyAddress == "" {
			errs = append(errs, "chain: exchange_proxy_address must be set for mode seed")
		}
	}

	if c.Radar.APIURL == "" {
		errs = append(errs, "radar: api_url must not be empty")
	}

	if len(c.Venues.Enabled) == 0 {
		errs = append(errs, "venues: at least one venue must be enabled")
	}
	if c.Venues.QuoteAsset == "" {
		errs = append(errs, "venues: quote_asset must not be empty")
	}
	if c.Venues.WrappedQuoteAsset == "" {
		errs = append(errs, "venues: wrapped_quote_asset must not be empty")
	}
	if c.Venues.QuoteAsset != "" && c.Venues.QuoteAsset == c.Venues.WrappedQuoteAsset {
		errs = append(errs, "venues: quote_asset and wrapped_quote_asset must differ")
	}
	if c.Venues.FetchTimeout.Duration <= 0 {
		errs = append(errs, "venues: fetch_timeout must be > 0")
	}

	if c.Index.Path == "" && !c.Index.UseRedis {
		errs = append(errs, "index: path must not be empty unless use_redis is set")
	}
	if c.Index.UseRedis && !c.Redis.Enabled {
		errs = append(errs, "index: use_redis requires redis.enabled")
	}
	if c.Index.ArchiveSnapshots && c.S3.Bucket == "" {
		errs = append(errs, "index: archive_snapshots requires s3.bucket")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Postgres.Enabled && strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}

	if len(c.Strategy.Spreads) == 0 {
		errs = append(errs, "strategy: at least one spread must be configured")
	}
	for i, s := range c.Strategy.Spreads {
		if s <= 0 || s >= 1 {
			errs = append(errs, fmt.Sprintf("strategy: spreads[%d] must be a fraction in (0,1), got %g", i, s))
		}
	}
	if c.Strategy.ExpirationHours <= 0 {
		errs = append(errs, "strategy: expiration_hours must be > 0")
	}
	if c.Strategy.WrapThreshold < 0 {
		errs = append(errs, "strategy: wrap_threshold must be >= 0")
	}
	if c.Strategy.WrapReserveFraction < 0 || c.Strategy.WrapReserveFraction >= 1 {
		errs = append(errs, "strategy: wrap_reserve_fraction must be in [0,1)")
	}
	if c.Strategy.SubmitDelay.Duration < 0 {
		errs = append(errs, "strategy: submit_delay must be >= 0")
	}

	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
