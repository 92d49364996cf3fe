package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MAKERBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MAKERBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "MAKERBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "MAKERBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "MAKERBOT_WALLET_KEY_PASSWORD")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "MAKERBOT_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "MAKERBOT_CHAIN_ID")
	setFloat64(&cfg.Chain.GasPriceGwei, "MAKERBOT_CHAIN_GAS_PRICE_GWEI")
	setStr(&cfg.Chain.GasFloorURL, "MAKERBOT_CHAIN_GAS_FLOOR_URL")
	setStr(&cfg.Chain.WrappedNativeAddress, "MAKERBOT_CHAIN_WRAPPED_NATIVE_ADDRESS")
	setStr(&cfg.Chain.ExchangeProxyAddress, "MAKERBOT_CHAIN_EXCHANGE_PROXY_ADDRESS")

	// ── Radar ──
	setStr(&cfg.Radar.APIURL, "MAKERBOT_RADAR_API_URL")
	setDuration(&cfg.Radar.Timeout, "MAKERBOT_RADAR_TIMEOUT")

	// ── Venues ──
	setStringSlice(&cfg.Venues.Enabled, "MAKERBOT_VENUES_ENABLED")
	setStr(&cfg.Venues.QuoteAsset, "MAKERBOT_VENUES_QUOTE_ASSET")
	setStr(&cfg.Venues.WrappedQuoteAsset, "MAKERBOT_VENUES_WRAPPED_QUOTE_ASSET")
	setDuration(&cfg.Venues.FetchTimeout, "MAKERBOT_VENUES_FETCH_TIMEOUT")

	// ── Index ──
	setStr(&cfg.Index.Path, "MAKERBOT_INDEX_PATH")
	setBool(&cfg.Index.UseRedis, "MAKERBOT_INDEX_USE_REDIS")
	setBool(&cfg.Index.ArchiveSnapshots, "MAKERBOT_INDEX_ARCHIVE_SNAPSHOTS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "MAKERBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "MAKERBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MAKERBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MAKERBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MAKERBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MAKERBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MAKERBOT_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "MAKERBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "MAKERBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MAKERBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MAKERBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MAKERBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MAKERBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MAKERBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MAKERBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MAKERBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MAKERBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MAKERBOT_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "MAKERBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MAKERBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "MAKERBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MAKERBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MAKERBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MAKERBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MAKERBOT_S3_FORCE_PATH_STYLE")

	// ── Strategy ──
	setFloatSlice(&cfg.Strategy.Spreads, "MAKERBOT_STRATEGY_SPREADS")
	setFloat64(&cfg.Strategy.ExpirationHours, "MAKERBOT_STRATEGY_EXPIRATION_HOURS")
	setFloat64(&cfg.Strategy.WrapThreshold, "MAKERBOT_STRATEGY_WRAP_THRESHOLD")
	setFloat64(&cfg.Strategy.WrapReserveFraction, "MAKERBOT_STRATEGY_WRAP_RESERVE_FRACTION")
	setDuration(&cfg.Strategy.SubmitDelay, "MAKERBOT_STRATEGY_SUBMIT_DELAY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MAKERBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MAKERBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhook, "MAKERBOT_NOTIFY_DISCORD_WEBHOOK")
	setStringSlice(&cfg.Notify.Events, "MAKERBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MAKERBOT_MODE")
	setStr(&cfg.LogLevel, "MAKERBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

func setFloatSlice(dst *[]float64, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]float64, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return
			}
			cleaned = append(cleaned, f)
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
