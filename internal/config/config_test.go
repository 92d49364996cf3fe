package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()

	// Defaults run in quote mode and need no wallet or chain settings.
	assert.NoError(t, cfg.Validate())
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "yolo"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateSeedRequiresWalletAndContracts(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "seed"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private_key or encrypted_key_path")
	assert.Contains(t, err.Error(), "wrapped_native_address")
	assert.Contains(t, err.Error(), "exchange_proxy_address")
}

func TestValidateSeedComplete(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "seed"
	cfg.Wallet.PrivateKey = "4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d"
	cfg.Chain.WrappedNativeAddress = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	cfg.Chain.ExchangeProxyAddress = "0x2240dab907db71e64d3e0dba4800c83b5c502d4e"

	assert.NoError(t, cfg.Validate())
}

func TestValidateEncryptedKeyNeedsPassword(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "balances"
	cfg.Wallet.EncryptedKeyPath = "key.json"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password")
}

func TestValidateSpreadBounds(t *testing.T) {
	cfg := Defaults()
	cfg.Strategy.Spreads = []float64{0.01, 1.5}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spreads[1]")

	cfg.Strategy.Spreads = nil
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one spread")
}

func TestValidateIndexDependencies(t *testing.T) {
	cfg := Defaults()
	cfg.Index.UseRedis = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "use_redis requires redis.enabled")

	cfg = Defaults()
	cfg.Index.ArchiveSnapshots = true
	cfg.S3.Bucket = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive_snapshots requires s3.bucket")
}

func TestValidateTelegramPairing(t *testing.T) {
	cfg := Defaults()
	cfg.Notify.TelegramToken = "token-only"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram_token and telegram_chat_id")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "rebuild"
log_level = "debug"

[venues]
enabled = ["binance", "kraken"]

[strategy]
spreads = [0.005, 0.015]
submit_delay = "3s"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "rebuild", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"binance", "kraken"}, cfg.Venues.Enabled)
	assert.Equal(t, []float64{0.005, 0.015}, cfg.Strategy.Spreads)
	assert.Equal(t, 3*time.Second, cfg.Strategy.SubmitDelay.Duration)

	// Untouched sections keep their defaults.
	assert.Equal(t, "ETH", cfg.Venues.QuoteAsset)
	assert.Equal(t, ".cache.json", cfg.Index.Path)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`mode = "quote"`), 0o644))

	t.Setenv("MAKERBOT_MODE", "rebuild")
	t.Setenv("MAKERBOT_WALLET_PRIVATE_KEY", "deadbeef")
	t.Setenv("MAKERBOT_VENUES_ENABLED", "kraken, kucoin")
	t.Setenv("MAKERBOT_STRATEGY_SPREADS", "0.02,0.04")
	t.Setenv("MAKERBOT_REDIS_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "rebuild", cfg.Mode)
	assert.Equal(t, "deadbeef", cfg.Wallet.PrivateKey)
	assert.Equal(t, []string{"kraken", "kucoin"}, cfg.Venues.Enabled)
	assert.Equal(t, []float64{0.02, 0.04}, cfg.Strategy.Spreads)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
