package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/seedliq/makerbot/internal/aggregator"
	s3blob "github.com/seedliq/makerbot/internal/blob/s3"
	"github.com/seedliq/makerbot/internal/cache/redis"
	"github.com/seedliq/makerbot/internal/config"
	"github.com/seedliq/makerbot/internal/domain"
	"github.com/seedliq/makerbot/internal/index"
	"github.com/seedliq/makerbot/internal/notify"
	"github.com/seedliq/makerbot/internal/platform/eth"
	"github.com/seedliq/makerbot/internal/platform/radar"
	"github.com/seedliq/makerbot/internal/store/postgres"
	"github.com/seedliq/makerbot/internal/venue"
	"github.com/seedliq/makerbot/internal/wallet"
)

// Dependencies bundles every dependency the modes operate on. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Cache      *index.Cache
	Rebuilder  *index.Rebuilder
	Aggregator *aggregator.Aggregator
	Dex        domain.DexClient
	Formatter  domain.SymbolFormatter

	// Journal is nil unless postgres is enabled.
	Journal domain.OrderJournal

	// Account is nil for modes that do not touch the chain.
	Account domain.AccountService

	Notifier *notify.Notifier
}

// needsWallet reports whether the mode signs transactions or reads balances.
func needsWallet(mode string) bool {
	return mode == "seed" || mode == "balances"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function to be
// called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Formatter: domain.SymbolFormatter{
			NativeQuote:  strings.ToUpper(cfg.Venues.QuoteAsset),
			WrappedQuote: strings.ToUpper(cfg.Venues.WrappedQuoteAsset),
		},
	}

	// --- Redis (optional; backs the index store variant and rebuild lock) ---
	var (
		locker     domain.Locker
		redisStore domain.VenueIndexStore
	)
	if cfg.Redis.Enabled {
		rdb, err := redis.New(ctx, redis.Config{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })

		locker = redis.NewLocker(rdb)
		redisStore = redis.NewIndexStore(rdb)
	}

	// --- Venue index store ---
	var store domain.VenueIndexStore
	if cfg.Index.UseRedis {
		store = redisStore
	} else {
		store = index.NewFileStore(cfg.Index.Path)
	}

	// --- Snapshot archiver (optional) ---
	var archiver domain.SnapshotArchiver
	if cfg.Index.ArchiveSnapshots {
		s3Client, err := s3blob.New(ctx, s3blob.Config{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		archiver = s3blob.NewArchiver(s3Client)
	}

	// --- Venue clients, index cache, rebuilder, aggregator ---
	clients, err := venue.Builtin().Build(cfg.Venues.Enabled, cfg.Venues.FetchTimeout.Duration)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: venues: %w", err)
	}

	// Warm the cache from the persisted index; a missing index is fine, the
	// first lookup miss triggers a rebuild.
	persisted, err := store.Load(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		cleanup()
		return nil, nil, fmt.Errorf("wire: loading venue index: %w", err)
	}
	deps.Cache = index.NewCache(persisted)

	deps.Rebuilder = index.NewRebuilder(
		clients, store, deps.Cache, locker, archiver,
		cfg.Venues.QuoteAsset, logger,
	)
	deps.Aggregator = aggregator.New(
		clients, deps.Cache, deps.Rebuilder,
		cfg.Venues.FetchTimeout.Duration, logger,
	)

	// --- DEX client ---
	deps.Dex = radar.NewClient(cfg.Radar.APIURL, cfg.Radar.Timeout.Duration)

	// --- Order journal (optional) ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Journal = postgres.NewOrderJournal(pgClient.Pool())
	}

	// --- Account service (only for modes that touch the chain) ---
	if needsWallet(strings.ToLower(cfg.Mode)) {
		key, err := wallet.LoadKey(wallet.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet: %w", err)
		}

		account, err := eth.NewAccount(ctx, eth.Config{
			RPCURL:               cfg.Chain.RPCURL,
			ChainID:              cfg.Chain.ChainID,
			GasPriceGwei:         cfg.Chain.GasPriceGwei,
			WrappedNativeAddress: cfg.Chain.WrappedNativeAddress,
			ExchangeProxyAddress: cfg.Chain.ExchangeProxyAddress,
		}, key, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: eth: %w", err)
		}
		closers = append(closers, account.Close)
		deps.Account = account
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhook != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhook))
	}
	deps.Notifier = notify.New(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
