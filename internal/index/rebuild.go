package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/seedliq/makerbot/internal/domain"
)

// rebuildLockTTL bounds how long a crashed rebuild can keep the lock.
const rebuildLockTTL = 5 * time.Minute

// Rebuilder walks every configured venue's catalogue and produces a fresh
// venue index, replacing the in-memory cache and the persisted copy as a
// whole. Individual venue failures reduce coverage but never abort a rebuild.
type Rebuilder struct {
	clients  []domain.VenueClient
	store    domain.VenueIndexStore
	cache    *Cache
	locker   domain.Locker
	archiver domain.SnapshotArchiver
	// quoteAsset restricts the index to pairs quoted in this symbol.
	quoteAsset string
	logger     *slog.Logger
}

// NewRebuilder creates a Rebuilder over the given venue clients. locker and
// archiver are optional; pass nil to disable rebuild locking and snapshot
// archiving.
func NewRebuilder(
	clients []domain.VenueClient,
	store domain.VenueIndexStore,
	cache *Cache,
	locker domain.Locker,
	archiver domain.SnapshotArchiver,
	quoteAsset string,
	logger *slog.Logger,
) *Rebuilder {
	return &Rebuilder{
		clients:    clients,
		store:      store,
		cache:      cache,
		locker:     locker,
		archiver:   archiver,
		quoteAsset: strings.ToUpper(quoteAsset),
		logger:     logger.With(slog.String("component", "index_rebuilder")),
	}
}

// Rebuild fetches every venue's tradable-pair catalogue, retains the pairs
// quoted in the configured quote asset, and replaces the cache and persisted
// index with the result. Only one rebuild may run at a time; a concurrent
// attempt fails with domain.ErrLockHeld.
func (r *Rebuilder) Rebuild(ctx context.Context) (domain.VenueIndex, error) {
	if r.locker != nil {
		unlock, err := r.locker.Acquire(ctx, "venue_index_rebuild", rebuildLockTTL)
		if err != nil {
			return nil, fmt.Errorf("index: rebuild: %w", err)
		}
		defer unlock()
	}

	idx := make(domain.VenueIndex)
	suffix := "/" + r.quoteAsset

	for _, client := range r.clients {
		markets, err := client.FetchMarkets(ctx)
		if err != nil {
			// A failed venue contributes no entries but never fails the rebuild.
			r.logger.WarnContext(ctx, "venue catalogue fetch failed, skipping",
				slog.String("venue", client.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}

		added := 0
		for _, m := range markets {
			symbol := strings.ToUpper(m.Symbol)
			if !strings.HasSuffix(symbol, suffix) {
				continue
			}
			if containsVenue(idx[symbol], client.Name()) {
				continue
			}
			idx[symbol] = append(idx[symbol], client.Name())
			added++
		}

		r.logger.InfoContext(ctx, "venue catalogue indexed",
			slog.String("venue", client.Name()),
			slog.Int("pairs", added),
		)
	}

	if err := r.store.Save(ctx, idx); err != nil {
		return nil, fmt.Errorf("index: persist rebuilt index: %w", err)
	}
	r.cache.Replace(idx)

	if r.archiver != nil {
		r.archive(ctx, idx)
	}

	r.logger.InfoContext(ctx, "venue index rebuilt", slog.Int("pairs", len(idx)))
	return idx, nil
}

// archive uploads a timestamped snapshot of the rebuilt index. Failures are
// logged and swallowed; a rebuild never fails because the archive upload did.
func (r *Rebuilder) archive(ctx context.Context, idx domain.VenueIndex) {
	data, err := json.Marshal(map[string]domain.VenueIndex{"markets": idx})
	if err != nil {
		r.logger.WarnContext(ctx, "marshal index snapshot failed", slog.String("error", err.Error()))
		return
	}

	name := fmt.Sprintf("venue-index/%s.json", time.Now().UTC().Format("20060102T150405Z"))
	if err := r.archiver.Archive(ctx, name, data); err != nil {
		r.logger.WarnContext(ctx, "archive index snapshot failed",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
	}
}

func containsVenue(venues []string, name string) bool {
	for _, v := range venues {
		if v == name {
			return true
		}
	}
	return false
}
