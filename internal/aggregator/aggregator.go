// Package aggregator combines live tickers from multiple external venues into
// a single reference quote with a confidence score.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/seedliq/makerbot/internal/domain"
	"github.com/seedliq/makerbot/internal/index"
)

// Aggregator resolves a pair's venue set through the venue index and averages
// the venues' live bid/ask into one reference quote. Venue failures are
// absorbed here: they shrink the average's denominator and the confidence
// score but never surface as errors.
type Aggregator struct {
	clients      map[string]domain.VenueClient
	configured   int
	cache        *index.Cache
	rebuilder    *index.Rebuilder
	fetchTimeout time.Duration
	logger       *slog.Logger
}

// New creates an Aggregator over the given venue clients. configured venue
// count is taken from the client list; it is the denominator of the
// confidence score.
func New(
	clients []domain.VenueClient,
	cache *index.Cache,
	rebuilder *index.Rebuilder,
	fetchTimeout time.Duration,
	logger *slog.Logger,
) *Aggregator {
	byName := make(map[string]domain.VenueClient, len(clients))
	for _, c := range clients {
		byName[c.Name()] = c
	}
	return &Aggregator{
		clients:      byName,
		configured:   len(clients),
		cache:        cache,
		rebuilder:    rebuilder,
		fetchTimeout: fetchTimeout,
		logger:       logger.With(slog.String("component", "aggregator")),
	}
}

// ReferenceQuote produces an aggregated quote for an aggregator-format symbol
// such as "ZRX/ETH". When the venue index has no entry for the symbol, one
// rebuild is attempted before giving up with domain.ErrNoVenues.
//
// Confidence is computed against all configured venues, not just the venues
// known to list the pair, so it penalizes thin listings as well as fetch
// failures. When every fetch fails the returned quote is Empty; callers must
// skip planning against an empty quote.
func (a *Aggregator) ReferenceQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	venues, err := a.resolveVenues(ctx, symbol)
	if err != nil {
		return domain.Quote{}, err
	}

	var (
		mu        sync.Mutex
		bidSum    decimal.Decimal
		askSum    decimal.Decimal
		bidDepth  decimal.Decimal
		askDepth  decimal.Decimal
		succeeded int
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range venues {
		client, ok := a.clients[name]
		if !ok {
			// Stale index entry for a venue that is no longer configured.
			a.logger.WarnContext(ctx, "indexed venue not configured, skipping",
				slog.String("venue", name),
				slog.String("market", symbol),
			)
			continue
		}

		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, a.fetchTimeout)
			defer cancel()

			ticker, err := client.FetchTicker(fctx, symbol)
			if err != nil {
				// Excluded from the average; never fails the aggregation.
				a.logger.WarnContext(ctx, "venue ticker fetch failed",
					slog.String("venue", client.Name()),
					slog.String("market", symbol),
					slog.String("error", err.Error()),
				)
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			bidSum = bidSum.Add(ticker.Bid)
			askSum = askSum.Add(ticker.Ask)
			bidDepth = bidDepth.Add(depthOrOne(ticker.BidVolume))
			askDepth = askDepth.Add(depthOrOne(ticker.AskVolume))
			succeeded++
			return nil
		})
	}
	// Fetch goroutines only ever return nil; Wait is for completion.
	_ = g.Wait()

	if succeeded == 0 {
		return domain.Quote{}, nil
	}

	n := decimal.NewFromInt(int64(succeeded))
	return domain.Quote{
		Bid:        bidSum.Div(n),
		Ask:        askSum.Div(n),
		BidDepth:   bidDepth,
		AskDepth:   askDepth,
		Confidence: float64(succeeded) / float64(a.configured) * 100,
		Venues:     succeeded,
	}, nil
}

// resolveVenues looks the symbol up in the venue index, rebuilding the index
// once when no entry exists.
func (a *Aggregator) resolveVenues(ctx context.Context, symbol string) ([]string, error) {
	if venues, ok := a.cache.Lookup(symbol); ok {
		return venues, nil
	}

	a.logger.InfoContext(ctx, "no cached venue set, rebuilding index",
		slog.String("market", symbol),
	)
	idx, err := a.rebuilder.Rebuild(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregator: rebuild for %s: %w", symbol, err)
	}

	venues := idx.Venues(symbol)
	if len(venues) == 0 {
		return nil, fmt.Errorf("aggregator: %s: %w", symbol, domain.ErrNoVenues)
	}
	return venues, nil
}

// depthOrOne substitutes one unit when a venue reports no depth, so every
// successful fetch contributes at least one unit to size accumulation.
func depthOrOne(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.NewFromInt(1)
	}
	return d
}
