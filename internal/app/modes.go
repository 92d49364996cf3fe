package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/seedliq/makerbot/internal/notify"
	"github.com/seedliq/makerbot/internal/seeder"
)

// RebuildMode refreshes the venue index from every configured venue's
// catalogue and exits.
func (a *App) RebuildMode(ctx context.Context, deps *Dependencies) error {
	idx, err := deps.Rebuilder.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("app: rebuild: %w", err)
	}
	a.logger.InfoContext(ctx, "venue index rebuilt", slog.Int("pairs", len(idx)))
	_ = deps.Notifier.Notify(ctx, notify.EventRebuild, "Venue index rebuilt",
		fmt.Sprintf("%d pairs indexed", len(idx)))
	return nil
}

// QuoteMode prints the aggregated reference quote for the requested market
// next to the DEX's own top-of-book.
func (a *App) QuoteMode(ctx context.Context, deps *Dependencies) error {
	if a.opts.Market == "" {
		return fmt.Errorf("app: quote mode requires a market")
	}
	aggSymbol := deps.Formatter.AggregatorSymbol(a.opts.Market)
	dexSymbol := deps.Formatter.DexSymbol(a.opts.Market)

	quote, err := deps.Aggregator.ReferenceQuote(ctx, aggSymbol)
	if err != nil {
		return fmt.Errorf("app: quote: %w", err)
	}
	if quote.Empty() {
		a.logger.WarnContext(ctx, "no venue produced a quote", slog.String("symbol", aggSymbol))
	} else {
		a.logger.InfoContext(ctx, "aggregate quote",
			slog.String("symbol", aggSymbol),
			slog.String("bid", quote.Bid.String()),
			slog.String("ask", quote.Ask.String()),
			slog.String("bid_depth", quote.BidDepth.String()),
			slog.String("ask_depth", quote.AskDepth.String()),
			slog.Float64("confidence", quote.Confidence),
			slog.Int("venues", quote.Venues),
		)
	}

	ticker, err := deps.Dex.GetTicker(ctx, dexSymbol)
	if err != nil {
		// The DEX side is informational in this mode; a missing market there
		// should not hide the aggregate result.
		a.logger.WarnContext(ctx, "dex ticker unavailable",
			slog.String("symbol", dexSymbol),
			slog.String("error", err.Error()),
		)
		return nil
	}
	a.logger.InfoContext(ctx, "dex ticker",
		slog.String("symbol", dexSymbol),
		slog.String("bid", ticker.Bid.String()),
		slog.String("ask", ticker.Ask.String()),
	)
	return nil
}

// SeedMode runs one liquidity seeding pass over the requested market.
func (a *App) SeedMode(ctx context.Context, deps *Dependencies) error {
	if a.opts.Market == "" {
		return fmt.Errorf("app: seed mode requires a market")
	}

	params, err := a.seedParams()
	if err != nil {
		return err
	}

	s := seeder.New(
		deps.Aggregator, deps.Dex, deps.Account, deps.Journal, deps.Formatter,
		seeder.Config{
			Spreads:             a.cfg.Strategy.Spreads,
			ExpirationHours:     a.cfg.Strategy.ExpirationHours,
			WrapThreshold:       decimal.NewFromFloat(a.cfg.Strategy.WrapThreshold),
			WrapReserveFraction: decimal.NewFromFloat(a.cfg.Strategy.WrapReserveFraction),
			SubmitDelay:         a.cfg.Strategy.SubmitDelay.Duration,
			GasPriceGwei:        a.cfg.Chain.GasPriceGwei,
			GasFloorURL:         a.cfg.Chain.GasFloorURL,
		},
		a.logger,
	)

	outcome, err := s.Seed(ctx, params)
	if err != nil {
		return fmt.Errorf("app: seed: %w", err)
	}
	a.logger.InfoContext(ctx, "seeding finished",
		slog.String("run_id", outcome.RunID),
		slog.String("market", outcome.Market),
		slog.Int("submitted", outcome.Submitted),
		slog.Int("failed", outcome.Failed),
	)

	event := notify.EventSeedComplete
	if outcome.Failed > 0 {
		event = notify.EventOrderFailed
	}
	_ = deps.Notifier.Notify(ctx, event, "Seeding run "+outcome.RunID,
		fmt.Sprintf("%s: %d submitted, %d failed", outcome.Market, outcome.Submitted, outcome.Failed))
	return nil
}

// seedParams parses the run options into seeder parameters.
func (a *App) seedParams() (seeder.Params, error) {
	params := seeder.Params{
		Market: a.opts.Market,
		Source: seeder.PriceSource(a.opts.Source),
	}

	var err error
	if params.BidBudget, err = parseAmount(a.opts.BidBudget, "bid budget"); err != nil {
		return seeder.Params{}, err
	}
	if params.AskBudget, err = parseAmount(a.opts.AskBudget, "ask budget"); err != nil {
		return seeder.Params{}, err
	}
	if params.CustomBid, err = parseAmount(a.opts.CustomBid, "custom bid"); err != nil {
		return seeder.Params{}, err
	}
	if params.CustomAsk, err = parseAmount(a.opts.CustomAsk, "custom ask"); err != nil {
		return seeder.Params{}, err
	}
	return params, nil
}

// BalancesMode reports the account's native balance and, when a market is
// given, its balances and allowances for the market's tokens.
func (a *App) BalancesMode(ctx context.Context, deps *Dependencies) error {
	native, err := deps.Account.NativeBalance(ctx)
	if err != nil {
		return fmt.Errorf("app: balances: %w", err)
	}
	a.logger.InfoContext(ctx, "account",
		slog.String("address", deps.Account.Address()),
		slog.String("native_balance", native.String()),
	)

	if a.opts.Market == "" {
		return nil
	}

	dexSymbol := deps.Formatter.DexSymbol(a.opts.Market)
	market, err := deps.Dex.GetMarket(ctx, dexSymbol)
	if err != nil {
		return fmt.Errorf("app: balances: resolving market %s: %w", dexSymbol, err)
	}

	for _, token := range []struct {
		role string
		addr string
	}{
		{"base", market.BaseTokenAddress},
		{"quote", market.QuoteTokenAddress},
	} {
		balance, err := deps.Account.TokenBalance(ctx, token.addr)
		if err != nil {
			return fmt.Errorf("app: balances: %s token: %w", token.role, err)
		}
		allowance, err := deps.Account.Allowance(ctx, token.addr)
		if err != nil {
			return fmt.Errorf("app: balances: %s allowance: %w", token.role, err)
		}
		a.logger.InfoContext(ctx, "token",
			slog.String("market", dexSymbol),
			slog.String("role", token.role),
			slog.String("address", token.addr),
			slog.String("balance", balance.String()),
			slog.String("allowance", allowance.String()),
		)
	}
	return nil
}

// parseAmount parses an optional decimal flag value; empty means zero.
func parseAmount(s, name string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("app: invalid %s %q: %w", name, s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("app: %s must not be negative", name)
	}
	return d, nil
}
