// Package app provides the top-level application lifecycle for the maker
// bot. It wires together all dependencies (venue clients, index stores, the
// DEX client, the account service) and dispatches to the configured operating
// mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/seedliq/makerbot/internal/config"
)

// RunOptions carries the per-invocation parameters the modes need beyond the
// config file: the target market and the seeding budgets.
type RunOptions struct {
	// Market is the target market symbol in either naming convention,
	// e.g. "ZRX/ETH" or "ZRX-WETH". Required by the quote, seed and balances
	// modes.
	Market string
	// BidBudget is the base-asset quantity for the bid ladder.
	BidBudget string
	// AskBudget is the base-asset quantity for the ask ladder.
	AskBudget string
	// Source selects the reference price source: aggregate, dex or custom.
	Source string
	// CustomBid and CustomAsk are the manual rates used when Source is custom.
	CustomBid string
	CustomAsk string
}

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	opts    RunOptions
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration, run options and logger.
func New(cfg *config.Config, opts RunOptions, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		opts:   opts,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, dispatches to the configured mode, and returns
// when the mode finishes or the context is cancelled. All modes here run to
// completion rather than serving forever.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case "rebuild":
		return a.RebuildMode(ctx, deps)
	case "quote":
		return a.QuoteMode(ctx, deps)
	case "seed":
		return a.SeedMode(ctx, deps)
	case "balances":
		return a.BalancesMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
