// Package seeder orchestrates liquidity seeding: it selects a reference
// price, validates budgets against the account, and submits a compounding
// spread ladder on both sides of a DEX market.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/seedliq/makerbot/internal/aggregator"
	"github.com/seedliq/makerbot/internal/domain"
	"github.com/seedliq/makerbot/internal/planner"
	"github.com/seedliq/makerbot/internal/platform/eth"
)

// PriceSource selects where the reference rates for the ladder come from.
type PriceSource string

const (
	// SourceAggregate averages live tickers across the configured venues.
	SourceAggregate PriceSource = "aggregate"
	// SourceDex uses the DEX's own top-of-book.
	SourceDex PriceSource = "dex"
	// SourceCustom uses caller-provided bid/ask rates.
	SourceCustom PriceSource = "custom"
)

// Config carries the strategy parameters for a seeding run.
type Config struct {
	Spreads             []float64
	ExpirationHours     float64
	WrapThreshold       decimal.Decimal
	WrapReserveFraction decimal.Decimal
	SubmitDelay         time.Duration
	GasPriceGwei        float64
	GasFloorURL         string
}

// Params describes one seeding request.
type Params struct {
	// Market is the target market in either naming convention.
	Market string
	// BidBudget is the base-asset quantity for the bid ladder; zero disables
	// the side. Its estimated quote-asset cost is validated against the
	// quote balance before anything is placed.
	BidBudget decimal.Decimal
	// AskBudget is the base-asset quantity for the ask ladder; zero disables
	// the side.
	AskBudget decimal.Decimal
	Source    PriceSource
	// CustomBid and CustomAsk are only consulted when Source is SourceCustom.
	CustomBid decimal.Decimal
	CustomAsk decimal.Decimal
}

// Outcome summarises a completed run. Submission is best effort: failed
// entries appear in Orders with a failed status and their error, and never
// abort the remaining entries.
type Outcome struct {
	RunID  string
	Market string
	Orders []domain.SeedOrder
	// Submitted and Failed partition len(Orders).
	Submitted int
	Failed    int
}

// Seeder wires the aggregator, DEX client and account service into the
// seeding workflow. The journal is optional; a nil journal disables
// persistence.
type Seeder struct {
	agg       *aggregator.Aggregator
	dex       domain.DexClient
	account   domain.AccountService
	journal   domain.OrderJournal
	formatter domain.SymbolFormatter
	cfg       Config
	logger    *slog.Logger
}

// New creates a Seeder.
func New(
	agg *aggregator.Aggregator,
	dex domain.DexClient,
	account domain.AccountService,
	journal domain.OrderJournal,
	formatter domain.SymbolFormatter,
	cfg Config,
	logger *slog.Logger,
) *Seeder {
	return &Seeder{
		agg:       agg,
		dex:       dex,
		account:   account,
		journal:   journal,
		formatter: formatter,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "seeder")),
	}
}

// Seed runs the full workflow for one market: gas check, wrap and approval
// preflight, reference rate selection, budget validation, ladder planning and
// two-sided submission.
func (s *Seeder) Seed(ctx context.Context, params Params) (*Outcome, error) {
	aggSymbol := s.formatter.AggregatorSymbol(params.Market)
	dexSymbol := s.formatter.DexSymbol(params.Market)

	pair, err := domain.ParsePair(dexSymbol)
	if err != nil {
		return nil, fmt.Errorf("seeder: parsing market %s: %w", params.Market, err)
	}

	s.checkGasFloor(ctx)

	market, err := s.dex.GetMarket(ctx, dexSymbol)
	if err != nil {
		return nil, fmt.Errorf("seeder: resolving market %s: %w", dexSymbol, err)
	}

	if err := s.preflight(ctx, market, pair.Quote == s.formatter.WrappedQuote); err != nil {
		return nil, err
	}

	bidRate, askRate, err := s.referenceRates(ctx, aggSymbol, dexSymbol, params)
	if err != nil {
		return nil, err
	}

	if err := s.validateBudgets(ctx, market, bidRate, params); err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(time.Duration(s.cfg.ExpirationHours * float64(time.Hour)))
	spreads := planner.SpreadsFromFloats(s.cfg.Spreads)

	bids := planner.Plan(domain.SideBid, bidRate, params.BidBudget, spreads, expiresAt)
	asks := planner.Plan(domain.SideAsk, askRate, params.AskBudget, spreads, expiresAt)
	if len(bids) == 0 && len(asks) == 0 {
		return nil, fmt.Errorf("seeder: %s: nothing to place: %w", dexSymbol, domain.ErrNoQuote)
	}

	s.logPlan(dexSymbol, bidRate, askRate, bids, asks)

	return s.submit(ctx, market, dexSymbol, bids, asks)
}

// referenceRates picks the bid and ask reference rates per the requested
// source. The aggregate and DEX sources fall back to each other when the
// chosen one is unavailable; custom rates never fall back. A side with no
// usable rate comes back zero; both sides zero is ErrNoQuote.
func (s *Seeder) referenceRates(ctx context.Context, aggSymbol, dexSymbol string, params Params) (bid, ask decimal.Decimal, err error) {
	switch params.Source {
	case SourceCustom:
		bid, ask = params.CustomBid, params.CustomAsk

	case SourceDex:
		ticker, terr := s.dex.GetTicker(ctx, dexSymbol)
		if terr == nil {
			bid, ask = ticker.Bid, ticker.Ask
			break
		}
		s.logger.Warn("dex ticker unavailable, falling back to the aggregate quote",
			"symbol", dexSymbol,
			"error", terr)
		quote, qerr := s.agg.ReferenceQuote(ctx, aggSymbol)
		if qerr != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("seeder: no reference rate for %s (dex: %v): %w", dexSymbol, terr, qerr)
		}
		bid, ask = quote.Bid, quote.Ask

	case SourceAggregate, "":
		quote, qerr := s.agg.ReferenceQuote(ctx, aggSymbol)
		if qerr == nil && !quote.Empty() {
			if quote.Confidence < 100 {
				s.logger.Warn("aggregate quote below full confidence",
					"symbol", aggSymbol,
					"confidence", quote.Confidence,
					"venues", quote.Venues)
			}
			bid, ask = quote.Bid, quote.Ask
			break
		}
		s.logger.Warn("aggregate quote unavailable, falling back to the dex ticker",
			"symbol", aggSymbol,
			"error", qerr)
		ticker, terr := s.dex.GetTicker(ctx, dexSymbol)
		if terr != nil {
			if qerr != nil {
				return decimal.Zero, decimal.Zero, fmt.Errorf("seeder: no reference rate for %s (dex: %v): %w", dexSymbol, terr, qerr)
			}
			return decimal.Zero, decimal.Zero, fmt.Errorf("seeder: no reference rate for %s (dex: %v): %w", dexSymbol, terr, domain.ErrNoQuote)
		}
		bid, ask = ticker.Bid, ticker.Ask

	default:
		return decimal.Zero, decimal.Zero, fmt.Errorf("seeder: unknown price source %q", params.Source)
	}

	if !bid.IsPositive() && !ask.IsPositive() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("seeder: %s: %w", dexSymbol, domain.ErrNoQuote)
	}
	return bid, ask, nil
}

// checkGasFloor compares the configured gas price against the network's
// reported safe-low and warns when it is below. Endpoint failures are
// ignored.
func (s *Seeder) checkGasFloor(ctx context.Context) {
	if s.cfg.GasFloorURL == "" {
		return
	}
	safeLow, err := eth.FetchGasFloor(ctx, s.cfg.GasFloorURL)
	if err != nil {
		s.logger.Debug("gas floor check skipped", "error", err)
		return
	}
	if s.cfg.GasPriceGwei < safeLow {
		s.logger.Warn("configured gas price is below the network safe-low, transactions may stall",
			"configured_gwei", s.cfg.GasPriceGwei,
			"safe_low_gwei", safeLow)
	}
}

// preflight wraps surplus native balance into the wrapped token and grants
// the exchange proxy unlimited allowances for both market tokens. Every
// transaction is awaited before the next step. Wrapping only applies when
// the market is quoted in the wrapped native token; seeding a market quoted
// in anything else must leave the native balance alone.
func (s *Seeder) preflight(ctx context.Context, market domain.DexMarket, wrappedQuote bool) error {
	native, err := s.account.NativeBalance(ctx)
	if err != nil {
		return fmt.Errorf("seeder: preflight: %w", err)
	}

	if wrappedQuote && s.cfg.WrapThreshold.IsPositive() && native.GreaterThanOrEqual(s.cfg.WrapThreshold) {
		keep := decimal.NewFromInt(1).Sub(s.cfg.WrapReserveFraction)
		amount := native.Mul(keep)
		txID, err := s.account.WrapNative(ctx, amount)
		if err != nil {
			return fmt.Errorf("seeder: preflight wrap: %w", err)
		}
		s.logger.Info("wrapped surplus native balance", "amount", amount, "tx", txID)
	}

	for _, token := range []string{market.BaseTokenAddress, market.QuoteTokenAddress} {
		allowance, err := s.account.Allowance(ctx, token)
		if err != nil {
			return fmt.Errorf("seeder: preflight allowance check: %w", err)
		}
		if allowance.IsPositive() {
			continue
		}
		txID, err := s.account.ApproveUnlimited(ctx, token)
		if err != nil {
			return fmt.Errorf("seeder: preflight approval: %w", err)
		}
		s.logger.Info("granted unlimited allowance", "token", token, "tx", txID)
	}
	return nil
}

// validateBudgets gates the run on current balances. Both budgets are base
// quantities; the bid side is checked through a flat estimate of its
// quote-asset cost (each band's price offsets from the original reference
// rate rather than compounding, which slightly overstates the spend and errs
// on the safe side).
func (s *Seeder) validateBudgets(ctx context.Context, market domain.DexMarket, bidRate decimal.Decimal, params Params) error {
	if params.BidBudget.IsPositive() && bidRate.IsPositive() {
		quoteBalance, err := s.account.TokenBalance(ctx, market.QuoteTokenAddress)
		if err != nil {
			return fmt.Errorf("seeder: checking quote balance: %w", err)
		}

		perBand := params.BidBudget.Div(decimal.NewFromInt(int64(len(s.cfg.Spreads))))
		required := decimal.Zero
		one := decimal.NewFromInt(1)
		for _, spread := range s.cfg.Spreads {
			price := bidRate.Mul(one.Sub(decimal.NewFromFloat(spread)))
			required = required.Add(perBand.Mul(price))
		}
		if required.GreaterThan(quoteBalance) {
			return &domain.InsufficientBalanceError{
				Asset:     "quote",
				Requested: required,
				Available: quoteBalance,
			}
		}
	}

	if params.AskBudget.IsPositive() {
		baseBalance, err := s.account.TokenBalance(ctx, market.BaseTokenAddress)
		if err != nil {
			return fmt.Errorf("seeder: checking base balance: %w", err)
		}
		if params.AskBudget.GreaterThan(baseBalance) {
			return &domain.InsufficientBalanceError{
				Asset:     "base",
				Requested: params.AskBudget,
				Available: baseBalance,
			}
		}
	}
	return nil
}

// submit places both ladders. The two sides run concurrently; within a side
// entries go out strictly in order with the configured delay after each
// submission. Individual failures are recorded and do not stop the side.
func (s *Seeder) submit(ctx context.Context, market domain.DexMarket, dexSymbol string, bids, asks []domain.LadderEntry) (*Outcome, error) {
	runID := uuid.NewString()
	outcome := &Outcome{RunID: runID, Market: dexSymbol}

	results := make([][]domain.SeedOrder, 2)
	g, gctx := errgroup.WithContext(ctx)
	for i, side := range [][]domain.LadderEntry{bids, asks} {
		i, side := i, side
		g.Go(func() error {
			orders, err := s.submitSide(gctx, market, dexSymbol, runID, side)
			results[i] = orders
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, orders := range results {
		for _, o := range orders {
			outcome.Orders = append(outcome.Orders, o)
			if o.Status == domain.SeedOrderSubmitted {
				outcome.Submitted++
			} else {
				outcome.Failed++
			}
		}
	}

	s.logger.Info("seeding run complete",
		"run_id", runID,
		"market", dexSymbol,
		"submitted", outcome.Submitted,
		"failed", outcome.Failed)
	return outcome, nil
}

// submitSide places one side's entries in order. It only returns an error
// when the context is cancelled; per-entry failures become failed journal
// records.
func (s *Seeder) submitSide(ctx context.Context, market domain.DexMarket, dexSymbol, runID string, entries []domain.LadderEntry) ([]domain.SeedOrder, error) {
	orders := make([]domain.SeedOrder, 0, len(entries))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return orders, err
		}

		order := domain.SeedOrder{
			ID:          uuid.NewString(),
			RunID:       runID,
			Market:      dexSymbol,
			Side:        entry.Side,
			Price:       entry.Price,
			Quantity:    entry.Quantity,
			ExpiresAt:   entry.ExpiresAt,
			SubmittedAt: time.Now(),
		}

		txID, err := s.account.SubmitLimitOrder(ctx, domain.LimitOrder{
			MarketID:  market.ID,
			Side:      entry.Side,
			Quantity:  entry.Quantity,
			Price:     entry.Price,
			ExpiresAt: entry.ExpiresAt,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return orders, err
			}
			order.Status = domain.SeedOrderFailed
			order.Error = err.Error()
			s.logger.Error("order submission failed",
				"market", dexSymbol,
				"side", entry.Side,
				"price", entry.Price,
				"error", err)
		} else {
			order.TxID = txID
			order.Status = domain.SeedOrderSubmitted
			s.logger.Info("order submitted",
				"market", dexSymbol,
				"side", entry.Side,
				"price", entry.Price,
				"quantity", entry.Quantity,
				"tx", txID)
		}

		s.record(ctx, order)
		orders = append(orders, order)

		if s.cfg.SubmitDelay > 0 {
			select {
			case <-ctx.Done():
				return orders, ctx.Err()
			case <-time.After(s.cfg.SubmitDelay):
			}
		}
	}
	return orders, nil
}

// record journals an order, logging rather than failing on journal errors.
func (s *Seeder) record(ctx context.Context, order domain.SeedOrder) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, order); err != nil {
		s.logger.Error("journaling order failed", "order_id", order.ID, "error", err)
	}
}

// logPlan emits the pre-trade summary: per-side notional and entry counts.
func (s *Seeder) logPlan(dexSymbol string, bidRate, askRate decimal.Decimal, bids, asks []domain.LadderEntry) {
	bidNotional := decimal.Zero
	for _, e := range bids {
		bidNotional = bidNotional.Add(e.Quantity.Mul(e.Price))
	}
	askNotional := decimal.Zero
	for _, e := range asks {
		askNotional = askNotional.Add(e.Quantity.Mul(e.Price))
	}

	s.logger.Info("ladder planned",
		"market", dexSymbol,
		"bid_reference", bidRate,
		"ask_reference", askRate,
		"bid_entries", len(bids),
		"ask_entries", len(asks),
		"bid_notional_quote", bidNotional,
		"ask_notional_quote", askNotional)
}
