package seeder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedliq/makerbot/internal/aggregator"
	"github.com/seedliq/makerbot/internal/domain"
	"github.com/seedliq/makerbot/internal/index"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDex serves one canned market and ticker.
type fakeDex struct {
	market    domain.DexMarket
	ticker    domain.DexTicker
	err       error
	tickerErr error
}

func (d *fakeDex) GetMarket(context.Context, string) (domain.DexMarket, error) {
	return d.market, d.err
}

func (d *fakeDex) GetTicker(context.Context, string) (domain.DexTicker, error) {
	if d.tickerErr != nil {
		return domain.DexTicker{}, d.tickerErr
	}
	return d.ticker, d.err
}

// stubVenue answers ticker fetches for the aggregator with a fixed response.
type stubVenue struct {
	name   string
	ticker domain.VenueTicker
	err    error
}

func (v *stubVenue) Name() string { return v.name }

func (v *stubVenue) FetchMarkets(context.Context) ([]domain.VenueMarket, error) {
	return nil, nil
}

func (v *stubVenue) FetchTicker(context.Context, string) (domain.VenueTicker, error) {
	return v.ticker, v.err
}

// fakeAccount tracks every chain interaction in memory.
type fakeAccount struct {
	mu         sync.Mutex
	native     decimal.Decimal
	balances   map[string]decimal.Decimal
	allowances map[string]decimal.Decimal

	wrapped   []decimal.Decimal
	approved  []string
	submitted []domain.LimitOrder

	// failPrice, when set, fails submissions at that exact price with failErr.
	failPrice *decimal.Decimal
	failErr   error
}

func newFakeAccount() *fakeAccount {
	return &fakeAccount{
		balances:   map[string]decimal.Decimal{},
		allowances: map[string]decimal.Decimal{},
	}
}

func (a *fakeAccount) Address() string { return "0xAbC" }

func (a *fakeAccount) NativeBalance(context.Context) (decimal.Decimal, error) {
	return a.native, nil
}

func (a *fakeAccount) TokenBalance(_ context.Context, tokenAddr string) (decimal.Decimal, error) {
	return a.balances[tokenAddr], nil
}

func (a *fakeAccount) Allowance(_ context.Context, tokenAddr string) (decimal.Decimal, error) {
	return a.allowances[tokenAddr], nil
}

func (a *fakeAccount) ApproveUnlimited(_ context.Context, tokenAddr string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.approved = append(a.approved, tokenAddr)
	a.allowances[tokenAddr] = dec("1000000000")
	return "0xapprove", nil
}

func (a *fakeAccount) WrapNative(_ context.Context, amount decimal.Decimal) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.wrapped = append(a.wrapped, amount)
	return "0xwrap", nil
}

func (a *fakeAccount) SubmitLimitOrder(_ context.Context, order domain.LimitOrder) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failPrice != nil && order.Price.Equal(*a.failPrice) {
		return "", a.failErr
	}
	a.submitted = append(a.submitted, order)
	return "0xtx", nil
}

// memJournal records orders in memory.
type memJournal struct {
	mu     sync.Mutex
	orders []domain.SeedOrder
}

func (j *memJournal) Record(_ context.Context, o domain.SeedOrder) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.orders = append(j.orders, o)
	return nil
}

func (j *memJournal) ListByRun(_ context.Context, runID string) ([]domain.SeedOrder, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []domain.SeedOrder
	for _, o := range j.orders {
		if o.RunID == runID {
			out = append(out, o)
		}
	}
	return out, nil
}

var testMarket = domain.DexMarket{
	ID:                "zrx-weth-1",
	BaseTokenAddress:  "0xbase",
	QuoteTokenAddress: "0xquote",
}

func testConfig() Config {
	return Config{
		Spreads:             []float64{0.01, 0.02},
		ExpirationHours:     1,
		WrapThreshold:       dec("0.5"),
		WrapReserveFraction: dec("0.02"),
	}
}

func newTestSeeder(account *fakeAccount, journal domain.OrderJournal, cfg Config) *Seeder {
	dex := &fakeDex{market: testMarket, ticker: domain.DexTicker{Bid: dec("99"), Ask: dec("101")}}
	return New(nil, dex, account, journal, domain.DefaultFormatter, cfg, testLogger())
}

// testAggregator serves quotes for ZRX/ETH from a single stub venue.
func testAggregator(venue *stubVenue) *aggregator.Aggregator {
	cache := index.NewCache(domain.VenueIndex{"ZRX/ETH": {venue.name}})
	return aggregator.New([]domain.VenueClient{venue}, cache, nil, time.Second, testLogger())
}

func TestSeedSubmitsBothSides(t *testing.T) {
	account := newFakeAccount()
	account.balances["0xquote"] = dec("1000")
	account.balances["0xbase"] = dec("1000")
	account.allowances["0xbase"] = dec("1")
	account.allowances["0xquote"] = dec("1")
	journal := &memJournal{}

	s := newTestSeeder(account, journal, testConfig())

	outcome, err := s.Seed(context.Background(), Params{
		Market:    "ZRX/ETH",
		BidBudget: dec("10"),
		AskBudget: dec("4"),
		Source:    SourceCustom,
		CustomBid: dec("100"),
		CustomAsk: dec("100"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, outcome.RunID)
	assert.Equal(t, "ZRX-WETH", outcome.Market)
	assert.Equal(t, 4, outcome.Submitted)
	assert.Zero(t, outcome.Failed)
	assert.Len(t, account.submitted, 4)
	assert.Len(t, journal.orders, 4)

	recorded, err := journal.ListByRun(context.Background(), outcome.RunID)
	require.NoError(t, err)
	assert.Len(t, recorded, 4)

	sides := map[domain.Side]int{}
	for _, o := range account.submitted {
		assert.Equal(t, "zrx-weth-1", o.MarketID)
		sides[o.Side]++
	}
	assert.Equal(t, 2, sides[domain.SideBid])
	assert.Equal(t, 2, sides[domain.SideAsk])
}

// The bid budget is a base quantity just like the ask budget: budget 10 over
// two bands places 5 base units per band, priced by the compounding walk.
func TestSeedBidLadderIsBaseDenominated(t *testing.T) {
	account := newFakeAccount()
	account.balances["0xquote"] = dec("1000")
	account.allowances["0xbase"] = dec("1")
	account.allowances["0xquote"] = dec("1")

	s := newTestSeeder(account, nil, testConfig())

	outcome, err := s.Seed(context.Background(), Params{
		Market:    "ZRX/ETH",
		BidBudget: dec("10"),
		Source:    SourceCustom,
		CustomBid: dec("100"),
	})
	require.NoError(t, err)
	require.Equal(t, 2, outcome.Submitted)

	require.Len(t, account.submitted, 2)
	for _, o := range account.submitted {
		assert.Equal(t, domain.SideBid, o.Side)
		assert.True(t, o.Quantity.Equal(dec("5")), "got qty %s", o.Quantity)
	}
	assert.True(t, account.submitted[0].Price.Equal(dec("99")), "got %s", account.submitted[0].Price)
	assert.True(t, account.submitted[1].Price.Equal(dec("97.02")), "got %s", account.submitted[1].Price)
}

func TestSeedInsufficientQuoteBalance(t *testing.T) {
	account := newFakeAccount()
	account.balances["0xquote"] = dec("5")
	account.balances["0xbase"] = dec("1000")
	account.allowances["0xbase"] = dec("1")
	account.allowances["0xquote"] = dec("1")

	s := newTestSeeder(account, nil, testConfig())

	_, err := s.Seed(context.Background(), Params{
		Market:    "ZRX/ETH",
		BidBudget: dec("10"),
		Source:    SourceCustom,
		CustomBid: dec("100"),
		CustomAsk: dec("100"),
	})

	var insufficient *domain.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "quote", insufficient.Asset)
	// Flat estimate: 5*99 + 5*98 for base budget 10 at reference 100.
	assert.True(t, insufficient.Requested.Equal(dec("985")), "got %s", insufficient.Requested)
	assert.Empty(t, account.submitted, "no order may go out after a failed budget check")
}

func TestSeedInsufficientBaseBalance(t *testing.T) {
	account := newFakeAccount()
	account.balances["0xbase"] = dec("1")
	account.allowances["0xbase"] = dec("1")
	account.allowances["0xquote"] = dec("1")

	s := newTestSeeder(account, nil, testConfig())

	_, err := s.Seed(context.Background(), Params{
		Market:    "ZRX/ETH",
		AskBudget: dec("4"),
		Source:    SourceCustom,
		CustomAsk: dec("100"),
	})

	var insufficient *domain.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "base", insufficient.Asset)
}

func TestSeedPreflightWrapsAboveThreshold(t *testing.T) {
	account := newFakeAccount()
	account.native = dec("1")
	account.balances["0xbase"] = dec("1000")
	account.allowances["0xbase"] = dec("1")
	account.allowances["0xquote"] = dec("1")

	s := newTestSeeder(account, nil, testConfig())

	_, err := s.Seed(context.Background(), Params{
		Market:    "ZRX/ETH",
		AskBudget: dec("4"),
		Source:    SourceCustom,
		CustomAsk: dec("100"),
	})
	require.NoError(t, err)

	// 2% of the native balance stays behind for fees.
	require.Len(t, account.wrapped, 1)
	assert.True(t, account.wrapped[0].Equal(dec("0.98")), "got %s", account.wrapped[0])
}

func TestSeedPreflightSkipsWrapBelowThreshold(t *testing.T) {
	account := newFakeAccount()
	account.native = dec("0.4")
	account.balances["0xbase"] = dec("1000")
	account.allowances["0xbase"] = dec("1")
	account.allowances["0xquote"] = dec("1")

	s := newTestSeeder(account, nil, testConfig())

	_, err := s.Seed(context.Background(), Params{
		Market:    "ZRX/ETH",
		AskBudget: dec("4"),
		Source:    SourceCustom,
		CustomAsk: dec("100"),
	})
	require.NoError(t, err)
	assert.Empty(t, account.wrapped)
}

// Wrapping is tied to the quote asset: a market not quoted in the wrapped
// native token must never touch the native balance, whatever its size.
func TestSeedPreflightSkipsWrapForNonWrappedQuote(t *testing.T) {
	account := newFakeAccount()
	account.native = dec("1")
	account.balances["0xbase"] = dec("1000")
	account.allowances["0xbase"] = dec("1")
	account.allowances["0xquote"] = dec("1")

	s := newTestSeeder(account, nil, testConfig())

	_, err := s.Seed(context.Background(), Params{
		Market:    "ZRX/DAI",
		AskBudget: dec("4"),
		Source:    SourceCustom,
		CustomAsk: dec("100"),
	})
	require.NoError(t, err)
	assert.Empty(t, account.wrapped)
}

func TestSeedPreflightApprovesZeroAllowances(t *testing.T) {
	account := newFakeAccount()
	account.balances["0xbase"] = dec("1000")
	account.allowances["0xquote"] = dec("7")

	s := newTestSeeder(account, nil, testConfig())

	_, err := s.Seed(context.Background(), Params{
		Market:    "ZRX/ETH",
		AskBudget: dec("4"),
		Source:    SourceCustom,
		CustomAsk: dec("100"),
	})
	require.NoError(t, err)

	// Only the base token had no allowance.
	assert.Equal(t, []string{"0xbase"}, account.approved)
}

func TestSeedBestEffortSubmission(t *testing.T) {
	account := newFakeAccount()
	account.balances["0xquote"] = dec("1000")
	account.balances["0xbase"] = dec("1000")
	account.allowances["0xbase"] = dec("1")
	account.allowances["0xquote"] = dec("1")
	// First bid band at 100 - 1% = 99 fails; everything else succeeds.
	failAt := dec("99")
	account.failPrice = &failAt
	account.failErr = errors.New("rejected")
	journal := &memJournal{}

	s := newTestSeeder(account, journal, testConfig())

	outcome, err := s.Seed(context.Background(), Params{
		Market:    "ZRX/ETH",
		BidBudget: dec("10"),
		AskBudget: dec("4"),
		Source:    SourceCustom,
		CustomBid: dec("100"),
		CustomAsk: dec("100"),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.Submitted)
	assert.Equal(t, 1, outcome.Failed)
	assert.Len(t, journal.orders, 4, "failed entries are journaled too")

	var failed []domain.SeedOrder
	for _, o := range outcome.Orders {
		if o.Status == domain.SeedOrderFailed {
			failed = append(failed, o)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, "rejected", failed[0].Error)
	assert.Empty(t, failed[0].TxID)
}

func TestSeedNoUsableRate(t *testing.T) {
	account := newFakeAccount()
	account.allowances["0xbase"] = dec("1")
	account.allowances["0xquote"] = dec("1")

	s := newTestSeeder(account, nil, testConfig())

	_, err := s.Seed(context.Background(), Params{
		Market: "ZRX/ETH",
		Source: SourceCustom,
	})
	assert.ErrorIs(t, err, domain.ErrNoQuote)
}

func TestSeedUnknownSource(t *testing.T) {
	account := newFakeAccount()
	account.allowances["0xbase"] = dec("1")
	account.allowances["0xquote"] = dec("1")

	s := newTestSeeder(account, nil, testConfig())

	_, err := s.Seed(context.Background(), Params{
		Market: "ZRX/ETH",
		Source: PriceSource("oracle"),
	})
	assert.Error(t, err)
}

func TestSeedDexSource(t *testing.T) {
	account := newFakeAccount()
	account.balances["0xbase"] = dec("1000")
	account.allowances["0xbase"] = dec("1")
	account.allowances["0xquote"] = dec("1")

	s := newTestSeeder(account, nil, testConfig())

	outcome, err := s.Seed(context.Background(), Params{
		Market:    "ZRX-WETH",
		AskBudget: dec("4"),
		Source:    SourceDex,
	})
	require.NoError(t, err)
	require.Equal(t, 2, outcome.Submitted)

	// Ask ladder walks up from the DEX ask of 101.
	first := account.submitted[0]
	assert.True(t, first.Price.Equal(dec("102.01")), "got %s", first.Price)
}

func TestSeedDexSourceFallsBackToAggregate(t *testing.T) {
	account := newFakeAccount()
	account.balances["0xbase"] = dec("1000")
	account.allowances["0xbase"] = dec("1")
	account.allowances["0xquote"] = dec("1")

	agg := testAggregator(&stubVenue{
		name:   "stub",
		ticker: domain.VenueTicker{Bid: dec("100"), Ask: dec("102")},
	})
	dex := &fakeDex{market: testMarket, tickerErr: errors.New("down")}
	s := New(agg, dex, account, nil, domain.DefaultFormatter, testConfig(), testLogger())

	outcome, err := s.Seed(context.Background(), Params{
		Market:    "ZRX/ETH",
		AskBudget: dec("4"),
		Source:    SourceDex,
	})
	require.NoError(t, err)
	require.Equal(t, 2, outcome.Submitted)

	// Ask ladder walks up from the aggregate ask of 102.
	assert.True(t, account.submitted[0].Price.Equal(dec("103.02")), "got %s", account.submitted[0].Price)
}

func TestSeedAggregateSourceFallsBackToDex(t *testing.T) {
	account := newFakeAccount()
	account.balances["0xbase"] = dec("1000")
	account.allowances["0xbase"] = dec("1")
	account.allowances["0xquote"] = dec("1")

	// Every venue fetch fails, so the aggregate quote comes back empty.
	agg := testAggregator(&stubVenue{name: "stub", err: errors.New("down")})
	dex := &fakeDex{market: testMarket, ticker: domain.DexTicker{Bid: dec("99"), Ask: dec("101")}}
	s := New(agg, dex, account, nil, domain.DefaultFormatter, testConfig(), testLogger())

	outcome, err := s.Seed(context.Background(), Params{
		Market:    "ZRX/ETH",
		AskBudget: dec("4"),
		Source:    SourceAggregate,
	})
	require.NoError(t, err)
	require.Equal(t, 2, outcome.Submitted)

	// Ask ladder walks up from the DEX ask of 101.
	assert.True(t, account.submitted[0].Price.Equal(dec("102.01")), "got %s", account.submitted[0].Price)
}

func TestSeedBothSourcesUnavailable(t *testing.T) {
	account := newFakeAccount()
	account.allowances["0xbase"] = dec("1")
	account.allowances["0xquote"] = dec("1")

	agg := testAggregator(&stubVenue{name: "stub", err: errors.New("down")})
	dex := &fakeDex{market: testMarket, tickerErr: errors.New("down")}
	s := New(agg, dex, account, nil, domain.DefaultFormatter, testConfig(), testLogger())

	_, err := s.Seed(context.Background(), Params{
		Market:    "ZRX/ETH",
		AskBudget: dec("4"),
		Source:    SourceAggregate,
	})
	assert.ErrorIs(t, err, domain.ErrNoQuote)
}

func TestSeedSubmitDelayOrdering(t *testing.T) {
	account := newFakeAccount()
	account.balances["0xbase"] = dec("1000")
	account.allowances["0xbase"] = dec("1")
	account.allowances["0xquote"] = dec("1")

	cfg := testConfig()
	cfg.SubmitDelay = 10 * time.Millisecond
	s := newTestSeeder(account, nil, cfg)

	start := time.Now()
	outcome, err := s.Seed(context.Background(), Params{
		Market:    "ZRX/ETH",
		AskBudget: dec("4"),
		Source:    SourceCustom,
		CustomAsk: dec("100"),
	})
	require.NoError(t, err)
	require.Equal(t, 2, outcome.Submitted)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	// Entries within a side go out tightest spread first.
	assert.True(t, account.submitted[0].Price.LessThan(account.submitted[1].Price))
}
