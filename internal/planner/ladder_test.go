package planner

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedliq/makerbot/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPlanBidCompounds(t *testing.T) {
	expiresAt := time.Now().Add(24 * time.Hour)
	spreads := SpreadsFromFloats([]float64{0.01, 0.02})

	entries := Plan(domain.SideBid, dec("100"), dec("10"), spreads, expiresAt)
	require.Len(t, entries, 2)

	// First band: 100 - 1% = 99. Second band compounds off 99, not 100:
	// 99 - 2% = 97.02.
	assert.True(t, entries[0].Price.Equal(dec("99")), "got %s", entries[0].Price)
	assert.True(t, entries[1].Price.Equal(dec("97.02")), "got %s", entries[1].Price)

	for _, e := range entries {
		assert.Equal(t, domain.SideBid, e.Side)
		assert.True(t, e.Quantity.Equal(dec("5")), "got %s", e.Quantity)
		assert.Equal(t, expiresAt, e.ExpiresAt)
	}
}

func TestPlanAskCompounds(t *testing.T) {
	spreads := SpreadsFromFloats([]float64{0.01, 0.02})

	entries := Plan(domain.SideAsk, dec("100"), dec("10"), spreads, time.Now())
	require.Len(t, entries, 2)

	// 100 + 1% = 101, then 101 + 2% = 103.02.
	assert.True(t, entries[0].Price.Equal(dec("101")), "got %s", entries[0].Price)
	assert.True(t, entries[1].Price.Equal(dec("103.02")), "got %s", entries[1].Price)
}

func TestPlanCompoundsOnUnroundedRate(t *testing.T) {
	// A rate whose intermediate values exceed 8 digits must carry full
	// precision between bands; only the emitted price is rounded.
	spreads := SpreadsFromFloats([]float64{0.013, 0.013})

	entries := Plan(domain.SideBid, dec("0.000123456789"), dec("2"), spreads, time.Now())
	require.Len(t, entries, 2)

	exact := dec("0.000123456789").Mul(dec("0.987")).Mul(dec("0.987"))
	assert.True(t, entries[1].Price.Equal(exact.Round(8)),
		"want %s, got %s", exact.Round(8), entries[1].Price)
}

func TestPlanPricePrecision(t *testing.T) {
	entries := Plan(domain.SideBid, dec("0.123456789123"), dec("3"), SpreadsFromFloats([]float64{0.01}), time.Now())
	require.Len(t, entries, 1)
	assert.LessOrEqual(t, int(-entries[0].Price.Exponent()), 8)
}

func TestPlanMonotonicPrices(t *testing.T) {
	spreads := SpreadsFromFloats([]float64{0.01, 0.02, 0.03})

	bids := Plan(domain.SideBid, dec("50"), dec("9"), spreads, time.Now())
	require.Len(t, bids, 3)
	for i := 1; i < len(bids); i++ {
		assert.True(t, bids[i].Price.LessThan(bids[i-1].Price))
	}

	asks := Plan(domain.SideAsk, dec("50"), dec("9"), spreads, time.Now())
	require.Len(t, asks, 3)
	for i := 1; i < len(asks); i++ {
		assert.True(t, asks[i].Price.GreaterThan(asks[i-1].Price))
	}
}

func TestPlanEmptyCases(t *testing.T) {
	spreads := SpreadsFromFloats([]float64{0.01})

	assert.Nil(t, Plan(domain.SideBid, decimal.Zero, dec("10"), spreads, time.Now()))
	assert.Nil(t, Plan(domain.SideBid, dec("-1"), dec("10"), spreads, time.Now()))
	assert.Nil(t, Plan(domain.SideBid, dec("100"), decimal.Zero, spreads, time.Now()))
	assert.Nil(t, Plan(domain.SideBid, dec("100"), dec("10"), nil, time.Now()))
}

func TestPlanBudgetSplit(t *testing.T) {
	spreads := SpreadsFromFloats([]float64{0.01, 0.02, 0.03})

	entries := Plan(domain.SideAsk, dec("10"), dec("7.5"), spreads, time.Now())
	require.Len(t, entries, 3)

	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Quantity)
	}
	assert.True(t, total.Equal(dec("7.5")), "got %s", total)
}
