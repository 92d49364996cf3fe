// Package planner turns a reference rate and a capital budget into a discrete
// ladder of limit orders at configured spread bands.
package planner

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/seedliq/makerbot/internal/domain"
)

// pricePrecision is the fixed-point precision of emitted ladder prices.
const pricePrecision = 8

// Plan computes the order ladder for one side of the book. The side's budget
// is split evenly across the spread bands; spreads are applied in their given
// order, and each band's price compounds off the previous band's adjusted
// rate rather than offsetting from the original reference. BID prices walk
// downward, ASK prices upward.
//
// An empty ladder is returned when the reference rate is not positive (no
// usable quote for that side) or when the per-band quantity would not be
// positive.
func Plan(
	side domain.Side,
	referenceRate decimal.Decimal,
	totalBudget decimal.Decimal,
	spreads []decimal.Decimal,
	expiresAt time.Time,
) []domain.LadderEntry {
	if !referenceRate.IsPositive() || len(spreads) == 0 {
		return nil
	}

	perBand := totalBudget.Div(decimal.NewFromInt(int64(len(spreads))))
	if !perBand.IsPositive() {
		return nil
	}

	entries := make([]domain.LadderEntry, 0, len(spreads))
	rate := referenceRate
	for _, spread := range spreads {
		step := rate.Mul(spread)
		if side == domain.SideBid {
			rate = rate.Sub(step)
		} else {
			rate = rate.Add(step)
		}

		entries = append(entries, domain.LadderEntry{
			Side:      side,
			Price:     rate.Round(pricePrecision),
			Quantity:  perBand,
			ExpiresAt: expiresAt,
		})
	}
	return entries
}

// SpreadsFromFloats converts configured spread fractions into decimals,
// preserving order.
func SpreadsFromFloats(spreads []float64) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(spreads))
	for _, s := range spreads {
		out = append(out, decimal.NewFromFloat(s))
	}
	return out
}
