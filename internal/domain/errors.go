package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrNoVenues means the venue index has no entry for a pair and a rebuild
	// could not produce one. Fatal for that aggregation call.
	ErrNoVenues = errors.New("no venues found for market")
	// ErrNoQuote means neither the aggregator nor the DEX produced a usable
	// reference quote for a market.
	ErrNoQuote  = errors.New("no reference quote available")
	ErrLockHeld = errors.New("lock already held")
)

// InsufficientBalanceError is returned by the budget validation gate when a
// requested budget would require more of an asset than the account holds.
// The caller is expected to resubmit with adjusted budgets.
type InsufficientBalanceError struct {
	Asset     string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance: requested %s, available %s",
		e.Asset, e.Requested.String(), e.Available.String())
}
