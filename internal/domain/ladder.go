package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side indicates which side of the book a ladder entry sits on.
type Side string

const (
	SideBid Side = "BID"
	SideAsk Side = "ASK"
)

// LadderEntry is one planned limit order in a spread ladder.
type LadderEntry struct {
	Side      Side
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	ExpiresAt time.Time
}

// SeedOrderStatus tracks the submission outcome of a ladder entry.
type SeedOrderStatus string

const (
	SeedOrderSubmitted SeedOrderStatus = "submitted"
	SeedOrderFailed    SeedOrderStatus = "failed"
)

// SeedOrder is the journal record for one submitted (or failed) ladder entry.
type SeedOrder struct {
	ID          string
	RunID       string
	Market      string
	Side        Side
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	ExpiresAt   time.Time
	TxID        string
	Status      SeedOrderStatus
	Error       string
	SubmittedAt time.Time
}
