package domain

import "github.com/shopspring/decimal"

// Quote is an aggregated reference quote for a trading pair. Bid and Ask are
// simple averages across the venues that responded; BidDepth and AskDepth are
// the summed reported depths (each responding venue contributes at least one
// unit). Confidence is the percentage of all configured venues that
// contributed; it drops both when venues fail and when the pair is thinly
// listed.
//
// A Quote with Venues == 0 carries no usable price; callers must check Empty
// before planning against it.
type Quote struct {
	Bid        decimal.Decimal
	Ask        decimal.Decimal
	BidDepth   decimal.Decimal
	AskDepth   decimal.Decimal
	Confidence float64
	// Venues is the number of venues that successfully contributed.
	Venues int
}

// Empty reports whether no venue contributed to the quote, i.e. the pair has
// no tradeable reference price.
func (q Quote) Empty() bool {
	return q.Venues == 0
}
