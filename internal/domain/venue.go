package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// VenueMarket is one tradable pair descriptor from a venue's catalogue.
// Symbol is in the aggregator convention, e.g. "ZRX/ETH".
type VenueMarket struct {
	Symbol string
}

// VenueTicker is a live top-of-book quote from one venue. BidVolume and
// AskVolume may be zero when the venue does not report depth.
type VenueTicker struct {
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	BidVolume decimal.Decimal
	AskVolume decimal.Decimal
}

// VenueClient is the capability interface every external venue must satisfy.
// Implementations are registered in the venue registry at startup; the
// aggregator never dispatches on venue names beyond that registry.
type VenueClient interface {
	// Name returns the venue identifier, e.g. "binance".
	Name() string
	// FetchMarkets returns the venue's tradable-pair catalogue.
	FetchMarkets(ctx context.Context) ([]VenueMarket, error)
	// FetchTicker returns the live top-of-book for an aggregator-format symbol.
	FetchTicker(ctx context.Context, symbol string) (VenueTicker, error)
}

// DexMarket is the DEX's metadata for a market, including the on-chain token
// addresses the preflight step needs for balance and allowance checks.
type DexMarket struct {
	ID                string
	BaseTokenAddress  string
	QuoteTokenAddress string
}

// DexTicker is the DEX-native top-of-book quote.
type DexTicker struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
}

// DexClient reads market metadata and tickers from the DEX the orders are
// ultimately placed on.
type DexClient interface {
	GetMarket(ctx context.Context, dexSymbol string) (DexMarket, error)
	GetTicker(ctx context.Context, dexSymbol string) (DexTicker, error)
}
