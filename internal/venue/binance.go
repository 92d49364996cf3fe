package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/seedliq/makerbot/internal/domain"
)

const binanceBaseURL = "https://api.binance.com"

// Binance is the REST client for the Binance spot API.
type Binance struct {
	baseURL    string
	httpClient *http.Client
}

// NewBinance creates a Binance client with the given per-call timeout.
func NewBinance(timeout time.Duration) *Binance {
	return &Binance{
		baseURL:    binanceBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the venue identifier.
func (b *Binance) Name() string { return "binance" }

// binanceSymbol converts an aggregator-format symbol ("ZRX/ETH") to Binance's
// concatenated form ("ZRXETH").
func binanceSymbol(symbol string) string {
	return strings.ReplaceAll(strings.ToUpper(symbol), "/", "")
}

// FetchMarkets returns the tradable-pair catalogue from the exchangeInfo
// endpoint. Only symbols in TRADING status are returned.
func (b *Binance) FetchMarkets(ctx context.Context) ([]domain.VenueMarket, error) {
	body, err := b.get(ctx, "/api/v3/exchangeInfo", nil)
	if err != nil {
		return nil, fmt.Errorf("binance: fetch markets: %w", err)
	}

	var resp struct {
		Symbols []struct {
			BaseAsset  string `json:"baseAsset"`
			QuoteAsset string `json:"quoteAsset"`
			Status     string `json:"status"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("binance: decode markets: %w", err)
	}

	markets := make([]domain.VenueMarket, 0, len(resp.Symbols))
	for _, s := range resp.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		markets = append(markets, domain.VenueMarket{
			Symbol: s.BaseAsset + "/" + s.QuoteAsset,
		})
	}
	return markets, nil
}

// FetchTicker returns the live top-of-book from the bookTicker endpoint.
func (b *Binance) FetchTicker(ctx context.Context, symbol string) (domain.VenueTicker, error) {
	params := url.Values{}
	params.Set("symbol", binanceSymbol(symbol))

	body, err := b.get(ctx, "/api/v3/ticker/bookTicker", params)
	if err != nil {
		return domain.VenueTicker{}, fmt.Errorf("binance: fetch ticker %s: %w", symbol, err)
	}

	var resp struct {
		BidPrice string `json:"bidPrice"`
		BidQty   string `json:"bidQty"`
		AskPrice string `json:"askPrice"`
		AskQty   string `json:"askQty"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.VenueTicker{}, fmt.Errorf("binance: decode ticker %s: %w", symbol, err)
	}

	t := domain.VenueTicker{}
	if t.Bid, err = parsePrice(resp.BidPrice); err != nil {
		return domain.VenueTicker{}, fmt.Errorf("binance: ticker %s: bid: %w", symbol, err)
	}
	if t.Ask, err = parsePrice(resp.AskPrice); err != nil {
		return domain.VenueTicker{}, fmt.Errorf("binance: ticker %s: ask: %w", symbol, err)
	}
	t.BidVolume = parseDepth(resp.BidQty)
	t.AskVolume = parseDepth(resp.AskQty)
	return t, nil
}

func (b *Binance) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := b.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body))
	}
	return body, nil
}

// parsePrice parses a decimal price string; it fails on empty or malformed
// input because a ticker without a price is unusable.
func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse %q: %w", s, err)
	}
	return d, nil
}

// parseDepth parses a reported depth, tolerating missing or malformed values
// as zero. The aggregator substitutes a one-unit default for zero depth.
func parseDepth(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

// Compile-time interface check.
var _ domain.VenueClient = (*Binance)(nil)
