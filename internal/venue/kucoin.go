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

	"github.com/seedliq/makerbot/internal/domain"
)

const kucoinBaseURL = "https://api.kucoin.com"

// Kucoin is the REST client for the KuCoin public API.
type Kucoin struct {
	baseURL    string
	httpClient *http.Client
}

// NewKucoin creates a Kucoin client with the given per-call timeout.
func NewKucoin(timeout time.Duration) *Kucoin {
	return &Kucoin{
		baseURL:    kucoinBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the venue identifier.
func (c *Kucoin) Name() string { return "kucoin" }

// kucoinSymbol converts an aggregator-format symbol ("ZRX/ETH") to KuCoin's
// dash-separated form ("ZRX-ETH").
func kucoinSymbol(symbol string) string {
	return strings.ReplaceAll(strings.ToUpper(symbol), "/", "-")
}

// FetchMarkets returns the tradable-pair catalogue from the symbols endpoint.
// Only symbols with trading enabled are returned.
func (c *Kucoin) FetchMarkets(ctx context.Context) ([]domain.VenueMarket, error) {
	body, err := c.get(ctx, "/api/v2/symbols", nil)
	if err != nil {
		return nil, fmt.Errorf("kucoin: fetch markets: %w", err)
	}

	var resp struct {
		Code string `json:"code"`
		Data []struct {
			BaseCurrency  string `json:"baseCurrency"`
			QuoteCurrency string `json:"quoteCurrency"`
			EnableTrading bool   `json:"enableTrading"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("kucoin: decode markets: %w", err)
	}
	if resp.Code != "200000" {
		return nil, fmt.Errorf("kucoin: fetch markets: api code %s", resp.Code)
	}

	markets := make([]domain.VenueMarket, 0, len(resp.Data))
	for _, s := range resp.Data {
		if !s.EnableTrading {
			continue
		}
		markets = append(markets, domain.VenueMarket{
			Symbol: s.BaseCurrency + "/" + s.QuoteCurrency,
		})
	}
	return markets, nil
}

// FetchTicker returns the live top-of-book from the level1 orderbook endpoint.
func (c *Kucoin) FetchTicker(ctx context.Context, symbol string) (domain.VenueTicker, error) {
	params := url.Values{}
	params.Set("symbol", kucoinSymbol(symbol))

	body, err := c.get(ctx, "/api/v1/market/orderbook/level1", params)
	if err != nil {
		return domain.VenueTicker{}, fmt.Errorf("kucoin: fetch ticker %s: %w", symbol, err)
	}

	var resp struct {
		Code string `json:"code"`
		Data *struct {
			BestBid     string `json:"bestBid"`
			BestBidSize string `json:"bestBidSize"`
			BestAsk     string `json:"bestAsk"`
			BestAskSize string `json:"bestAskSize"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.VenueTicker{}, fmt.Errorf("kucoin: decode ticker %s: %w", symbol, err)
	}
	if resp.Code != "200000" || resp.Data == nil {
		return domain.VenueTicker{}, fmt.Errorf("kucoin: fetch ticker %s: api code %s", symbol, resp.Code)
	}

	t := domain.VenueTicker{}
	if t.Bid, err = parsePrice(resp.Data.BestBid); err != nil {
		return domain.VenueTicker{}, fmt.Errorf("kucoin: ticker %s: bid: %w", symbol, err)
	}
	if t.Ask, err = parsePrice(resp.Data.BestAsk); err != nil {
		return domain.VenueTicker{}, fmt.Errorf("kucoin: ticker %s: ask: %w", symbol, err)
	}
	t.BidVolume = parseDepth(resp.Data.BestBidSize)
	t.AskVolume = parseDepth(resp.Data.BestAskSize)
	return t, nil
}

func (c *Kucoin) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
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

// Compile-time interface check.
var _ domain.VenueClient = (*Kucoin)(nil)
