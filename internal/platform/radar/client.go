// Package radar is the REST client for the DEX the seeded orders are placed
// on. It reads market metadata (token addresses) and the DEX-native ticker.
package radar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/seedliq/makerbot/internal/domain"
)

// Client is the REST client for the DEX API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a DEX client.
//
// baseURL is the API root, e.g. "https://api.radarrelay.com/v2".
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetMarket returns metadata for a DEX-format market id such as "ZRX-WETH",
// including the on-chain token addresses used by preflight checks.
func (c *Client) GetMarket(ctx context.Context, dexSymbol string) (domain.DexMarket, error) {
	path := fmt.Sprintf("/markets/%s", url.PathEscape(dexSymbol))

	body, err := c.get(ctx, path)
	if err != nil {
		return domain.DexMarket{}, fmt.Errorf("radar: get market %s: %w", dexSymbol, err)
	}

	var resp struct {
		ID                string `json:"id"`
		BaseTokenAddress  string `json:"baseTokenAddress"`
		QuoteTokenAddress string `json:"quoteTokenAddress"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.DexMarket{}, fmt.Errorf("radar: decode market %s: %w", dexSymbol, err)
	}
	if resp.ID == "" {
		return domain.DexMarket{}, fmt.Errorf("radar: market %s: %w", dexSymbol, domain.ErrNotFound)
	}

	return domain.DexMarket{
		ID:                resp.ID,
		BaseTokenAddress:  resp.BaseTokenAddress,
		QuoteTokenAddress: resp.QuoteTokenAddress,
	}, nil
}

// GetTicker returns the DEX-native top-of-book for a DEX-format market id.
func (c *Client) GetTicker(ctx context.Context, dexSymbol string) (domain.DexTicker, error) {
	path := fmt.Sprintf("/markets/%s/ticker", url.PathEscape(dexSymbol))

	body, err := c.get(ctx, path)
	if err != nil {
		return domain.DexTicker{}, fmt.Errorf("radar: get ticker %s: %w", dexSymbol, err)
	}

	var resp struct {
		BestBid string `json:"bestBid"`
		BestAsk string `json:"bestAsk"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.DexTicker{}, fmt.Errorf("radar: decode ticker %s: %w", dexSymbol, err)
	}

	t := domain.DexTicker{}
	if t.Bid, err = parseDecimal(resp.BestBid); err != nil {
		return domain.DexTicker{}, fmt.Errorf("radar: ticker %s: bid: %w", dexSymbol, err)
	}
	if t.Ask, err = parseDecimal(resp.BestAsk); err != nil {
		return domain.DexTicker{}, fmt.Errorf("radar: ticker %s: ask: %w", dexSymbol, err)
	}
	return t, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

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

// parseDecimal parses a price string; the DEX omits sides with no orders, so
// an empty string parses as zero.
func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse %q: %w", s, err)
	}
	return d, nil
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

// Compile-time interface check.
var _ domain.DexClient = (*Client)(nil)
