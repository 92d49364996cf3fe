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

const krakenBaseURL = "https://api.kraken.com"

// Kraken is the REST client for the Kraken public API.
type Kraken struct {
	baseURL    string
	httpClient *http.Client
}

// NewKraken creates a Kraken client with the given per-call timeout.
func NewKraken(timeout time.Duration) *Kraken {
	return &Kraken{
		baseURL:    krakenBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the venue identifier.
func (k *Kraken) Name() string { return "kraken" }

// krakenPair converts an aggregator-format symbol ("ZRX/ETH") to the
// concatenated form Kraken's Ticker endpoint accepts ("ZRXETH").
func krakenPair(symbol string) string {
	return strings.ReplaceAll(strings.ToUpper(symbol), "/", "")
}

// FetchMarkets returns the tradable-pair catalogue from the AssetPairs
// endpoint. The websocket name field already uses slash-separated display
// symbols, so it maps directly onto the aggregator convention.
func (k *Kraken) FetchMarkets(ctx context.Context) ([]domain.VenueMarket, error) {
	body, err := k.get(ctx, "/0/public/AssetPairs", nil)
	if err != nil {
		return nil, fmt.Errorf("kraken: fetch markets: %w", err)
	}

	var resp struct {
		Error  []string `json:"error"`
		Result map[string]struct {
			WSName string `json:"wsname"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("kraken: decode markets: %w", err)
	}
	if len(resp.Error) > 0 {
		return nil, fmt.Errorf("kraken: fetch markets: api error: %s", strings.Join(resp.Error, "; "))
	}

	markets := make([]domain.VenueMarket, 0, len(resp.Result))
	for _, p := range resp.Result {
		if p.WSName == "" {
			continue
		}
		markets = append(markets, domain.VenueMarket{
			Symbol: strings.ToUpper(p.WSName),
		})
	}
	return markets, nil
}

// FetchTicker returns the live top-of-book from the Ticker endpoint. Kraken
// replies with a single-entry result map keyed by its internal pair name, so
// the first entry is taken regardless of key.
func (k *Kraken) FetchTicker(ctx context.Context, symbol string) (domain.VenueTicker, error) {
	params := url.Values{}
	params.Set("pair", krakenPair(symbol))

	body, err := k.get(ctx, "/0/public/Ticker", params)
	if err != nil {
		return domain.VenueTicker{}, fmt.Errorf("kraken: fetch ticker %s: %w", symbol, err)
	}

	var resp struct {
		Error  []string `json:"error"`
		Result map[string]struct {
			Bid []string `json:"b"` // [price, whole lot volume, lot volume]
			Ask []string `json:"a"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.VenueTicker{}, fmt.Errorf("kraken: decode ticker %s: %w", symbol, err)
	}
	if len(resp.Error) > 0 {
		return domain.VenueTicker{}, fmt.Errorf("kraken: fetch ticker %s: api error: %s", symbol, strings.Join(resp.Error, "; "))
	}

	for _, entry := range resp.Result {
		if len(entry.Bid) < 1 || len(entry.Ask) < 1 {
			return domain.VenueTicker{}, fmt.Errorf("kraken: ticker %s: malformed bid/ask arrays", symbol)
		}

		t := domain.VenueTicker{}
		if t.Bid, err = parsePrice(entry.Bid[0]); err != nil {
			return domain.VenueTicker{}, fmt.Errorf("kraken: ticker %s: bid: %w", symbol, err)
		}
		if t.Ask, err = parsePrice(entry.Ask[0]); err != nil {
			return domain.VenueTicker{}, fmt.Errorf("kraken: ticker %s: ask: %w", symbol, err)
		}
		if len(entry.Bid) >= 3 {
			t.BidVolume = parseDepth(entry.Bid[2])
		}
		if len(entry.Ask) >= 3 {
			t.AskVolume = parseDepth(entry.Ask[2])
		}
		return t, nil
	}

	return domain.VenueTicker{}, fmt.Errorf("kraken: ticker %s: empty result", symbol)
}

func (k *Kraken) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := k.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := k.httpClient.Do(req)
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
var _ domain.VenueClient = (*Kraken)(nil)
