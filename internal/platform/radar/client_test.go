package radar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedliq/makerbot/internal/domain"
)

func TestGetMarket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/ZRX-WETH", r.URL.Path)
		w.Write([]byte(`{
			"id":"ZRX-WETH",
			"baseTokenAddress":"0xe41d2489571d322189246dafa5ebde1f4699f498",
			"quoteTokenAddress":"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)

	market, err := c.GetMarket(context.Background(), "ZRX-WETH")
	require.NoError(t, err)
	assert.Equal(t, "ZRX-WETH", market.ID)
	assert.Equal(t, "0xe41d2489571d322189246dafa5ebde1f4699f498", market.BaseTokenAddress)
	assert.Equal(t, "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", market.QuoteTokenAddress)
}

func TestGetMarketNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)

	_, err := c.GetMarket(context.Background(), "NOPE-WETH")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/ZRX-WETH/ticker", r.URL.Path)
		w.Write([]byte(`{"bestBid":"0.000298","bestAsk":"0.000307"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)

	ticker, err := c.GetTicker(context.Background(), "ZRX-WETH")
	require.NoError(t, err)
	assert.True(t, ticker.Bid.Equal(decimal.RequireFromString("0.000298")))
	assert.True(t, ticker.Ask.Equal(decimal.RequireFromString("0.000307")))
}

func TestGetTickerEmptySide(t *testing.T) {
	// A one-sided book reports the missing side as an empty string.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"bestBid":"","bestAsk":"0.000307"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)

	ticker, err := c.GetTicker(context.Background(), "ZRX-WETH")
	require.NoError(t, err)
	assert.True(t, ticker.Bid.IsZero())
	assert.False(t, ticker.Ask.IsZero())
}

func TestGetHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)

	_, err := c.GetMarket(context.Background(), "ZRX-WETH")
	assert.ErrorContains(t, err, "status 404")
}
