package coingecko_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cryptonics/pkg/coingecko"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts coingecko.Options) *coingecko.RESTClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL
	return coingecko.NewRESTClient(opts, zap.NewNop())
}

// go test -v --run ^TestGetCoinsQueryParams$
func TestGetCoinsQueryParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "eur", q.Get("vs_currency"))
		assert.Equal(t, "market_cap_desc", q.Get("order"))
		assert.Equal(t, "100", q.Get("per_page"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "false", q.Get("sparkline"))
		assert.Equal(t, "demo-key", r.Header.Get("x-cg-demo-api-key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":43250.5,"market_cap_rank":1,"max_supply":21000000}]`))
	}, coingecko.Options{APIKey: "demo-key"})

	coins, err := client.GetCoins(context.Background(), 2, "eur", 0)
	require.NoError(t, err)
	require.Len(t, coins, 1)
	assert.Equal(t, "bitcoin", coins[0].ID)
	assert.Equal(t, 43250.5, coins[0].CurrentPrice)
	require.NotNil(t, coins[0].MaxSupply)
	assert.Equal(t, 21000000.0, *coins[0].MaxSupply)
}

// go test -v --run ^TestGetCoinsDefaults$
func TestGetCoinsDefaults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "usd", q.Get("vs_currency"))
		assert.Equal(t, "1", q.Get("page"))
		assert.Empty(t, r.Header.Get("x-cg-demo-api-key"))
		_, _ = w.Write([]byte(`[]`))
	}, coingecko.Options{})

	coins, err := client.GetCoins(context.Background(), 0, "", 0)
	require.NoError(t, err)
	assert.Empty(t, coins)
}

// go test -v --run ^TestProKeyHeader$
func TestProKeyHeader(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pro-key", r.Header.Get("x-cg-pro-api-key"))
		assert.Empty(t, r.Header.Get("x-cg-demo-api-key"))
		_, _ = w.Write([]byte(`{"gecko_says":"(V3) To the Moon!"}`))
	}, coingecko.Options{APIKey: "pro-key", Pro: true})

	require.NoError(t, client.Ping(context.Background()))
}

// go test -v --run ^TestGetCoinDetails$
func TestGetCoinDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "false", q.Get("localization"))
		assert.Equal(t, "false", q.Get("tickers"))
		assert.Equal(t, "true", q.Get("developer_data"))
		_, _ = w.Write([]byte(`{
			"id":"bitcoin","symbol":"btc","name":"Bitcoin",
			"description":{"en":"Digital gold"},
			"genesis_date":null,
			"links":{"homepage":["","https://bitcoin.org"],"repos_url":{"github":["https://github.com/bitcoin/bitcoin"]}},
			"market_data":{"current_price":{"usd":43000,"eur":39500},"price_change_percentage_24h":-1.5}
		}`))
	}, coingecko.Options{})

	d, err := client.GetCoinDetails(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, "Digital gold", d.Description["en"])
	assert.Nil(t, d.GenesisDate)
	assert.Equal(t, "https://bitcoin.org", d.Links.FirstHomepage())
	assert.Equal(t, "https://github.com/bitcoin/bitcoin", d.Links.FirstGitHub())
	assert.Equal(t, 39500.0, d.MarketData.CurrentPrice.Get("eur"))
	assert.Zero(t, d.MarketData.CurrentPrice.Get("inr"))
}

// go test -v --run ^TestGetCoinChartDays$
func TestGetCoinChartDays(t *testing.T) {
	tests := []struct {
		rng  coingecko.TimeRange
		days string
	}{
		{coingecko.Range24H, "1"},
		{coingecko.Range1Y, "365"},
		{coingecko.RangeMax, "max"},
		{coingecko.TimeRange("bogus"), "7"},
	}

	for _, tt := range tests {
		t.Run(string(tt.rng), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/coins/ethereum/market_chart", r.URL.Path)
				assert.Equal(t, tt.days, r.URL.Query().Get("days"))
				_, _ = w.Write([]byte(`{"prices":[[1700000000000,2000.5],[1700003600000,2010.25],[1]],"market_caps":[],"total_volumes":[]}`))
			}, coingecko.Options{})

			chart, err := client.GetCoinChart(context.Background(), "ethereum", "usd", tt.rng)
			require.NoError(t, err)
			require.Len(t, chart.Prices, 2)
			assert.Equal(t, 2010.25, chart.Prices[1].Value)
			assert.Equal(t, time.UnixMilli(1700000000000).UTC(), chart.Prices[0].Time)
		})
	}
}

// go test -v --run ^TestGetGlobalUnwrapsData$
func TestGetGlobalUnwrapsData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"active_cryptocurrencies":12000,"total_market_cap":{"usd":1.7e12}}}`))
	}, coingecko.Options{})

	g, err := client.GetGlobal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12000, g.ActiveCryptocurrencies)
	assert.Equal(t, 1.7e12, g.TotalMarketCap.Get("usd"))
}

// go test -v --run ^TestSearchAndTrending$
func TestSearchAndTrending(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			assert.Equal(t, "sol", r.URL.Query().Get("query"))
			_, _ = w.Write([]byte(`{"coins":[{"id":"solana","symbol":"SOL","market_cap_rank":5}],"exchanges":[]}`))
		case "/search/trending":
			_, _ = w.Write([]byte(`{"coins":[{"item":{"id":"pepe","symbol":"PEPE","score":0}}]}`))
		default:
			http.NotFound(w, r)
		}
	}, coingecko.Options{})

	res, err := client.SearchCoins(context.Background(), "sol")
	require.NoError(t, err)
	require.Len(t, res.Coins, 1)
	assert.Equal(t, "solana", res.Coins[0].ID)

	tr, err := client.GetTrending(context.Background())
	require.NoError(t, err)
	require.Len(t, tr.Coins, 1)
	assert.Equal(t, "pepe", tr.Coins[0].Item.ID)
}

// go test -v --run ^TestAPIErrorClassification$
func TestAPIErrorClassification(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
		client   bool
	}{
		{http.StatusBadRequest, coingecko.ErrBadRequest, true},
		{http.StatusUnauthorized, coingecko.ErrUnauthorized, true},
		{http.StatusForbidden, coingecko.ErrUnauthorized, true},
		{http.StatusNotFound, coingecko.ErrNotFound, true},
		{http.StatusTooManyRequests, coingecko.ErrRateLimited, false},
		{http.StatusBadGateway, coingecko.ErrUpstream, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"nope"}`, tt.status)
			}, coingecko.Options{})

			_, err := client.GetExchanges(context.Background(), 1, 100)
			require.Error(t, err)

			var apiErr *coingecko.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "/exchanges", apiErr.Endpoint)
			assert.Contains(t, apiErr.Body, "nope")
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.client, coingecko.IsClientError(err))
		})
	}
}

// go test -v --run ^TestDecodeFailureIsTransient$
func TestDecodeFailureIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}, coingecko.Options{})

	_, err := client.GetTrending(context.Background())
	require.Error(t, err)
	assert.False(t, coingecko.IsClientError(err))
}

// go test -v --run ^TestTimeout$
func TestTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}, coingecko.Options{Timeout: 50 * time.Millisecond})

	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.False(t, coingecko.IsClientError(err))
}
