package web

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"cryptonics/internal/currency"
	"cryptonics/internal/market/querycache"
	"cryptonics/pkg/coingecko"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// go test -v --run ^TestNewCoinCard$
func TestNewCoinCard(t *testing.T) {
	card := NewCoinCard(coingecko.Coin{
		ID:                       "bitcoin",
		Symbol:                   "btc",
		Name:                     "Bitcoin",
		MarketCapRank:            1,
		CurrentPrice:             43250.5,
		PriceChangePercentage24H: -2.5,
		MarketCap:                850000000000,
		TotalVolume:              25000000000,
	}, currency.EUR)

	assert.Equal(t, "BTC", card.Symbol)
	assert.Equal(t, 1, card.Rank)
	assert.Equal(t, "€43,250.5", card.Price)
	assert.Equal(t, "2.50%", card.Change)
	assert.False(t, card.Positive)
	assert.Equal(t, "€850,000,000,000.00", card.MarketCap)
	assert.Equal(t, "€25,000,000,000.00", card.Volume)
}

// go test -v --run ^TestTrustClass$
func TestTrustClass(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{10, "trust-high"},
		{8, "trust-high"},
		{7, "trust-mid"},
		{6, "trust-mid"},
		{5, "trust-low"},
		{0, "trust-low"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TrustClass(tt.score), "score %d", tt.score)
	}
}

// go test -v --run ^TestNewExchangeCard$
func TestNewExchangeCard(t *testing.T) {
	card := NewExchangeCard(coingecko.Exchange{
		ID:                "binance",
		Name:              "Binance",
		YearEstablished:   ptr(2017),
		Country:           ptr("Cayman Islands"),
		TrustScore:        10,
		TrustScoreRank:    1,
		TradeVolume24HBTC: 512345.6,
	})

	assert.Equal(t, "trust-high", card.TrustClass)
	assert.Equal(t, "₿512.35K", card.Volume)
	assert.Equal(t, "2017", card.Year)
	assert.Equal(t, "Cayman Islands", card.Country)

	bare := NewExchangeCard(coingecko.Exchange{ID: "dex", TrustScore: 4})
	assert.Empty(t, bare.Year)
	assert.Empty(t, bare.Country)
	assert.Equal(t, "trust-low", bare.TrustClass)
}

func testDetails() *coingecko.CoinDetails {
	d := &coingecko.CoinDetails{
		ID:            "bitcoin",
		Symbol:        "btc",
		Name:          "Bitcoin",
		MarketCapRank: 1,
		CoinGeckoRank: 1,
		GenesisDate:   ptr("2009-01-03"),
		MarketData: coingecko.MarketData{
			CurrentPrice:             coingecko.CurrencyMap{"usd": 43000, "inr": 3500000},
			MarketCap:                coingecko.CurrencyMap{"usd": 840000000000},
			TotalVolume:              coingecko.CurrencyMap{"usd": 20000000000},
			ATH:                      coingecko.CurrencyMap{"usd": 69045},
			ATL:                      coingecko.CurrencyMap{"usd": 67.81},
			PriceChangePercentage24H: 1.234,
			CirculatingSupply:        19500000,
			MaxSupply:                ptr(21000000.0),
			LastUpdated:              ptr(time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)),
		},
	}
	d.Links.Homepage = []string{"", "https://bitcoin.org"}
	d.Links.ReposURL.GitHub = []string{"https://github.com/bitcoin/bitcoin"}
	return d
}

// go test -v --run ^TestCoinHeader$
func TestCoinHeader(t *testing.T) {
	h := NewCoinHeader(testDetails(), currency.INR)
	assert.Equal(t, "BTC", h.Symbol)
	assert.Equal(t, "₹3,500,000", h.Price)
	assert.Equal(t, "1.23%", h.Change)
	assert.True(t, h.Positive)
}

// go test -v --run ^TestMarketStats$
func TestMarketStats(t *testing.T) {
	d := testDetails()
	stats := MarketStats(d, currency.USD)
	require.Len(t, stats, 6)
	assert.Equal(t, Stat{Label: "Market Cap", Value: "$840,000,000,000.00"}, stats[0])
	assert.Equal(t, Stat{Label: "Circulating Supply", Value: "19.50M BTC"}, stats[2])
	assert.Equal(t, Stat{Label: "Max Supply", Value: "21.00M BTC"}, stats[3])
	assert.Equal(t, Stat{Label: "All Time Low", Value: "$67.81"}, stats[5])

	d.MarketData.MaxSupply = nil
	assert.Len(t, MarketStats(d, currency.USD), 5)
}

// go test -v --run ^TestInfoStats$
func TestInfoStats(t *testing.T) {
	stats := InfoStats(testDetails())
	require.Len(t, stats, 5)
	assert.Equal(t, Stat{Label: "Website", Value: "Visit", Href: "https://bitcoin.org"}, stats[0])
	assert.Equal(t, "https://github.com/bitcoin/bitcoin", stats[1].Href)
	assert.Equal(t, Stat{Label: "Genesis Date", Value: "1/3/2009"}, stats[2])
	assert.Equal(t, Stat{Label: "CoinGecko Rank", Value: "#1"}, stats[3])
	assert.Equal(t, "1/2/2024, 3:04:05 PM UTC", stats[4].Value)

	bare := InfoStats(&coingecko.CoinDetails{CoinGeckoRank: 42})
	assert.Equal(t, []Stat{{Label: "CoinGecko Rank", Value: "#42"}}, bare)
}

func pageNumbers(p Pagination) []int {
	out := make([]int, 0, len(p.Links))
	for _, l := range p.Links {
		out = append(out, l.Page)
	}
	return out
}

// go test -v --run ^TestBuildPagination$
func TestBuildPagination(t *testing.T) {
	tests := []struct {
		current    int
		want       []int
		prev, next int
	}{
		{1, []int{1, 2, 0, 132}, 0, 2},
		{3, []int{1, 2, 3, 4, 0, 132}, 2, 4},
		{50, []int{1, 0, 49, 50, 51, 0, 132}, 49, 51},
		{132, []int{1, 0, 131, 132}, 131, 0},
		{500, []int{1, 0, 131, 132}, 131, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.current), func(t *testing.T) {
			p := BuildPagination(tt.current, TotalCoinPages)
			assert.Equal(t, tt.want, pageNumbers(p))
			assert.Equal(t, tt.prev, p.Prev)
			assert.Equal(t, tt.next, p.Next)
		})
	}

	single := BuildPagination(1, 1)
	assert.Equal(t, []int{1}, pageNumbers(single))
	assert.True(t, single.Links[0].Current)
}

func chartPoints(values ...float64) []coingecko.ChartPoint {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]coingecko.ChartPoint, len(values))
	for i, v := range values {
		out[i] = coingecko.ChartPoint{Time: start.Add(time.Duration(i) * time.Hour), Value: v}
	}
	return out
}

// go test -v --run ^TestNewChartView$
func TestNewChartView(t *testing.T) {
	empty := NewChartView(nil, coingecko.Range7D, "$")
	assert.True(t, empty.Empty)

	up := NewChartView(chartPoints(100, 90, 110), coingecko.Range24H, "$")
	assert.False(t, up.Empty)
	assert.Equal(t, colorUp, up.Color)
	assert.Len(t, up.XLabels, 3)
	assert.Equal(t, "00:00", up.XLabels[0].Text)
	assert.Equal(t, "02:00", up.XLabels[2].Text)
	require.Len(t, up.YLabels, chartYLabels)
	assert.Equal(t, "$90", up.YLabels[0].Text)
	assert.Equal(t, "$110", up.YLabels[chartYLabels-1].Text)

	down := NewChartView(chartPoints(110, 100), coingecko.Range30D, "€")
	assert.Equal(t, colorDown, down.Color)
	assert.Equal(t, "Mar 24", down.XLabels[0].Text)

	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(i)
	}
	many := NewChartView(chartPoints(values...), coingecko.Range7D, "$")
	assert.Len(t, many.XLabels, chartXLabels)
	assert.InDelta(t, chartWidth, many.XLabels[chartXLabels-1].X, 0.001)

	flat := NewChartView(chartPoints(5, 5, 5), coingecko.Range7D, "$")
	assert.Equal(t, colorUp, flat.Color)
	assert.NotEmpty(t, flat.Line)
}

// go test -v --run ^TestBackURL$
func TestBackURL(t *testing.T) {
	tests := map[string]string{
		"":                                   "/",
		"http://localhost:8080/coins?page=3": "/coins?page=3",
		"https://example.com/exchanges":      "/exchanges",
		"//evil.example//phish":              "/",
		"::not a url":                        "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, backURL(in), "referer %q", in)
	}
}

// go test -v --run ^TestStatusFor$
func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&coingecko.APIError{StatusCode: 404}, http.StatusNotFound},
		{&coingecko.APIError{StatusCode: 400}, http.StatusBadRequest},
		{&coingecko.APIError{StatusCode: 401}, http.StatusBadGateway},
		{&coingecko.APIError{StatusCode: 429}, http.StatusBadGateway},
		{&coingecko.APIError{StatusCode: 503}, http.StatusBadGateway},
		{querycache.ErrDisabled, http.StatusBadRequest},
		{currency.ErrInvalidCurrency, http.StatusBadRequest},
		{fmt.Errorf("get: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}
