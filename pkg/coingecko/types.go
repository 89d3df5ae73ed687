package coingecko

import "time"

// Coin is one row of /coins/markets.
type Coin struct {
	ID                       string     `json:"id"`
	Symbol                   string     `json:"symbol"`
	Name                     string     `json:"name"`
	Image                    string     `json:"image"`
	CurrentPrice             float64    `json:"current_price"`
	MarketCap                float64    `json:"market_cap"`
	MarketCapRank            int        `json:"market_cap_rank"`
	TotalVolume              float64    `json:"total_volume"`
	High24H                  float64    `json:"high_24h"`
	Low24H                   float64    `json:"low_24h"`
	PriceChange24H           float64    `json:"price_change_24h"`
	PriceChangePercentage24H float64    `json:"price_change_percentage_24h"`
	CirculatingSupply        float64    `json:"circulating_supply"`
	TotalSupply              *float64   `json:"total_supply"`
	MaxSupply                *float64   `json:"max_supply"`
	ATH                      float64    `json:"ath"`
	ATL                      float64    `json:"atl"`
	LastUpdated              *time.Time `json:"last_updated"`
}

// CurrencyMap holds one value per vs-currency code ("usd", "eur", ...).
type CurrencyMap map[string]float64

// Get returns the value for code, 0 when absent.
func (m CurrencyMap) Get(code string) float64 {
	return m[code]
}

type CoinImage struct {
	Thumb string `json:"thumb"`
	Small string `json:"small"`
	Large string `json:"large"`
}

type CoinLinks struct {
	Homepage       []string `json:"homepage"`
	BlockchainSite []string `json:"blockchain_site"`
	SubredditURL   string   `json:"subreddit_url"`
	ReposURL       struct {
		GitHub []string `json:"github"`
	} `json:"repos_url"`
}

// FirstHomepage returns the first non-empty homepage link.
func (l CoinLinks) FirstHomepage() string {
	return firstNonEmpty(l.Homepage)
}

// FirstGitHub returns the first non-empty GitHub repository link.
func (l CoinLinks) FirstGitHub() string {
	return firstNonEmpty(l.ReposURL.GitHub)
}

func firstNonEmpty(list []string) string {
	for _, s := range list {
		if s != "" {
			return s
		}
	}
	return ""
}

type MarketData struct {
	CurrentPrice             CurrencyMap `json:"current_price"`
	MarketCap                CurrencyMap `json:"market_cap"`
	TotalVolume              CurrencyMap `json:"total_volume"`
	ATH                      CurrencyMap `json:"ath"`
	ATL                      CurrencyMap `json:"atl"`
	High24H                  CurrencyMap `json:"high_24h"`
	Low24H                   CurrencyMap `json:"low_24h"`
	PriceChangePercentage24H float64     `json:"price_change_percentage_24h"`
	PriceChangePercentage7D  float64     `json:"price_change_percentage_7d"`
	PriceChangePercentage30D float64     `json:"price_change_percentage_30d"`
	CirculatingSupply        float64     `json:"circulating_supply"`
	TotalSupply              *float64    `json:"total_supply"`
	MaxSupply                *float64    `json:"max_supply"`
	LastUpdated              *time.Time  `json:"last_updated"`
}

// CoinDetails is the /coins/{id} document.
type CoinDetails struct {
	ID            string            `json:"id"`
	Symbol        string            `json:"symbol"`
	Name          string            `json:"name"`
	Description   map[string]string `json:"description"`
	Image         CoinImage         `json:"image"`
	MarketCapRank int               `json:"market_cap_rank"`
	CoinGeckoRank int               `json:"coingecko_rank"`
	GenesisDate   *string           `json:"genesis_date"` // "2009-01-03" or null
	Links         CoinLinks         `json:"links"`
	MarketData    MarketData        `json:"market_data"`
}

// Exchange is one row of /exchanges.
type Exchange struct {
	ID                          string  `json:"id"`
	Name                        string  `json:"name"`
	YearEstablished             *int    `json:"year_established"`
	Country                     *string `json:"country"`
	Description                 string  `json:"description"`
	URL                         string  `json:"url"`
	Image                       string  `json:"image"`
	HasTradingIncentive         bool    `json:"has_trading_incentive"`
	TrustScore                  int     `json:"trust_score"`
	TrustScoreRank              int     `json:"trust_score_rank"`
	TradeVolume24HBTC           float64 `json:"trade_volume_24h_btc"`
	TradeVolume24HBTCNormalized float64 `json:"trade_volume_24h_btc_normalized"`
}

// MarketChartResponse is the raw /coins/{id}/market_chart body; each row is
// [timestamp_ms, value].
type MarketChartResponse struct {
	Prices       [][]float64 `json:"prices"`
	MarketCaps   [][]float64 `json:"market_caps"`
	TotalVolumes [][]float64 `json:"total_volumes"`
}

// ChartPoint is one (time, value) sample.
type ChartPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// ChartData is the parsed market chart for one range.
type ChartData struct {
	Prices       []ChartPoint `json:"prices"`
	MarketCaps   []ChartPoint `json:"market_caps"`
	TotalVolumes []ChartPoint `json:"total_volumes"`
}

// SearchCoin is a coin hit from /search.
type SearchCoin struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	APISymbol     string `json:"api_symbol"`
	Symbol        string `json:"symbol"`
	MarketCapRank int    `json:"market_cap_rank"`
	Thumb         string `json:"thumb"`
	Large         string `json:"large"`
}

type SearchExchange struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MarketType string `json:"market_type"`
	Thumb      string `json:"thumb"`
	Large      string `json:"large"`
}

// SearchResult is the /search body.
type SearchResult struct {
	Coins     []SearchCoin     `json:"coins"`
	Exchanges []SearchExchange `json:"exchanges"`
}

type TrendingItem struct {
	ID            string  `json:"id"`
	CoinID        int     `json:"coin_id"`
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol"`
	MarketCapRank int     `json:"market_cap_rank"`
	Thumb         string  `json:"thumb"`
	Small         string  `json:"small"`
	Large         string  `json:"large"`
	Slug          string  `json:"slug"`
	PriceBTC      float64 `json:"price_btc"`
	Score         int     `json:"score"`
}

type TrendingCoin struct {
	Item TrendingItem `json:"item"`
}

// Trending is the /search/trending body.
type Trending struct {
	Coins []TrendingCoin `json:"coins"`
}

// GlobalMarketData is the "data" object of /global.
type GlobalMarketData struct {
	ActiveCryptocurrencies          int         `json:"active_cryptocurrencies"`
	Markets                         int         `json:"markets"`
	TotalMarketCap                  CurrencyMap `json:"total_market_cap"`
	TotalVolume                     CurrencyMap `json:"total_volume"`
	MarketCapPercentage             CurrencyMap `json:"market_cap_percentage"`
	MarketCapChangePercentage24HUSD float64     `json:"market_cap_change_percentage_24h_usd"`
	UpdatedAt                       int64       `json:"updated_at"`
}

type globalResponse struct {
	Data GlobalMarketData `json:"data"`
}
