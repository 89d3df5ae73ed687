package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	DefaultTimeout = 10 * time.Second
	DefaultPerPage = 100

	// errBodyLimit caps how much of an error body ends up in logs and errors.
	errBodyLimit = 512
)

// Options configures a RESTClient. Zero values fall back to defaults.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	APIKey    string
	Pro       bool // send the key as x-cg-pro-api-key instead of the demo header
	UserAgent string
}

type RESTClient struct {
	baseURL    string
	apiKey     string
	keyHeader  string
	userAgent  string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewRESTClient(opts Options, logger *zap.Logger) *RESTClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	keyHeader := "x-cg-demo-api-key"
	if opts.Pro {
		keyHeader = "x-cg-pro-api-key"
	}

	return &RESTClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		keyHeader:  keyHeader,
		userAgent:  opts.UserAgent,
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     logger.Named("coingecko"),
	}
}

func (c *RESTClient) HTTPClient() *http.Client {
	return c.httpClient
}

// get performs one GET and decodes the JSON body into out. It is the only
// place that talks to the network and the only place upstream errors are
// logged.
func (c *RESTClient) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.apiKey != "" {
		req.Header.Set(c.keyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("api request failed",
			zap.String("path", path), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
		apiErr := &APIError{StatusCode: resp.StatusCode, Endpoint: path, Body: strings.TrimSpace(string(body))}
		c.logger.Error("api error response",
			zap.String("path", path), zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)), zap.Error(apiErr))
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Error("api decode failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("decode response: %w", err)
	}

	c.logger.Debug("api request completed",
		zap.String("path", path), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// GetCoins fetches one page of coins ordered by market cap.
func (c *RESTClient) GetCoins(ctx context.Context, page int, vsCurrency string, perPage int) ([]Coin, error) {
	if page < 1 {
		page = 1
	}
	if vsCurrency == "" {
		vsCurrency = "usd"
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	params := url.Values{}
	params.Set("vs_currency", vsCurrency)
	params.Set("order", "market_cap_desc")
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("page", strconv.Itoa(page))
	params.Set("sparkline", "false")

	var coins []Coin
	if err := c.get(ctx, "/coins/markets", params, &coins); err != nil {
		return nil, err
	}
	return coins, nil
}

// GetCoinDetails fetches the full document for one coin.
func (c *RESTClient) GetCoinDetails(ctx context.Context, coinID string) (*CoinDetails, error) {
	params := url.Values{}
	params.Set("localization", "false")
	params.Set("tickers", "false")
	params.Set("market_data", "true")
	params.Set("community_data", "true")
	params.Set("developer_data", "true")
	params.Set("sparkline", "false")

	var details CoinDetails
	if err := c.get(ctx, "/coins/"+url.PathEscape(coinID), params, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// GetCoinChart fetches price, market cap and volume series for one range.
func (c *RESTClient) GetCoinChart(ctx context.Context, coinID, vsCurrency string, r TimeRange) (*ChartData, error) {
	if vsCurrency == "" {
		vsCurrency = "usd"
	}

	params := url.Values{}
	params.Set("vs_currency", vsCurrency)
	params.Set("days", r.Meta().Days)

	var raw MarketChartResponse
	if err := c.get(ctx, "/coins/"+url.PathEscape(coinID)+"/market_chart", params, &raw); err != nil {
		return nil, err
	}
	return ParseMarketChart(raw), nil
}

// GetExchanges fetches one page of exchanges ordered by trust score.
func (c *RESTClient) GetExchanges(ctx context.Context, page, perPage int) ([]Exchange, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	params := url.Values{}
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("page", strconv.Itoa(page))

	var exchanges []Exchange
	if err := c.get(ctx, "/exchanges", params, &exchanges); err != nil {
		return nil, err
	}
	return exchanges, nil
}

// SearchCoins runs the upstream full-text search.
func (c *RESTClient) SearchCoins(ctx context.Context, query string) (*SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)

	var result SearchResult
	if err := c.get(ctx, "/search", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTrending fetches the trending coins list.
func (c *RESTClient) GetTrending(ctx context.Context) (*Trending, error) {
	var trending Trending
	if err := c.get(ctx, "/search/trending", nil, &trending); err != nil {
		return nil, err
	}
	return &trending, nil
}

// GetGlobal fetches global market totals.
func (c *RESTClient) GetGlobal(ctx context.Context) (*GlobalMarketData, error) {
	var resp globalResponse
	if err := c.get(ctx, "/global", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Ping checks that the upstream answers.
func (c *RESTClient) Ping(ctx context.Context) error {
	var resp struct {
		GeckoSays string `json:"gecko_says"`
	}
	return c.get(ctx, "/ping", nil, &resp)
}
