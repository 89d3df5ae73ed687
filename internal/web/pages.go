package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"cryptonics/internal/currency"
	"cryptonics/internal/market"
	"cryptonics/pkg/coingecko"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type feature struct {
	Title       string
	Description string
}

var features = []feature{
	{"Real-Time Data", "Get live cryptocurrency prices and market data updated every second from trusted sources."},
	{"Advanced Charts", "Analyze price movements with professional-grade charts and technical indicators."},
	{"Secure & Reliable", "Built with security in mind, ensuring your data privacy and platform reliability."},
}

type homeContent struct {
	Features []feature
}

type coinsContent struct {
	Page       int
	Query      string
	Coins      []CoinCard
	Pagination *Pagination
	Error      *ErrorView
}

type rangeButton struct {
	Value    coingecko.TimeRange
	Label    string
	Selected bool
}

type coinContent struct {
	Header     CoinHeader
	Ranges     []rangeButton
	Chart      ChartView
	ChartError *ErrorView
	Market     []Stat
	Info       []Stat
	Error      *ErrorView
}

type exchangesContent struct {
	Exchanges []ExchangeCard
	Error     *ErrorView
}

type coinsQuery struct {
	Page  int    `form:"page" binding:"omitempty,min=1"`
	Query string `form:"q" binding:"max=100"`
	Retry bool   `form:"retry"`
}

type coinQuery struct {
	Range string `form:"range"`
	Retry bool   `form:"retry"`
}

type currencyForm struct {
	Currency string `form:"currency" binding:"required"`
}

func (s *Server) render(c *gin.Context, status int, name, title, active string, content any) {
	c.HTML(status, name, Page{
		Title:    title,
		Active:   active,
		Currency: CurrencyFrom(c).Currency(),
		Options:  currency.All(),
		Content:  content,
	})
}

func (s *Server) renderError(c *gin.Context, status int, view ErrorView) {
	s.render(c, status, "error", view.Title, "", view)
}

func retryURL(path string, q url.Values) string {
	q.Set("retry", "1")
	return path + "?" + q.Encode()
}

func (s *Server) homePage(c *gin.Context) {
	s.render(c, http.StatusOK, "home", "", "home", homeContent{Features: features})
}

func (s *Server) coinsPage(c *gin.Context) {
	var q coinsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.renderError(c, http.StatusBadRequest, ErrorView{
			Title:   "Invalid Request",
			Message: "The page or search term is not valid.",
		})
		return
	}
	page := min(max(q.Page, 1), TotalCoinPages)
	cur := CurrencyFrom(c).Currency()

	fetch := s.market.Coins
	if q.Retry {
		fetch = s.market.RefetchCoins
	}

	content := coinsContent{Page: page, Query: q.Query}
	coins, err := fetch(c.Request.Context(), page, string(cur))
	if err != nil {
		LoggerFrom(c).Warn("coins page failed", zap.Int("page", page), zap.Error(err))
		content.Error = &ErrorView{
			Title:    "Failed to Load Cryptocurrencies",
			Message:  "There was an error fetching cryptocurrency data. Please check your connection and try again.",
			RetryURL: retryURL("/coins", url.Values{"page": {strconv.Itoa(page)}, "q": {q.Query}}),
		}
		s.render(c, statusFor(err), "coins", "Cryptocurrencies", "coins", content)
		return
	}

	content.Coins = coinCards(market.FilterCoins(coins, q.Query), cur)
	if q.Query == "" {
		p := BuildPagination(page, TotalCoinPages)
		content.Pagination = &p
	}

	s.render(c, http.StatusOK, "coins", "Cryptocurrencies", "coins", content)
}

func (s *Server) coinPage(c *gin.Context) {
	id := c.Param("id")
	var q coinQuery
	_ = c.ShouldBindQuery(&q)

	r := coingecko.TimeRange(q.Range)
	if !r.IsValid() {
		r = coingecko.DefaultTimeRange
	}
	cur := CurrencyFrom(c).Currency()
	ctx := c.Request.Context()
	retry := retryURL("/coins/"+url.PathEscape(id), url.Values{"range": {string(r)}})

	fetchDetails, fetchChart := s.market.CoinDetails, s.market.CoinChart
	if q.Retry {
		fetchDetails, fetchChart = s.market.RefetchCoinDetails, s.market.RefetchCoinChart
	}

	var (
		wg       sync.WaitGroup
		details  *coingecko.CoinDetails
		chart    *coingecko.ChartData
		detErr   error
		chartErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		details, detErr = fetchDetails(ctx, id)
	}()
	go func() {
		defer wg.Done()
		chart, chartErr = fetchChart(ctx, id, string(cur), r)
	}()
	wg.Wait()

	if detErr != nil {
		LoggerFrom(c).Warn("coin page failed", zap.String("coin", id), zap.Error(detErr))
		if errors.Is(detErr, coingecko.ErrNotFound) {
			s.renderError(c, http.StatusNotFound, ErrorView{
				Title:   "Coin Not Found",
				Message: "The requested cryptocurrency could not be found.",
			})
			return
		}
		s.renderError(c, statusFor(detErr), ErrorView{
			Title:    "Failed to Load Coin Details",
			Message:  "There was an error fetching coin data. Please check your connection and try again.",
			RetryURL: retry,
		})
		return
	}

	content := coinContent{
		Header: NewCoinHeader(details, cur),
		Market: MarketStats(details, cur),
		Info:   InfoStats(details),
	}
	for _, tr := range coingecko.TimeRanges {
		content.Ranges = append(content.Ranges, rangeButton{Value: tr, Label: tr.Meta().Label, Selected: tr == r})
	}

	if chartErr != nil {
		LoggerFrom(c).Warn("coin chart failed", zap.String("coin", id), zap.String("range", string(r)), zap.Error(chartErr))
		content.ChartError = &ErrorView{Title: "Chart Error", Message: "Failed to load chart data", RetryURL: retry}
	} else {
		content.Chart = NewChartView(chart.Prices, r, cur.Symbol())
	}

	s.render(c, http.StatusOK, "coin", details.Name, "coins", content)
}

func (s *Server) exchangesPage(c *gin.Context) {
	fetch := s.market.Exchanges
	if c.Query("retry") != "" {
		fetch = s.market.RefetchExchanges
	}

	var content exchangesContent
	exchanges, err := fetch(c.Request.Context())
	if err != nil {
		LoggerFrom(c).Warn("exchanges page failed", zap.Error(err))
		content.Error = &ErrorView{
			Title:    "Failed to Load Exchanges",
			Message:  "There was an error fetching exchange data. Please check your connection and try again.",
			RetryURL: retryURL("/exchanges", url.Values{}),
		}
		s.render(c, statusFor(err), "exchanges", "Exchanges", "exchanges", content)
		return
	}

	content.Exchanges = exchangeCards(exchanges)
	s.render(c, http.StatusOK, "exchanges", "Exchanges", "exchanges", content)
}

// setCurrency stores the selector choice and sends the browser back.
func (s *Server) setCurrency(c *gin.Context) {
	var form currencyForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderError(c, http.StatusBadRequest, ErrorView{Title: "Invalid Currency", Message: "Please choose a supported currency."})
		return
	}

	code, err := currency.Parse(form.Currency)
	if err == nil {
		err = CurrencyFrom(c).Set(c.Request.Context(), code)
	}
	if errors.Is(err, currency.ErrInvalidCurrency) {
		s.renderError(c, http.StatusBadRequest, ErrorView{Title: "Invalid Currency", Message: "Please choose a supported currency."})
		return
	}
	if err != nil {
		LoggerFrom(c).Error("failed to persist currency", zap.Error(err))
	}

	c.Redirect(http.StatusSeeOther, backURL(c.Request.Referer()))
}

// backURL keeps only the path and query of a same-site referer.
func backURL(referer string) string {
	u, err := url.Parse(referer)
	if err != nil || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "/"
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}
