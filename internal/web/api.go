package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cryptonics/internal/currency"
	"cryptonics/internal/market"
	"cryptonics/internal/market/querycache"
	"cryptonics/pkg/coingecko"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps a query error to the HTTP status shown to the caller.
func statusFor(err error) int {
	switch {
	case errors.Is(err, coingecko.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, coingecko.ErrBadRequest),
		errors.Is(err, querycache.ErrDisabled),
		errors.Is(err, currency.ErrInvalidCurrency):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		// upstream credentials, rate limits and outages are all the
		// upstream's problem from the caller's point of view
		return http.StatusBadGateway
	}
}

// envelope is the JSON body of every market read.
type envelope struct {
	Data         any        `json:"data"`
	Status       string     `json:"status"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	FailureCount int        `json:"failure_count"`
}

func (s *Server) respond(c *gin.Context, key querycache.Key, data any, err error) {
	if err != nil {
		LoggerFrom(c).Warn("api query failed", zap.Stringer("key", key), zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	state := s.market.State(key)
	body := envelope{Data: data, Status: string(state.Status), FailureCount: state.FailureCount}
	if !state.UpdatedAt.IsZero() {
		at := state.UpdatedAt.UTC()
		body.UpdatedAt = &at
	}
	c.JSON(http.StatusOK, body)
}

func wantsRetry(c *gin.Context) bool {
	return c.Query("retry") != ""
}

type apiCoinsQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Currency string `form:"vs_currency" binding:"omitempty,oneof=usd eur inr"`
	Query    string `form:"q" binding:"max=100"`
}

type apiChartQuery struct {
	Currency string `form:"vs_currency" binding:"omitempty,oneof=usd eur inr"`
	Range    string `form:"range" binding:"omitempty,oneof=24h 7d 14d 30d 60d 200d 1y max"`
}

type searchQuery struct {
	Query string `form:"q" binding:"required,max=100"`
}

type currencyBody struct {
	Currency string `json:"currency" binding:"required,oneof=usd eur inr"`
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// sessionCurrency returns the requested currency, or the session preference.
func sessionCurrency(c *gin.Context, requested string) string {
	if requested != "" {
		return requested
	}
	return string(CurrencyFrom(c).Currency())
}

func (s *Server) apiCoins(c *gin.Context) {
	var q apiCoinsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	page := max(q.Page, 1)
	cur := sessionCurrency(c, q.Currency)

	fetch := s.market.Coins
	if wantsRetry(c) {
		fetch = s.market.RefetchCoins
	}
	coins, err := fetch(c.Request.Context(), page, cur)
	if err == nil {
		coins = market.FilterCoins(coins, q.Query)
	}
	s.respond(c, market.CoinsKey(page, cur), coins, err)
}

func (s *Server) apiCoinDetails(c *gin.Context) {
	id := c.Param("id")
	fetch := s.market.CoinDetails
	if wantsRetry(c) {
		fetch = s.market.RefetchCoinDetails
	}
	details, err := fetch(c.Request.Context(), id)
	s.respond(c, market.CoinDetailsKey(id), details, err)
}

func (s *Server) apiCoinChart(c *gin.Context) {
	var q apiChartQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	id := c.Param("id")
	cur := sessionCurrency(c, q.Currency)
	r := coingecko.TimeRange(q.Range)
	if !r.IsValid() {
		r = coingecko.DefaultTimeRange
	}

	fetch := s.market.CoinChart
	if wantsRetry(c) {
		fetch = s.market.RefetchCoinChart
	}
	chart, err := fetch(c.Request.Context(), id, cur, r)
	s.respond(c, market.CoinChartKey(id, cur, r), chart, err)
}

func (s *Server) apiExchanges(c *gin.Context) {
	fetch := s.market.Exchanges
	if wantsRetry(c) {
		fetch = s.market.RefetchExchanges
	}
	exchanges, err := fetch(c.Request.Context())
	s.respond(c, market.ExchangesKey(), exchanges, err)
}

func (s *Server) apiTrending(c *gin.Context) {
	trending, err := s.market.Trending(c.Request.Context())
	s.respond(c, market.TrendingKey(), trending, err)
}

func (s *Server) apiGlobal(c *gin.Context) {
	global, err := s.market.Global(c.Request.Context())
	s.respond(c, market.GlobalKey(), global, err)
}

func (s *Server) apiSearch(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	result, err := s.market.Search(c.Request.Context(), q.Query)
	s.respond(c, market.SearchKey(q.Query), result, err)
}

func currencyResponse(cur *currency.Context) gin.H {
	return gin.H{
		"currency": cur.Currency(),
		"symbol":   cur.Symbol(),
		"options":  currency.All(),
	}
}

func (s *Server) apiGetCurrency(c *gin.Context) {
	c.JSON(http.StatusOK, currencyResponse(CurrencyFrom(c)))
}

func (s *Server) apiPutCurrency(c *gin.Context) {
	var body currencyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	cur := CurrencyFrom(c)
	if err := cur.Set(c.Request.Context(), currency.Code(body.Currency)); err != nil {
		if errors.Is(err, currency.ErrInvalidCurrency) {
			badRequest(c, err)
			return
		}
		LoggerFrom(c).Error("failed to persist currency", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save currency preference"})
		return
	}

	c.JSON(http.StatusOK, currencyResponse(cur))
}
