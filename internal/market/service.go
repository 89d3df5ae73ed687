package market

import (
	"context"
	"strings"

	"cryptonics/config"
	"cryptonics/internal/market/querycache"
	"cryptonics/pkg/coingecko"

	"go.uber.org/zap"
)

// API is the subset of the CoinGecko client the queries need.
type API interface {
	GetCoins(ctx context.Context, page int, vsCurrency string, perPage int) ([]coingecko.Coin, error)
	GetCoinDetails(ctx context.Context, coinID string) (*coingecko.CoinDetails, error)
	GetCoinChart(ctx context.Context, coinID, vsCurrency string, r coingecko.TimeRange) (*coingecko.ChartData, error)
	GetExchanges(ctx context.Context, page, perPage int) ([]coingecko.Exchange, error)
	SearchCoins(ctx context.Context, query string) (*coingecko.SearchResult, error)
	GetTrending(ctx context.Context) (*coingecko.Trending, error)
	GetGlobal(ctx context.Context) (*coingecko.GlobalMarketData, error)
}

// NewCache builds a query cache that never retries upstream client errors.
func NewCache(tier querycache.Tier, logger *zap.Logger) *querycache.Cache {
	return querycache.New(querycache.Options{
		Tier:      tier,
		Permanent: coingecko.IsClientError,
		Logger:    logger,
	})
}

// Service runs every market read through the query cache.
type Service struct {
	api      API
	cache    *querycache.Cache
	policies map[string]querycache.Policy
	perPage  int
}

func NewService(api API, cache *querycache.Cache, cfg config.CacheConfig, perPage int) *Service {
	if perPage <= 0 {
		perPage = coingecko.DefaultPerPage
	}
	return &Service{
		api:      api,
		cache:    cache,
		policies: BuildPolicies(cfg),
		perPage:  perPage,
	}
}

func (s *Service) Cache() *querycache.Cache {
	return s.cache
}

// Policy returns the policy for a query name, DefaultPolicy for unknown ones.
func (s *Service) Policy(name string) querycache.Policy {
	if p, ok := s.policies[name]; ok {
		return p
	}
	return querycache.DefaultPolicy()
}

// State reports the cache status of key.
func (s *Service) State(key querycache.Key) querycache.State {
	state, _ := s.cache.Peek(key)
	return state
}

func run[T any](ctx context.Context, s *Service, force bool, key querycache.Key, p querycache.Policy, fn func(context.Context) (T, error)) (T, error) {
	if force {
		return querycache.Refetch(ctx, s.cache, key, p, fn)
	}
	return querycache.Fetch(ctx, s.cache, key, p, fn)
}

func (s *Service) coins(ctx context.Context, page int, currency string, force bool) ([]coingecko.Coin, error) {
	if page < 1 {
		page = 1
	}
	return run(ctx, s, force, CoinsKey(page, currency), s.Policy(QueryCoins), func(ctx context.Context) ([]coingecko.Coin, error) {
		return s.api.GetCoins(ctx, page, currency, s.perPage)
	})
}

// Coins returns one page of coins priced in currency.
func (s *Service) Coins(ctx context.Context, page int, currency string) ([]coingecko.Coin, error) {
	return s.coins(ctx, page, currency, false)
}

func (s *Service) RefetchCoins(ctx context.Context, page int, currency string) ([]coingecko.Coin, error) {
	return s.coins(ctx, page, currency, true)
}

func (s *Service) coinDetails(ctx context.Context, id string, force bool) (*coingecko.CoinDetails, error) {
	p := s.Policy(QueryCoinDetails)
	p.Disabled = id == ""
	return run(ctx, s, force, CoinDetailsKey(id), p, func(ctx context.Context) (*coingecko.CoinDetails, error) {
		return s.api.GetCoinDetails(ctx, id)
	})
}

// CoinDetails returns the detail document for id. An empty id is a
// disabled query.
func (s *Service) CoinDetails(ctx context.Context, id string) (*coingecko.CoinDetails, error) {
	return s.coinDetails(ctx, id, false)
}

func (s *Service) RefetchCoinDetails(ctx context.Context, id string) (*coingecko.CoinDetails, error) {
	return s.coinDetails(ctx, id, true)
}

func (s *Service) coinChart(ctx context.Context, id, currency string, r coingecko.TimeRange, force bool) (*coingecko.ChartData, error) {
	if !r.IsValid() {
		r = coingecko.DefaultTimeRange
	}
	p := s.Policy(QueryCoinChart)
	p.Disabled = id == ""
	return run(ctx, s, force, CoinChartKey(id, currency, r), p, func(ctx context.Context) (*coingecko.ChartData, error) {
		return s.api.GetCoinChart(ctx, id, currency, r)
	})
}

func (s *Service) CoinChart(ctx context.Context, id, currency string, r coingecko.TimeRange) (*coingecko.ChartData, error) {
	return s.coinChart(ctx, id, currency, r, false)
}

func (s *Service) RefetchCoinChart(ctx context.Context, id, currency string, r coingecko.TimeRange) (*coingecko.ChartData, error) {
	return s.coinChart(ctx, id, currency, r, true)
}

func (s *Service) exchanges(ctx context.Context, force bool) ([]coingecko.Exchange, error) {
	return run(ctx, s, force, ExchangesKey(), s.Policy(QueryExchanges), func(ctx context.Context) ([]coingecko.Exchange, error) {
		return s.api.GetExchanges(ctx, 1, s.perPage)
	})
}

// Exchanges returns the first page of exchanges.
func (s *Service) Exchanges(ctx context.Context) ([]coingecko.Exchange, error) {
	return s.exchanges(ctx, false)
}

func (s *Service) RefetchExchanges(ctx context.Context) ([]coingecko.Exchange, error) {
	return s.exchanges(ctx, true)
}

func (s *Service) Trending(ctx context.Context) (*coingecko.Trending, error) {
	return run(ctx, s, false, TrendingKey(), s.Policy(QueryTrending), s.api.GetTrending)
}

func (s *Service) Global(ctx context.Context) (*coingecko.GlobalMarketData, error) {
	return run(ctx, s, false, GlobalKey(), s.Policy(QueryGlobal), s.api.GetGlobal)
}

// Search runs the upstream search. A blank query is a disabled query.
func (s *Service) Search(ctx context.Context, query string) (*coingecko.SearchResult, error) {
	query = strings.TrimSpace(query)
	p := s.Policy(QuerySearch)
	p.Disabled = query == ""
	return run(ctx, s, false, SearchKey(query), p, func(ctx context.Context) (*coingecko.SearchResult, error) {
		return s.api.SearchCoins(ctx, query)
	})
}
