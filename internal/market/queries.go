package market

import (
	"strings"
	"time"

	"cryptonics/config"
	"cryptonics/internal/market/querycache"
	"cryptonics/pkg/coingecko"
)

// Query names, used as the first element of every key and as the config
// section under cache.policies.
const (
	QueryCoins       = "coins"
	QueryCoinDetails = "coin-details"
	QueryCoinChart   = "coin-chart"
	QueryExchanges   = "exchanges"
	QueryTrending    = "trending"
	QueryGlobal      = "global"
	QuerySearch      = "search"
)

var defaultWindows = map[string]config.PolicyConfig{
	QueryCoins:       {StaleTime: 30 * time.Second, CacheTime: 5 * time.Minute},
	QueryCoinDetails: {StaleTime: 60 * time.Second, CacheTime: 10 * time.Minute},
	QueryCoinChart:   {StaleTime: 30 * time.Second, CacheTime: 5 * time.Minute},
	QueryExchanges:   {StaleTime: 5 * time.Minute, CacheTime: 30 * time.Minute},
	QueryTrending:    {StaleTime: 60 * time.Second, CacheTime: 10 * time.Minute},
	QueryGlobal:      {StaleTime: 2 * time.Minute, CacheTime: 15 * time.Minute},
	QuerySearch:      {StaleTime: 60 * time.Second, CacheTime: 5 * time.Minute},
}

// BuildPolicies merges the built-in windows with config overrides. A zero
// override field keeps the built-in value.
func BuildPolicies(cfg config.CacheConfig) map[string]querycache.Policy {
	out := make(map[string]querycache.Policy, len(defaultWindows))

	for name, w := range defaultWindows {
		p := querycache.DefaultPolicy()
		p.StaleTime = w.StaleTime
		p.CacheTime = w.CacheTime
		p.Retry = cfg.Retry
		if cfg.RetryMaxDelay > 0 {
			p.RetryMaxDelay = cfg.RetryMaxDelay
		}

		if o, ok := cfg.Policies[name]; ok {
			if o.StaleTime > 0 {
				p.StaleTime = o.StaleTime
			}
			if o.CacheTime > 0 {
				p.CacheTime = o.CacheTime
			}
		}
		out[name] = p
	}
	return out
}

func CoinsKey(page int, currency string) querycache.Key {
	return querycache.NewKey(QueryCoins, page, currency)
}

func CoinDetailsKey(id string) querycache.Key {
	return querycache.NewKey(QueryCoinDetails, id)
}

func CoinChartKey(id, currency string, r coingecko.TimeRange) querycache.Key {
	return querycache.NewKey(QueryCoinChart, id, currency, string(r))
}

func ExchangesKey() querycache.Key {
	return querycache.NewKey(QueryExchanges)
}

func TrendingKey() querycache.Key {
	return querycache.NewKey(QueryTrending)
}

func GlobalKey() querycache.Key {
	return querycache.NewKey(QueryGlobal)
}

func SearchKey(query string) querycache.Key {
	return querycache.NewKey(QuerySearch, query)
}

// FilterCoins keeps coins whose name or symbol contains term, ignoring case.
// A blank term returns coins unchanged.
func FilterCoins(coins []coingecko.Coin, term string) []coingecko.Coin {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return coins
	}

	out := make([]coingecko.Coin, 0, len(coins))
	for _, c := range coins {
		if strings.Contains(strings.ToLower(c.Name), term) ||
			strings.Contains(strings.ToLower(c.Symbol), term) {
			out = append(out, c)
		}
	}
	return out
}
