package querycache

import "time"

const (
	DefaultStaleTime     = time.Minute
	DefaultCacheTime     = 5 * time.Minute
	DefaultRetry         = 3
	DefaultRetryDelay    = time.Second
	DefaultRetryMaxDelay = 30 * time.Second
)

// Policy controls freshness, retention and retry for one query.
type Policy struct {
	StaleTime     time.Duration // data younger than this is served without a fetch
	CacheTime     time.Duration // unused entries are evicted after this
	Retry         int           // retries after the first failed attempt
	RetryDelay    time.Duration // first retry delay, doubled per attempt
	RetryMaxDelay time.Duration
	Disabled      bool // short-circuits with ErrDisabled, no I/O
}

func DefaultPolicy() Policy {
	return Policy{
		StaleTime:     DefaultStaleTime,
		CacheTime:     DefaultCacheTime,
		Retry:         DefaultRetry,
		RetryDelay:    DefaultRetryDelay,
		RetryMaxDelay: DefaultRetryMaxDelay,
	}
}

func (p Policy) normalized() Policy {
	if p.CacheTime <= 0 {
		p.CacheTime = DefaultCacheTime
	}
	if p.StaleTime < 0 {
		p.StaleTime = 0
	}
	if p.Retry < 0 {
		p.Retry = 0
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = DefaultRetryDelay
	}
	if p.RetryMaxDelay <= 0 {
		p.RetryMaxDelay = DefaultRetryMaxDelay
	}
	return p
}
