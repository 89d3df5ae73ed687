package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrDisabled is returned by Fetch when the policy disables the query.
var ErrDisabled = errors.New("querycache: query disabled")

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is a snapshot of one entry.
type State struct {
	Status       Status    `json:"status"`
	Data         any       `json:"data,omitempty"`
	Err          error     `json:"-"`
	UpdatedAt    time.Time `json:"updated_at"`
	FailureCount int       `json:"failure_count"`
}

type entry struct {
	key          Key
	data         any
	hasData      bool
	err          error
	status       Status
	updatedAt    time.Time
	lastAccess   time.Time
	cacheTime    time.Duration
	failureCount int
	invalidated  bool
}

func (e *entry) fresh(now time.Time, staleTime time.Duration) bool {
	return e.hasData && !e.invalidated && now.Sub(e.updatedAt) < staleTime
}

// Options configures a Cache.
type Options struct {
	// Tier is an optional shared cache consulted on a miss.
	Tier Tier
	// Permanent reports errors that must not be retried.
	Permanent func(error) bool
	Logger    *zap.Logger
}

// Cache holds query results keyed by Key. Concurrent fetches of one key
// share a single call to the loader.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group

	tier      Tier
	permanent func(error) bool
	logger    *zap.Logger
	now       func() time.Time
}

func New(opts Options) *Cache {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Permanent == nil {
		opts.Permanent = func(error) bool { return false }
	}
	return &Cache{
		entries:   make(map[string]*entry),
		tier:      opts.Tier,
		permanent: opts.Permanent,
		logger:    opts.Logger.Named("querycache"),
		now:       time.Now,
	}
}

type loadFunc func(ctx context.Context, force bool) (data any, updatedAt time.Time, err error)

// Fetch returns the cached value for key while it is fresh, otherwise it
// loads it with fn. Failed loads are retried per the policy. On failure the
// entry keeps its last successful data.
func Fetch[T any](ctx context.Context, c *Cache, key Key, p Policy, fn func(context.Context) (T, error)) (T, error) {
	return fetchTyped(ctx, c, key, p, false, fn)
}

// Refetch loads key with fn regardless of freshness.
func Refetch[T any](ctx context.Context, c *Cache, key Key, p Policy, fn func(context.Context) (T, error)) (T, error) {
	return fetchTyped(ctx, c, key, p, true, fn)
}

func fetchTyped[T any](ctx context.Context, c *Cache, key Key, p Policy, force bool, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	p = p.normalized()

	v, err := c.fetch(ctx, key, p, force, c.loader(key, p, func(ctx context.Context) (any, error) {
		return fn(ctx)
	}, func(raw json.RawMessage) (any, error) {
		var out T
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		return out, nil
	}))
	if err != nil {
		return zero, err
	}

	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("querycache: %s holds %T", key, v)
	}
	return out, nil
}

func (c *Cache) fetch(ctx context.Context, key Key, p Policy, force bool, load loadFunc) (any, error) {
	if p.Disabled {
		return nil, ErrDisabled
	}

	k := key.String()
	now := c.now()

	c.mu.Lock()
	e := c.entryLocked(k, key)
	e.lastAccess = now
	e.cacheTime = p.CacheTime
	if !force && e.fresh(now, p.StaleTime) {
		data := e.data
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	// The load outlives any single caller so one cancelled request does not
	// fail the others waiting on the same key.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(k, func() (any, error) {
		return c.run(loadCtx, k, key, p, force, load)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) entryLocked(k string, key Key) *entry {
	e, ok := c.entries[k]
	if !ok {
		e = &entry{key: key, status: StatusPending, lastAccess: c.now()}
		c.entries[k] = e
	}
	return e
}

func (c *Cache) run(ctx context.Context, k string, key Key, p Policy, force bool, load loadFunc) (any, error) {
	data, updatedAt, failures, err := c.retry(ctx, key, p, force, load)

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(k, key)
	if err != nil {
		e.status = StatusError
		e.err = err
		e.failureCount += failures
		return nil, err
	}

	e.data = data
	e.hasData = true
	e.updatedAt = updatedAt
	e.err = nil
	e.status = StatusSuccess
	e.failureCount = 0
	e.invalidated = false
	return data, nil
}

// retry calls load until it succeeds, the error is permanent or the retry
// budget is spent. Delays start at RetryDelay and double up to RetryMaxDelay.
func (c *Cache) retry(ctx context.Context, key Key, p Policy, force bool, load loadFunc) (any, time.Time, int, error) {
	b := &backoff.Backoff{
		Min:    p.RetryDelay,
		Max:    p.RetryMaxDelay,
		Factor: 2,
	}

	for attempt := 0; ; attempt++ {
		data, updatedAt, err := load(ctx, force)
		if err == nil {
			return data, updatedAt, attempt, nil
		}

		failures := attempt + 1
		if c.permanent(err) || attempt >= p.Retry || ctx.Err() != nil {
			c.logger.Debug("query failed",
				zap.Stringer("key", key), zap.Int("attempts", failures), zap.Error(err))
			return nil, time.Time{}, failures, err
		}

		delay := b.Duration()
		c.logger.Debug("query failed, retrying",
			zap.Stringer("key", key), zap.Int("attempt", failures), zap.Duration("delay", delay), zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, time.Time{}, failures, err
		}
	}
}

// loader wraps fn with the shared tier: a fresh tier value short-circuits
// the call and a successful call is written back.
func (c *Cache) loader(key Key, p Policy, fn func(context.Context) (any, error), decode func(json.RawMessage) (any, error)) loadFunc {
	return func(ctx context.Context, force bool) (any, time.Time, error) {
		k := key.String()

		if c.tier != nil && !force {
			if data, at, ok := c.readTier(ctx, k, p, decode); ok {
				return data, at, nil
			}
		}

		data, err := fn(ctx)
		if err != nil {
			return nil, time.Time{}, err
		}

		at := c.now()
		if c.tier != nil {
			c.writeTier(ctx, k, p, data, at)
		}
		return data, at, nil
	}
}

type tierEnvelope struct {
	UpdatedAt time.Time       `json:"updated_at"`
	Data      json.RawMessage `json:"data"`
}

func (c *Cache) readTier(ctx context.Context, k string, p Policy, decode func(json.RawMessage) (any, error)) (any, time.Time, bool) {
	raw, err := c.tier.Get(ctx, k)
	if err != nil {
		if !errors.Is(err, ErrTierMiss) {
			c.logger.Warn("tier read failed", zap.String("key", k), zap.Error(err))
		}
		return nil, time.Time{}, false
	}

	var env tierEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Warn("tier entry corrupt", zap.String("key", k), zap.Error(err))
		return nil, time.Time{}, false
	}
	if c.now().Sub(env.UpdatedAt) >= p.StaleTime {
		return nil, time.Time{}, false
	}

	data, err := decode(env.Data)
	if err != nil {
		c.logger.Warn("tier entry decode failed", zap.String("key", k), zap.Error(err))
		return nil, time.Time{}, false
	}
	return data, env.UpdatedAt, true
}

func (c *Cache) writeTier(ctx context.Context, k string, p Policy, data any, at time.Time) {
	body, err := json.Marshal(data)
	if err != nil {
		c.logger.Warn("tier encode failed", zap.String("key", k), zap.Error(err))
		return
	}
	raw, err := json.Marshal(tierEnvelope{UpdatedAt: at, Data: body})
	if err != nil {
		return
	}
	if err := c.tier.Set(ctx, k, raw, p.CacheTime); err != nil {
		c.logger.Warn("tier write failed", zap.String("key", k), zap.Error(err))
	}
}

// Peek returns the state of key without triggering a load.
func (c *Cache) Peek(key Key) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok {
		return State{Status: StatusPending}, false
	}
	return State{
		Status:       e.status,
		Data:         e.data,
		Err:          e.err,
		UpdatedAt:    e.updatedAt,
		FailureCount: e.failureCount,
	}, true
}

// Invalidate marks key stale so the next Fetch reloads it. Cached data is
// kept until then.
func (c *Cache) Invalidate(ctx context.Context, key Key) {
	k := key.String()

	c.mu.Lock()
	if e, ok := c.entries[k]; ok {
		e.invalidated = true
	}
	c.mu.Unlock()

	c.deleteTier(ctx, k)
}

// Remove drops key entirely.
func (c *Cache) Remove(ctx context.Context, key Key) {
	k := key.String()

	c.mu.Lock()
	delete(c.entries, k)
	c.mu.Unlock()

	c.deleteTier(ctx, k)
}

func (c *Cache) deleteTier(ctx context.Context, k string) {
	if c.tier == nil {
		return
	}
	if err := c.tier.Delete(ctx, k); err != nil {
		c.logger.Warn("tier delete failed", zap.String("key", k), zap.Error(err))
	}
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
