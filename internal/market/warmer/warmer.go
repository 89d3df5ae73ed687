package warmer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Market is the set of queries the warmer keeps hot.
type Market interface {
	Coins(ctx context.Context, page int, currency string) error
	Exchanges(ctx context.Context) error
	Global(ctx context.Context) error
	Trending(ctx context.Context) error
}

// Warmer prefetches the landing queries on start and then every interval so
// first page loads hit a warm cache.
type Warmer struct {
	Market     Market
	Currencies []string
	Interval   time.Duration
	Timeout    time.Duration // budget for one pass
	Logger     *zap.Logger
}

// Start runs the warmer in the background until ctx is cancelled.
func (w *Warmer) Start(ctx context.Context) {
	if w.Logger == nil {
		w.Logger = zap.NewNop()
	}
	if w.Interval <= 0 {
		w.Interval = 30 * time.Second
	}

	go func() {
		// Run immediately once at startup
		w.RunOnce(ctx)

		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				w.Logger.Info("warmer stopped")
				return
			case <-ticker.C:
				w.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce performs one prefetch pass and returns the number of failed
// queries. Failures are logged and never stop the loop.
func (w *Warmer) RunOnce(ctx context.Context) int {
	if w.Logger == nil {
		w.Logger = zap.NewNop()
	}

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type job struct {
		name string
		run  func(context.Context) error
	}

	jobs := make([]job, 0, len(w.Currencies)+3)
	for _, cur := range w.Currencies {
		cur := cur
		jobs = append(jobs, job{name: "coins." + cur, run: func(ctx context.Context) error {
			return w.Market.Coins(ctx, 1, cur)
		}})
	}
	jobs = append(jobs,
		job{name: "exchanges", run: w.Market.Exchanges},
		job{name: "global", run: w.Market.Global},
		job{name: "trending", run: w.Market.Trending},
	)

	start := time.Now()
	failed := 0
	for _, j := range jobs {
		if ctx.Err() != nil {
			w.Logger.Warn("warm pass interrupted", zap.Error(ctx.Err()))
			return failed + 1
		}
		if err := j.run(ctx); err != nil {
			failed++
			w.Logger.Warn("warm query failed", zap.String("query", j.name), zap.Error(err))
		}
	}

	w.Logger.Debug("warm pass completed",
		zap.Int("queries", len(jobs)), zap.Int("failed", failed), zap.Duration("elapsed", time.Since(start)))
	return failed
}
