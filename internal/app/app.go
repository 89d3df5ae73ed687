package app

import (
	"context"
	"fmt"
	"time"

	"cryptonics/config"
	"cryptonics/internal/market"
	"cryptonics/internal/market/querycache"
	"cryptonics/internal/market/warmer"
	"cryptonics/internal/stream"
	"cryptonics/internal/web"
	"cryptonics/pkg/coingecko"
	"cryptonics/pkg/storage/postgres"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	preferenceRetention = 365 * 24 * time.Hour
	pruneInterval       = 24 * time.Hour
)

var warmCurrencies = []string{"usd", "eur", "inr"}

// Run wires storage, the market query layer, background workers and the
// HTTP server, and serves until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// Preference storage
	store, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to open preference storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close storage", zap.Error(err))
		}
	}()
	logger.Info("preference storage ready", zap.String("driver", cfg.Storage.Driver))

	// Optional shared cache tier
	tier, closeTier := openTier(ctx, cfg.Cache, logger)
	defer closeTier()

	// Upstream client and query layer
	client := coingecko.NewRESTClient(coingecko.Options{
		BaseURL:   cfg.CoinGecko.BaseURL,
		Timeout:   cfg.CoinGecko.Timeout,
		APIKey:    cfg.CoinGecko.APIKey,
		Pro:       cfg.CoinGecko.Pro,
		UserAgent: cfg.CoinGecko.UserAgent,
	}, logger)

	cache := market.NewCache(tier, logger)
	cache.Start(ctx, cfg.Cache.JanitorPeriod)
	svc := market.NewService(client, cache, cfg.Cache, cfg.CoinGecko.PerPage)

	// Background workers
	w := &warmer.Warmer{
		Market:     svc.WarmTarget(),
		Currencies: warmCurrencies,
		Interval:   cfg.Cache.WarmInterval,
		Timeout:    cfg.CoinGecko.Timeout * 4,
		Logger:     logger.Named("warmer"),
	}
	w.Start(ctx)

	hub := stream.NewHub(svc, stream.Options{
		Interval:     cfg.Stream.Interval,
		WriteTimeout: cfg.Stream.WriteTimeout,
		TopCoins:     cfg.Stream.TopCoins,
		Logger:       logger,
	})
	go hub.Run(ctx)

	go prunePreferences(ctx, store, logger)

	// HTTP server
	srv, err := web.New(cfg.Server, web.Deps{
		Market:   svc,
		Store:    store,
		Upstream: client,
		Storage:  store,
		Stream:   hub,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build http server: %w", err)
	}
	return srv.Run(ctx)
}

func openStorage(cfg *config.Config) (*postgres.PostgresClient, error) {
	if cfg.Storage.Driver == "postgres" {
		return postgres.InitializeAndMigrate(cfg.Postgres, cfg.Log.Environment, cfg.Storage.CreateDB)
	}

	client, err := postgres.NewSQLiteClient(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := client.AutoMigrate(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// openTier connects the Redis tier when configured. An unreachable Redis is
// logged and skipped; the in-process cache still works alone.
func openTier(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (querycache.Tier, func()) {
	noop := func() {}
	if cfg.RedisAddr == "" {
		return nil, noop
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	tier := querycache.NewRedisTier(rdb, cfg.RedisKeyPrefix)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := tier.Ping(pingCtx); err != nil {
		logger.Warn("redis unavailable, running without shared cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = rdb.Close()
		return nil, noop
	}

	logger.Info("redis cache tier connected", zap.String("addr", cfg.RedisAddr))
	return tier, func() { _ = rdb.Close() }
}

type stalePruner interface {
	DeleteStalePreferences(ctx context.Context, before time.Time) (int64, error)
}

// prunePreferences drops preferences of sessions idle for a year, matching
// the session cookie lifetime.
func prunePreferences(ctx context.Context, store stalePruner, logger *zap.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteStalePreferences(ctx, time.Now().Add(-preferenceRetention))
			if err != nil {
				logger.Warn("failed to prune preferences", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("pruned stale preferences", zap.Int64("count", n))
			}
		}
	}
}
