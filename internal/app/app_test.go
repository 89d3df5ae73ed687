package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"cryptonics/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/global":
			fmt.Fprint(w, `{"data":{"active_cryptocurrencies":1}}`)
		case "/search/trending":
			fmt.Fprint(w, `{"coins":[]}`)
		case "/ping":
			fmt.Fprint(w, `{"gecko_says":"(V3) To the Moon!"}`)
		default:
			fmt.Fprint(w, `[]`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func testConfig(t *testing.T, upstream string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Addr:            freeAddr(t),
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 2 * time.Second,
			SessionCookie:   "sid",
		},
		CoinGecko: config.CoinGeckoConfig{BaseURL: upstream, Timeout: 2 * time.Second, PerPage: 10},
		Cache:     config.CacheConfig{Retry: 0, JanitorPeriod: time.Minute, WarmInterval: time.Hour},
		Storage:   config.StorageConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "prefs.db")},
		Stream:    config.StreamConfig{Interval: time.Hour, WriteTimeout: time.Second, TopCoins: 5},
		Log:       config.LogConfig{Level: "info", Environment: "dev"},
	}
}

// go test -v --run ^TestRunServesUntilCancelled$
func TestRunServesUntilCancelled(t *testing.T) {
	cfg := testConfig(t, fakeUpstream(t).URL)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, zap.NewNop()) }()

	healthURL := "http://" + cfg.Server.Addr + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(healthURL)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// go test -v --run ^TestOpenStorageSQLite$
func TestOpenStorageSQLite(t *testing.T) {
	cfg := testConfig(t, "http://unused")

	store, err := openStorage(cfg)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.SetPreference(ctx, "s1", "preferred-currency", "eur"))
	got, err := store.GetPreference(ctx, "s1", "preferred-currency")
	require.NoError(t, err)
	assert.Equal(t, "eur", got)
}

// go test -v --run ^TestOpenTier$
func TestOpenTier(t *testing.T) {
	tier, closeTier := openTier(context.Background(), config.CacheConfig{}, zap.NewNop())
	assert.Nil(t, tier)
	closeTier()

	// nothing listens on the discard port
	tier, closeTier = openTier(context.Background(), config.CacheConfig{RedisAddr: "127.0.0.1:9"}, zap.NewNop())
	assert.Nil(t, tier)
	closeTier()
}

type countingPruner struct {
	calls  chan time.Time
	result int64
}

func (p *countingPruner) DeleteStalePreferences(_ context.Context, before time.Time) (int64, error) {
	p.calls <- before
	return p.result, nil
}

// go test -v --run ^TestPrunePreferencesStops$
func TestPrunePreferencesStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		prunePreferences(ctx, &countingPruner{calls: make(chan time.Time, 1)}, zap.NewNop())
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("prunePreferences did not stop")
	}
}
