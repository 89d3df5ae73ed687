package stream

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cryptonics/pkg/coingecko"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (f *fakeSource) Coins(_ context.Context, page int, currency string) ([]coingecko.Coin, error) {
	f.calls.Add(1)
	if f.fail.Load() {
		return nil, errors.New("upstream down")
	}
	return []coingecko.Coin{
		{ID: "bitcoin", Symbol: "btc", CurrentPrice: 43000, PriceChangePercentage24H: 1.5},
		{ID: "ethereum", Symbol: "eth", CurrentPrice: 2200, PriceChangePercentage24H: -0.5},
		{ID: "tether", Symbol: "usdt", CurrentPrice: 1},
	}, nil
}

// httpToWS converts http:// URL to ws://
func httpToWS(url string) string {
	return strings.Replace(url, "http://", "ws://", 1)
}

func newTestHub(t *testing.T, interval time.Duration) (*Hub, *fakeSource, *websocket.Conn) {
	t.Helper()

	src := &fakeSource{}
	hub := NewHub(src, Options{Interval: interval, TopCoins: 2, Logger: zap.NewNop()})

	server := httptest.NewServer(hub)
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial(httpToWS(server.URL), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return hub, src, conn
}

func readJSON[T any](t *testing.T, conn *websocket.Conn) T {
	t.Helper()
	var v T
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&v))
	return v
}

// go test -v --run ^TestTickerTopic$
func TestTickerTopic(t *testing.T) {
	assert.Equal(t, "tickers.usd", TickerTopic("usd"))
	assert.Equal(t, "eur", currencyFromTopic("tickers.eur"))
	assert.Equal(t, "inr", currencyFromTopic("inr"))
}

// go test -v --run ^TestSubscribeSendsSnapshot$
func TestSubscribeSendsSnapshot(t *testing.T) {
	_, _, conn := newTestHub(t, time.Hour)

	require.NoError(t, conn.WriteJSON(Request{Op: OpSubscribe, Args: []string{"USD"}}))

	ack := readJSON[Response](t, conn)
	assert.True(t, ack.Success)
	assert.Equal(t, OpSubscribe, ack.Op)
	assert.Equal(t, []string{"tickers.usd"}, ack.Args)

	msg := readJSON[TickerMessage](t, conn)
	assert.Equal(t, "tickers.usd", msg.Topic)
	require.Len(t, msg.Data, 2)
	assert.Equal(t, Ticker{ID: "bitcoin", Symbol: "BTC", Price: 43000, Change24H: 1.5}, msg.Data[0])
	assert.NotZero(t, msg.Ts)
}

// go test -v --run ^TestSubscribeRejectsUnknownCurrency$
func TestSubscribeRejectsUnknownCurrency(t *testing.T) {
	_, src, conn := newTestHub(t, time.Hour)

	require.NoError(t, conn.WriteJSON(Request{Op: OpSubscribe, Args: []string{"gbp"}}))
	ack := readJSON[Response](t, conn)
	assert.False(t, ack.Success)
	assert.Contains(t, ack.RetMsg, "invalid currency")

	require.NoError(t, conn.WriteJSON(Request{Op: "trade"}))
	ack = readJSON[Response](t, conn)
	assert.False(t, ack.Success)
	assert.Equal(t, "unsupported op", ack.RetMsg)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	ack = readJSON[Response](t, conn)
	assert.False(t, ack.Success)

	assert.Zero(t, src.calls.Load())
}

// go test -v --run ^TestPingPong$
func TestPingPong(t *testing.T) {
	_, _, conn := newTestHub(t, time.Hour)

	require.NoError(t, conn.WriteJSON(Request{Op: OpPing}))
	ack := readJSON[Response](t, conn)
	assert.Equal(t, OpPong, ack.Op)
	assert.True(t, ack.Success)
}

// go test -v --run ^TestRunPushesAndCloses$
func TestRunPushesAndCloses(t *testing.T) {
	hub, src, conn := newTestHub(t, 20*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Request{Op: OpSubscribe, Args: []string{"tickers.eur"}}))
	_ = readJSON[Response](t, conn)
	_ = readJSON[TickerMessage](t, conn)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	pushed := readJSON[TickerMessage](t, conn)
	assert.Equal(t, "tickers.eur", pushed.Topic)
	assert.GreaterOrEqual(t, src.calls.Load(), int32(2))
	assert.Equal(t, 1, hub.Clients())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 10*time.Millisecond)

	// drain until the close frame arrives
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
			break
		}
	}
}

// go test -v --run ^TestUnsubscribeStopsPushes$
func TestUnsubscribeStopsPushes(t *testing.T) {
	hub, src, conn := newTestHub(t, time.Hour)

	require.NoError(t, conn.WriteJSON(Request{Op: OpSubscribe, Args: []string{"inr"}}))
	_ = readJSON[Response](t, conn)
	_ = readJSON[TickerMessage](t, conn)

	require.NoError(t, conn.WriteJSON(Request{Op: OpUnsubscribe, Args: []string{"inr"}}))
	ack := readJSON[Response](t, conn)
	assert.True(t, ack.Success)

	before := src.calls.Load()
	hub.broadcast(context.Background())
	assert.Equal(t, before, src.calls.Load(), "no subscribers means no upstream reads")
}

// go test -v --run ^TestBroadcastSkipsFailedSnapshot$
func TestBroadcastSkipsFailedSnapshot(t *testing.T) {
	hub, src, conn := newTestHub(t, time.Hour)

	require.NoError(t, conn.WriteJSON(Request{Op: OpSubscribe, Args: []string{"usd"}}))
	_ = readJSON[Response](t, conn)
	_ = readJSON[TickerMessage](t, conn)

	src.fail.Store(true)
	hub.broadcast(context.Background())

	// nothing queued: the next frame is the pong
	require.NoError(t, conn.WriteJSON(Request{Op: OpPing}))
	ack := readJSON[Response](t, conn)
	assert.Equal(t, OpPong, ack.Op)
}
