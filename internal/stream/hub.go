package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"cryptonics/internal/currency"
	"cryptonics/pkg/coingecko"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultInterval     = 15 * time.Second
	defaultWriteTimeout = 5 * time.Second
	defaultTopCoins     = 20

	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
	maxFrame   = 4096
)

// Source supplies the coin page the tickers are cut from. *market.Service
// satisfies it, so pushes go through the query cache.
type Source interface {
	Coins(ctx context.Context, page int, currency string) ([]coingecko.Coin, error)
}

type Options struct {
	Interval     time.Duration
	WriteTimeout time.Duration
	TopCoins     int
	Logger       *zap.Logger
}

// Hub fans ticker snapshots out to subscribed WebSocket clients.
type Hub struct {
	source       Source
	interval     time.Duration
	writeTimeout time.Duration
	topN         int
	logger       *zap.Logger
	upgrader     websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	topics map[string]struct{} // currencies, guarded by Hub.mu
}

func NewHub(source Source, opts Options) *Hub {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.TopCoins <= 0 {
		opts.TopCoins = defaultTopCoins
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Hub{
		source:       source,
		interval:     opts.Interval,
		writeTimeout: opts.WriteTimeout,
		topN:         opts.TopCoins,
		logger:       opts.Logger.Named("stream"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and serves the client until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		topics: make(map[string]struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.String("remote", r.RemoteAddr))

	go h.writePump(c)
	h.readPump(r.Context(), c)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Run pushes tickers every interval until ctx is cancelled, then closes all
// clients.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.broadcast(ctx)
		}
	}
}

func (h *Hub) broadcast(ctx context.Context) {
	for _, cur := range h.subscribedCurrencies() {
		msg, err := h.snapshot(ctx, cur)
		if err != nil {
			h.logger.Warn("ticker snapshot failed", zap.String("currency", cur), zap.Error(err))
			continue
		}

		h.mu.Lock()
		for c := range h.clients {
			if _, ok := c.topics[cur]; ok {
				h.enqueueLocked(c, msg)
			}
		}
		h.mu.Unlock()
	}
}

func (h *Hub) subscribedCurrencies() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	seen := make(map[string]struct{})
	var out []string
	for c := range h.clients {
		for cur := range c.topics {
			if _, ok := seen[cur]; !ok {
				seen[cur] = struct{}{}
				out = append(out, cur)
			}
		}
	}
	return out
}

// snapshot builds the encoded ticker message for one currency.
func (h *Hub) snapshot(ctx context.Context, cur string) ([]byte, error) {
	coins, err := h.source.Coins(ctx, 1, cur)
	if err != nil {
		return nil, err
	}

	n := min(h.topN, len(coins))
	msg := TickerMessage{
		Topic: TickerTopic(cur),
		Data:  make([]Ticker, 0, n),
		Ts:    time.Now().UnixMilli(),
	}
	for _, coin := range coins[:n] {
		msg.Data = append(msg.Data, Ticker{
			ID:        coin.ID,
			Symbol:    strings.ToUpper(coin.Symbol),
			Price:     coin.CurrentPrice,
			Change24H: coin.PriceChangePercentage24H,
		})
	}
	return json.Marshal(msg)
}

// enqueueLocked drops the message for a client whose buffer is full; the
// next interval carries fresh prices anyway.
func (h *Hub) enqueueLocked(c *client, msg []byte) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		h.logger.Debug("client buffer full, dropping message")
	}
}

func (h *Hub) enqueue(c *client, v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("failed to encode message", zap.Error(err))
		return
	}
	h.mu.Lock()
	h.enqueueLocked(c, msg)
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			h.enqueue(c, Response{Success: false, RetMsg: "invalid request"})
			continue
		}
		h.handle(ctx, c, req)
	}
}

func (h *Hub) handle(ctx context.Context, c *client, req Request) {
	switch req.Op {
	case OpPing:
		h.enqueue(c, Response{Op: OpPong, Success: true})

	case OpSubscribe, OpUnsubscribe:
		codes := make([]string, 0, len(req.Args))
		for _, arg := range req.Args {
			code, err := currency.Parse(currencyFromTopic(arg))
			if err != nil {
				h.enqueue(c, Response{Op: req.Op, Success: false, RetMsg: err.Error(), Args: req.Args})
				return
			}
			codes = append(codes, string(code))
		}
		if len(codes) == 0 {
			h.enqueue(c, Response{Op: req.Op, Success: false, RetMsg: "no currencies given"})
			return
		}

		h.mu.Lock()
		for _, code := range codes {
			if req.Op == OpSubscribe {
				c.topics[code] = struct{}{}
			} else {
				delete(c.topics, code)
			}
		}
		h.mu.Unlock()

		topics := make([]string, len(codes))
		for i, code := range codes {
			topics[i] = TickerTopic(code)
		}
		h.enqueue(c, Response{Op: req.Op, Success: true, Args: topics})

		if req.Op == OpSubscribe {
			// first snapshot right away instead of waiting for the tick
			for _, code := range codes {
				msg, err := h.snapshot(ctx, code)
				if err != nil {
					h.logger.Warn("ticker snapshot failed", zap.String("currency", code), zap.Error(err))
					continue
				}
				h.mu.Lock()
				h.enqueueLocked(c, msg)
				h.mu.Unlock()
			}
		}

	default:
		h.enqueue(c, Response{Op: req.Op, Success: false, RetMsg: "unsupported op"})
	}
}

func (h *Hub) writePump(c *client) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
