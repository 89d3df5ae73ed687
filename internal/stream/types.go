package stream

import (
	"strings"
)

// Control ops accepted from clients.
const (
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
	OpPing        = "ping"
	OpPong        = "pong"
)

const tickerTopicPrefix = "tickers."

// Request is a client control frame, e.g. {"op":"subscribe","args":["usd"]}.
type Request struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

// Response acknowledges a Request.
type Response struct {
	Op      string   `json:"op"`
	Success bool     `json:"success"`
	RetMsg  string   `json:"ret_msg,omitempty"`
	Args    []string `json:"args,omitempty"`
}

// Ticker is one coin's price line.
type Ticker struct {
	ID        string  `json:"id"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Change24H float64 `json:"change_24h"`
}

// TickerMessage is pushed on every interval per subscribed currency.
type TickerMessage struct {
	Topic string   `json:"topic"` // e.g. "tickers.usd"
	Data  []Ticker `json:"data"`
	Ts    int64    `json:"ts"` // milliseconds
}

// TickerTopic returns the topic for a currency: "usd" -> "tickers.usd".
func TickerTopic(currency string) string {
	return tickerTopicPrefix + currency
}

// currencyFromTopic parses the currency out of "tickers.usd".
func currencyFromTopic(topic string) string {
	return strings.TrimPrefix(topic, tickerTopicPrefix)
}
