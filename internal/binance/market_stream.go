package binance

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"binance-monitor/internal/pricetable"
)

const (
	marketStreamPath = "/ws/!miniTicker@arr"

	marketIdleTimeout = 20 * time.Second
	marketPingPeriod  = 10 * time.Second
)

// MarketStream keeps the price table current from the exchange-wide
// mini-ticker stream. A lost connection is redialed immediately; the
// REST seed only runs once at startup.
type MarketStream struct {
	client    *Client
	table     *pricetable.Table
	streamURL string
	log       zerolog.Logger
}

// NewMarketStream returns a stream feeding the given table.
func NewMarketStream(client *Client, table *pricetable.Table, logger zerolog.Logger) *MarketStream {
	return &MarketStream{
		client:    client,
		table:     table,
		streamURL: defaultStreamURL,
		log:       logger.With().Str("component", "market-stream").Logger(),
	}
}

// Run seeds the table over REST, then reads the websocket until the
// context is canceled, reconnecting on every failure.
func (m *MarketStream) Run(ctx context.Context) {
	if err := m.seed(ctx); err != nil {
		m.log.Error().Err(err).Msg("initial price seed failed")
	}

	for ctx.Err() == nil {
		if err := m.readOnce(ctx); err != nil && ctx.Err() == nil {
			m.log.Error().Err(err).Msg("market stream dropped, reconnecting")
		}
	}
}

// seed loads the full price listing so lookups work before the first
// websocket frame arrives.
func (m *MarketStream) seed(ctx context.Context) error {
	prices, err := m.client.TickerPrices(ctx)
	if err != nil {
		return err
	}
	for _, p := range prices {
		m.table.Put(pricetable.Ticker{Symbol: p.Symbol, Last: p.Price})
	}
	m.log.Info().Int("symbols", len(prices)).Msg("price table seeded")
	return nil
}

func (m *MarketStream) readOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: requestTimeout}
	conn, _, err := dialer.DialContext(ctx, m.streamURL+marketStreamPath, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	m.log.Info().Msg("connected to mini-ticker stream")

	conn.SetReadDeadline(time.Now().Add(marketIdleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(marketIdleTimeout))
	})

	stop := make(chan struct{})
	defer close(stop)
	go pingLoop(conn, marketPingPeriod, stop)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(marketIdleTimeout))
		m.handleFrame(data)
	}
}

type miniTicker struct {
	Symbol string `json:"s"`
	Close  string `json:"c"`
	Open   string `json:"o"`
}

// handleFrame decodes one mini-ticker array frame into table updates.
func (m *MarketStream) handleFrame(data []byte) {
	var tickers []miniTicker
	if err := json.Unmarshal(data, &tickers); err != nil {
		m.log.Error().Err(err).Msg("undecodable mini-ticker frame")
		return
	}

	for _, tk := range tickers {
		last, err := strconv.ParseFloat(tk.Close, 64)
		if err != nil {
			continue
		}
		open, _ := strconv.ParseFloat(tk.Open, 64)
		m.table.Put(pricetable.Ticker{Symbol: tk.Symbol, Last: last, Open24h: open})
	}
}

// pingLoop keeps the connection alive until stop closes. Write errors
// surface on the reader side and end the connection there.
func pingLoop(conn *websocket.Conn, period time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
