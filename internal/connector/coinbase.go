package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/univocity/trader-replay/internal/telemetry"
	"github.com/univocity/trader-replay/internal/trade"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CoinbaseConnector struct {
	logger  *zap.Logger
	symbol  string // e.g. BTC-USD
	backoff *reconnectBackoff
}

// NewCoinbaseConnector builds a connector for symbol, retrying dropped
// connections no faster than pollTick (spec.md §6 tick_interval).
func NewCoinbaseConnector(logger *zap.Logger, symbol string, pollTick time.Duration) *CoinbaseConnector {
	return &CoinbaseConnector{
		logger:  logger,
		symbol:  symbol,
		backoff: newReconnectBackoff(pollTick),
	}
}

type CoinbaseMatchEvent struct {
	Type      string `json:"type"`
	TradeID   int64  `json:"trade_id"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Side      string `json:"side"`
	Time      string `json:"time"` // RFC3339
}

func (c *CoinbaseConnector) Run(ctx context.Context, tradeChan chan<- trade.Trade) {
	url := "wss://ws-feed.exchange.coinbase.com"

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.logger.Info("connecting to Coinbase websocket", zap.String("url", url))
		dialer := websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		}
		conn, _, err := dialer.Dial(url, nil)
		if err != nil {
			c.logger.Error("failed to connect to Coinbase", zap.Error(err))
			time.Sleep(c.backoff.next())
			continue
		}

		c.backoff.reset()
		c.logger.Info("connected to Coinbase websocket")
		telemetry.WSConnections.Inc()

		// Subscribe
		subMsg := map[string]interface{}{
			"type": "subscribe",
			"channels": []map[string]interface{}{
				{
					"name": "matches",
					"product_ids": []string{
						c.symbol,
					},
				},
			},
		}
		if err := conn.WriteJSON(subMsg); err != nil {
			c.logger.Error("failed to subscribe to Coinbase trades", zap.Error(err))
			conn.Close()
			continue
		}

		if err := c.handleConnection(ctx, conn, tradeChan); err != nil {
			c.logger.Error("Coinbase connection closed with error", zap.Error(err))
		}
		telemetry.WSConnections.Dec()
		conn.Close()
	}
}

func (c *CoinbaseConnector) handleConnection(ctx context.Context, conn *websocket.Conn, tradeChan chan<- trade.Trade) error {
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))

	// Coinbase doesn't require explicit ping, but we can send one if needed.
	// Actually, they recommend sending a heartbeat or just relying on the feed.

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			_, message, err := conn.ReadMessage()
			if err != nil {
				return err
			}

			var event CoinbaseMatchEvent
			if err := json.Unmarshal(message, &event); err != nil {
				continue
			}

			if event.Type != "match" && event.Type != "last_match" {
				continue
			}

			tr := c.convertToModel(event)
			telemetry.IngestLatency.WithLabelValues(tr.Exchange, tr.Symbol).Observe(time.Since(tr.Timestamp).Seconds())
			select {
			case tradeChan <- tr:
			default:
				c.logger.Warn("trade channel full, dropping Coinbase trade", zap.String("trade_id", tr.ID))
			}

			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		}
	}
}

func (c *CoinbaseConnector) convertToModel(event CoinbaseMatchEvent) trade.Trade {
	price, _ := decimal.NewFromString(event.Price)
	amount, _ := decimal.NewFromString(event.Size)
	t, _ := time.Parse(time.RFC3339, event.Time)

	return trade.Trade{
		ID:        fmt.Sprintf("%d", event.TradeID),
		Symbol:    event.ProductID,
		Exchange:  "coinbase",
		Price:     price,
		Amount:    amount,
		Side:      event.Side,
		Timestamp: t,
	}
}
