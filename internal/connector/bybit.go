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

type BybitConnector struct {
	logger  *zap.Logger
	symbol  string // e.g. BTCUSDT
	backoff *reconnectBackoff
}

// NewBybitConnector builds a connector for symbol, retrying dropped
// connections no faster than pollTick (spec.md §6 tick_interval).
func NewBybitConnector(logger *zap.Logger, symbol string, pollTick time.Duration) *BybitConnector {
	return &BybitConnector{
		logger:  logger,
		symbol:  symbol,
		backoff: newReconnectBackoff(pollTick),
	}
}

type BybitTradeEvent struct {
	Topic string           `json:"topic"`
	Type  string           `json:"type"`
	Ts    int64            `json:"ts"`
	Data  []BybitTradeData `json:"data"`
}

type BybitTradeData struct {
	T  int64  `json:"T"`
	S  string `json:"s"`
	S2 string `json:"S"` // Side: Buy/Sell
	P  string `json:"p"`
	V  string `json:"v"`
	I  string `json:"i"` // Trade ID
	L  string `json:"L"` // Tick direction
	B  bool   `json:"B"` // Is block trade
}

func (b *BybitConnector) Run(ctx context.Context, tradeChan chan<- trade.Trade) {
	url := "wss://stream.bybit.com/v5/public/spot"

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		b.logger.Info("connecting to Bybit websocket", zap.String("url", url))
		dialer := websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		}
		conn, _, err := dialer.Dial(url, nil)
		if err != nil {
			b.logger.Error("failed to connect to Bybit", zap.Error(err))
			time.Sleep(b.backoff.next())
			continue
		}

		b.backoff.reset()
		b.logger.Info("connected to Bybit websocket")
		telemetry.WSConnections.Inc()

		// Subscribe
		subMsg := map[string]interface{}{
			"op": "subscribe",
			"args": []string{
				fmt.Sprintf("publicTrade.%s", b.symbol),
			},
		}
		if err := conn.WriteJSON(subMsg); err != nil {
			b.logger.Error("failed to subscribe to Bybit trades", zap.Error(err))
			conn.Close()
			continue
		}

		if err := b.handleConnection(ctx, conn, tradeChan); err != nil {
			b.logger.Error("Bybit connection closed with error", zap.Error(err))
		}
		telemetry.WSConnections.Dec()
		conn.Close()
	}
}

func (b *BybitConnector) handleConnection(ctx context.Context, conn *websocket.Conn, tradeChan chan<- trade.Trade) error {
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Heartbeat
	go func() {
		ticker := time.NewTicker(20 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteJSON(map[string]string{"op": "ping"}); err != nil {
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			_, message, err := conn.ReadMessage()
			if err != nil {
				return err
			}

			var event BybitTradeEvent
			if err := json.Unmarshal(message, &event); err != nil {
				// Might be pong or subscription response
				continue
			}

			if event.Topic == "" || len(event.Data) == 0 {
				continue
			}

			for _, data := range event.Data {
				tr := b.convertToModel(data)
				telemetry.IngestLatency.WithLabelValues(tr.Exchange, tr.Symbol).Observe(time.Since(tr.Timestamp).Seconds())
				select {
				case tradeChan <- tr:
				default:
					b.logger.Warn("trade channel full, dropping Bybit trade", zap.String("trade_id", tr.ID))
				}
			}
		}
	}
}

func (b *BybitConnector) convertToModel(data BybitTradeData) trade.Trade {
	price, _ := decimal.NewFromString(data.P)
	amount, _ := decimal.NewFromString(data.V)

	side := "buy"
	if data.S2 == "Sell" {
		side = "sell"
	}

	return trade.Trade{
		ID:        data.I,
		Symbol:    data.S,
		Exchange:  "bybit",
		Price:     price,
		Amount:    amount,
		Side:      side,
		Timestamp: time.Unix(0, data.T*int64(time.Millisecond)),
	}
}
