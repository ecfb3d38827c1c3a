package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/univocity/trader-replay/internal/connector"
	"github.com/univocity/trader-replay/internal/notify"
	"github.com/univocity/trader-replay/internal/telemetry"
	"github.com/univocity/trader-replay/internal/trade"
)

// NormalizeSymbol unifies different exchange symbol formats into a
// standard one (e.g. BTCUSDT).
func NormalizeSymbol(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}

// startIngestionWorker launches one connector per configured exchange
// target and republishes every trade it receives onto the raw trade
// subjects internal/candleagg subscribes to.
func (a *App) startIngestionWorker(ctx context.Context) {
	targets := []struct {
		Exchange string
		Symbol   string
	}{
		{"binance", "btcusdt"},
		{"okx", "BTC-USDT"},
		{"bybit", "BTCUSDT"},
		{"coinbase", "BTC-USD"},
		{"kraken", "XBT/USD"},
	}

	pollTick, err := time.ParseDuration(a.Config.TickInterval)
	if err != nil {
		a.Logger.Warn("invalid tick_interval, falling back to 1s reconnect poll",
			zap.String("tick_interval", a.Config.TickInterval), zap.Error(err))
		pollTick = time.Second
	}

	for _, target := range targets {
		t := target
		go func() {
			tradeChan := make(chan trade.Trade, 1000)
			var c connector.Connector

			switch t.Exchange {
			case "binance":
				c = connector.NewBinanceConnector(a.Logger, t.Symbol, pollTick)
			case "okx":
				c = connector.NewOKXConnector(a.Logger, t.Symbol, pollTick)
			case "bybit":
				c = connector.NewBybitConnector(a.Logger, t.Symbol, pollTick)
			case "coinbase":
				c = connector.NewCoinbaseConnector(a.Logger, t.Symbol, pollTick)
			case "kraken":
				c = connector.NewKrakenConnector(a.Logger, t.Symbol, pollTick)
			default:
				a.Logger.Warn("unknown exchange", zap.String("exchange", t.Exchange))
				return
			}

			go c.Run(ctx, tradeChan)

			for {
				select {
				case <-ctx.Done():
					return
				case tr := <-tradeChan:
					tr.Symbol = NormalizeSymbol(tr.Symbol)

					subject := fmt.Sprintf("%s.%s.%s", notify.SubjectRawTradePrefix, tr.Exchange, tr.Symbol)
					data, err := json.Marshal(tr)
					if err != nil {
						a.Logger.Error("failed to marshal trade", zap.Error(err))
						continue
					}
					if _, err := a.JS.Publish(subject, data); err != nil {
						a.Logger.Error("failed to publish to NATS", zap.Error(err))
					}
					telemetry.TradeProcessRate.WithLabelValues(tr.Symbol).Inc()
				}
			}
		}()
	}
}
