// Package candleagg folds raw exchange trades into one-minute candles,
// renamed and adapted from the teacher's internal/processor.KlineProcessor.
// It sits upstream of internal/backfill: completed candles are hand
// to a Filler for persistence instead of only being republished.
package candleagg

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/univocity/trader-replay/internal/candle"
	"github.com/univocity/trader-replay/internal/notify"
	"github.com/univocity/trader-replay/internal/telemetry"
	"github.com/univocity/trader-replay/internal/trade"
)

// Filler is the subset of internal/backfill.Filler this package
// depends on, kept as a narrow interface so candleagg does not import
// the store/pgx stack directly.
type Filler interface {
	Insert(ctx context.Context, c candle.Candle) error
}

// Aggregator subscribes to raw trade subjects and emits completed
// one-minute candles once their window has closed.
type Aggregator struct {
	js      nats.JetStreamContext
	logger  *zap.Logger
	filler  Filler
	mu      sync.Mutex
	candles map[string]*candle.Candle
}

func NewAggregator(js nats.JetStreamContext, logger *zap.Logger, filler Filler) *Aggregator {
	return &Aggregator{
		js:      js,
		logger:  logger,
		filler:  filler,
		candles: make(map[string]*candle.Candle),
	}
}

func (a *Aggregator) Run(ctx context.Context) error {
	_, err := a.js.Subscribe(notify.SubjectRawTradePrefix+".*.*", func(msg *nats.Msg) {
		var t trade.Trade
		if err := json.Unmarshal(msg.Data, &t); err != nil {
			a.logger.Error("failed to unmarshal trade in aggregator", zap.Error(err))
			return
		}
		telemetry.TradeProcessRate.WithLabelValues(t.Symbol).Inc()
		a.processTrade(t)
		msg.Ack()
	}, nats.Durable("candle-aggregator"), nats.ManualAck())
	if err != nil {
		return err
	}

	go a.flushLoop(ctx)
	a.logger.Info("candle aggregator started")
	return nil
}

func (a *Aggregator) processTrade(t trade.Trade) {
	a.mu.Lock()
	defer a.mu.Unlock()

	window := t.Timestamp.Truncate(time.Minute)
	key := fmt.Sprintf("%s:%s", t.Exchange, t.Symbol)

	c, ok := a.candles[key]
	if !ok || c.OpenTime != window.UnixMilli() {
		if ok {
			a.flushOne(key, c)
		}
		c = &candle.Candle{
			Symbol:    t.Symbol,
			OpenTime:  window.UnixMilli(),
			CloseTime: window.Add(time.Minute).UnixMilli() - 1,
			Open:      t.Price,
			High:      t.Price,
			Low:       t.Price,
			Close:     t.Price,
			Volume:    t.Amount,
		}
		a.candles[key] = c
		return
	}

	if t.Price.GreaterThan(c.High) {
		c.High = t.Price
	}
	if t.Price.LessThan(c.Low) {
		c.Low = t.Price
	}
	c.Close = t.Price
	c.Volume = c.Volume.Add(t.Amount)
}

func (a *Aggregator) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.flushStale(ctx)
		}
	}
}

// flushStale flushes every tracked candle whose window closed before
// the current minute (spec.md §12's tick_interval governs how often
// this runs in practice, via the backfill Filler's poll loop).
func (a *Aggregator) flushStale(ctx context.Context) {
	now := time.Now().Truncate(time.Minute).UnixMilli()

	a.mu.Lock()
	var toFlush []*candle.Candle
	var keys []string
	for key, c := range a.candles {
		if c.OpenTime < now {
			toFlush = append(toFlush, c)
			keys = append(keys, key)
		}
	}
	for _, key := range keys {
		delete(a.candles, key)
	}
	a.mu.Unlock()

	for _, c := range toFlush {
		a.publishAndPersist(ctx, c)
	}
}

func (a *Aggregator) flushOne(key string, c *candle.Candle) {
	delete(a.candles, key)
	go a.publishAndPersist(context.Background(), c)
}

func (a *Aggregator) publishAndPersist(ctx context.Context, c *candle.Candle) {
	if a.js != nil {
		subject := fmt.Sprintf("%s.%s", notify.SubjectKline1mPrefix, c.Symbol)
		data, _ := json.Marshal(c)
		if _, err := a.js.Publish(subject, data); err != nil {
			a.logger.Error("failed to publish candle", zap.Error(err))
		}
	}
	if a.filler == nil {
		return
	}
	if err := a.filler.Insert(ctx, *c); err != nil {
		a.logger.Error("failed to persist aggregated candle", zap.String("symbol", c.Symbol), zap.Error(err))
	}
}
