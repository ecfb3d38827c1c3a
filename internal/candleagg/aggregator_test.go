package candleagg

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/univocity/trader-replay/internal/candle"
	"github.com/univocity/trader-replay/internal/trade"
)

type recordingFiller struct {
	inserted []candle.Candle
}

func (f *recordingFiller) Insert(ctx context.Context, c candle.Candle) error {
	f.inserted = append(f.inserted, c)
	return nil
}

func TestAggregator_ProcessTradeBuildsOneMinuteCandle(t *testing.T) {
	a := NewAggregator(nil, zap.NewNop(), nil)

	now := time.Now().Truncate(time.Minute)
	symbol, exchange := "BTCUSDT", "binance"

	a.processTrade(trade.Trade{
		ID: "1", Symbol: symbol, Exchange: exchange,
		Price: decimal.NewFromFloat(50000), Amount: decimal.NewFromFloat(1),
		Timestamp: now.Add(10 * time.Second),
	})

	key := exchange + ":" + symbol
	c, ok := a.candles[key]
	assert.True(t, ok)
	assert.True(t, c.Open.Equal(decimal.NewFromFloat(50000)))
	assert.True(t, c.High.Equal(decimal.NewFromFloat(50000)))
	assert.True(t, c.Low.Equal(decimal.NewFromFloat(50000)))
	assert.True(t, c.Volume.Equal(decimal.NewFromFloat(1)))

	a.processTrade(trade.Trade{
		ID: "2", Symbol: symbol, Exchange: exchange,
		Price: decimal.NewFromFloat(50100), Amount: decimal.NewFromFloat(0.5),
		Timestamp: now.Add(20 * time.Second),
	})
	assert.True(t, c.High.Equal(decimal.NewFromFloat(50100)))
	assert.True(t, c.Close.Equal(decimal.NewFromFloat(50100)))
	assert.True(t, c.Volume.Equal(decimal.NewFromFloat(1.5)))

	a.processTrade(trade.Trade{
		ID: "3", Symbol: symbol, Exchange: exchange,
		Price: decimal.NewFromFloat(49900), Amount: decimal.NewFromFloat(2),
		Timestamp: now.Add(30 * time.Second),
	})
	assert.True(t, c.Low.Equal(decimal.NewFromFloat(49900)))
	assert.True(t, c.Close.Equal(decimal.NewFromFloat(49900)))
	assert.True(t, c.Volume.Equal(decimal.NewFromFloat(3.5)))
}

func TestAggregator_NewWindowFlushesPreviousCandle(t *testing.T) {
	filler := &recordingFiller{}
	a := NewAggregator(nil, zap.NewNop(), filler)

	now := time.Now().Truncate(time.Minute)
	symbol, exchange := "ETHUSDT", "binance"

	a.processTrade(trade.Trade{
		Symbol: symbol, Exchange: exchange,
		Price: decimal.NewFromFloat(2000), Amount: decimal.NewFromFloat(1),
		Timestamp: now,
	})
	a.processTrade(trade.Trade{
		Symbol: symbol, Exchange: exchange,
		Price: decimal.NewFromFloat(2010), Amount: decimal.NewFromFloat(1),
		Timestamp: now.Add(time.Minute + time.Second),
	})

	key := exchange + ":" + symbol
	assert.Equal(t, now.Add(time.Minute).UnixMilli(), a.candles[key].OpenTime)
}
