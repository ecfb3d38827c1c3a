package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/univocity/trader-replay/internal/candle"
	"github.com/univocity/trader-replay/internal/strategy"
	"github.com/univocity/trader-replay/internal/telemetry"
)

func init() {
	telemetry.Init(true)
}

type fakeCandleStore struct {
	candles map[string][]candle.Candle
}

func (f *fakeCandleStore) Iterate(ctx context.Context, symbol string, start, end time.Time, preload bool) (candle.CandleSource, error) {
	return candle.NewSliceSource(f.candles[symbol]), nil
}
func (f *fakeCandleStore) KnownSymbols(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeCandleStore) ClearCaches()                                      {}

// alwaysBuyStrategy buys on the first candle and holds forever after,
// enough to exercise Buy -> mark-to-market -> liquidate end to end.
type alwaysBuyStrategy struct{ bought bool }

func (s *alwaysBuyStrategy) Name() string { return "always-buy" }
func (s *alwaysBuyStrategy) OnCandle(c candle.Candle) strategy.Action {
	if s.bought {
		return strategy.ActionHold
	}
	s.bought = true
	return strategy.ActionBuy
}

func TestDriver_RunOneParameterSetProducesReport(t *testing.T) {
	fs := &fakeCandleStore{candles: map[string][]candle.Candle{
		"BTCUSDT": {
			{Symbol: "BTCUSDT", OpenTime: 0, Close: decimal.NewFromInt(100)},
			{Symbol: "BTCUSDT", OpenTime: 60_000, Close: decimal.NewFromInt(110)},
			{Symbol: "BTCUSDT", OpenTime: 120_000, Close: decimal.NewFromInt(120)},
		},
	}}
	driver := NewDriver(fs, 4)

	params := Parameters{
		Label: "sweep-1",
		Accounts: []AccountSpec{{
			Label:          "acct-1",
			InitialBalance: decimal.NewFromInt(1000),
			SymbolPairs:    map[string]SymbolPair{"BTCUSDT": {Asset: "BTC", Fund: "USDT"}},
			StrategyFactory: func(symbol string) strategy.Strategy {
				return &alwaysBuyStrategy{}
			},
		}},
		Start: time.UnixMilli(0),
		End:   time.UnixMilli(120_000),
	}

	ch := make(chan Parameters, 1)
	ch <- params
	close(ch)

	results, err := driver.Run(context.Background(), ch)
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Len(t, results[0].Reports, 1)
	assert.NotEmpty(t, results[0].RunID)

	rep := results[0].Reports[0]
	assert.Equal(t, "acct-1", rep.AccountLabel)
	assert.True(t, rep.FinalBalance.GreaterThan(decimal.Zero))
}

func TestDriver_DegenerateSymbolPairIsSkipped(t *testing.T) {
	fs := &fakeCandleStore{candles: map[string][]candle.Candle{}}
	driver := NewDriver(fs, 4)

	handlers := driver.buildSymbolHandlers(nil, Parameters{
		Accounts: []AccountSpec{{
			Label:       "acct-1",
			SymbolPairs: map[string]SymbolPair{"USDTUSDT": {Asset: "USDT", Fund: "USDT"}},
		}},
	}, map[string]candle.Candle{})

	assert.Empty(t, handlers)
}
