package replay

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/univocity/trader-replay/internal/candle"
)

type call struct {
	symbol string
	time   int64
}

type recordingEngine struct {
	symbol string
	calls  *[]call
}

func (e *recordingEngine) Process(c candle.Candle, isHistorical bool) error {
	*e.calls = append(*e.calls, call{symbol: e.symbol, time: c.OpenTime})
	return nil
}

func mustCandle(symbol string, openTime int64) candle.Candle {
	return candle.Candle{Symbol: symbol, OpenTime: openTime, Close: decimal.Zero}
}

func TestDispatchLoop_TwoSymbolsInterleaved(t *testing.T) {
	var calls []call
	a := &MarketReader{Symbol: "A", Input: candle.NewSliceSource([]candle.Candle{
		mustCandle("A", 0), mustCandle("A", 120_000),
	}), Engines: []Engine{&recordingEngine{symbol: "A", calls: &calls}}}
	b := &MarketReader{Symbol: "B", Input: candle.NewSliceSource([]candle.Candle{
		mustCandle("B", 60_000), mustCandle("B", 180_000),
	}), Engines: []Engine{&recordingEngine{symbol: "B", calls: &calls}}}

	loop := NewDispatchLoop([]*MarketReader{a, b}, 0, 240_000)
	processed, err := loop.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(4), processed)

	want := []call{{"A", 0}, {"B", 60_000}, {"A", 120_000}, {"B", 180_000}}
	assert.Equal(t, want, calls)
}

func TestDispatchLoop_SameMinuteOverlapRewind(t *testing.T) {
	var calls []call
	a := &MarketReader{Symbol: "A", Input: candle.NewSliceSource([]candle.Candle{
		mustCandle("A", 0), mustCandle("A", 30),
	}), Engines: []Engine{&recordingEngine{symbol: "A", calls: &calls}}}
	b := &MarketReader{Symbol: "B", Input: candle.NewSliceSource([]candle.Candle{
		mustCandle("B", 45),
	}), Engines: []Engine{&recordingEngine{symbol: "B", calls: &calls}}}

	loop := NewDispatchLoop([]*MarketReader{a, b}, 0, 60_000)
	_, err := loop.Run(context.Background())
	assert.NoError(t, err)

	want := []call{{"A", 0}, {"A", 30}, {"B", 45}}
	assert.Equal(t, want, calls)
}

func TestDispatchLoop_PreloadThreshold(t *testing.T) {
	// Mirrors the preload-threshold scenario at the dispatch level: five
	// one-candle readers all still get dispatched regardless of how
	// their sources were materialized upstream.
	var calls []call
	var readers []*MarketReader
	for i, symbol := range []string{"A", "B", "C", "D", "E"} {
		readers = append(readers, &MarketReader{
			Symbol:  symbol,
			Input:   candle.NewSliceSource([]candle.Candle{mustCandle(symbol, int64(i))}),
			Engines: []Engine{&recordingEngine{symbol: symbol, calls: &calls}},
		})
	}
	loop := NewDispatchLoop(readers, 0, 60_000)
	processed, err := loop.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(5), processed)
	assert.Len(t, calls, 5)
}

func TestDispatchLoop_EmptyRun(t *testing.T) {
	a := &MarketReader{Symbol: "A", Input: candle.NewSliceSource(nil), Engines: []Engine{}}
	loop := NewDispatchLoop([]*MarketReader{a}, 0, 60_000)
	_, err := loop.Run(context.Background())
	assert.Error(t, err)
	var emptyErr *EmptyReplayError
	assert.ErrorAs(t, err, &emptyErr)
}

func TestDispatchLoop_EndTimeTruncation(t *testing.T) {
	var calls []call
	a := &MarketReader{Symbol: "A", Input: candle.NewSliceSource([]candle.Candle{
		mustCandle("A", 0), mustCandle("A", 60_000), mustCandle("A", 120_000),
	}), Engines: []Engine{&recordingEngine{symbol: "A", calls: &calls}}}

	loop := NewDispatchLoop([]*MarketReader{a}, 0, 60_000)
	_, err := loop.Run(context.Background())
	assert.NoError(t, err)

	want := []call{{"A", 0}, {"A", 60_000}}
	assert.Equal(t, want, calls)
}

func TestDispatchLoop_LowerEdgeTolerance(t *testing.T) {
	var calls []call
	a := &MarketReader{Symbol: "A", Input: candle.NewSliceSource([]candle.Candle{
		mustCandle("A", -1),
	}), Engines: []Engine{&recordingEngine{symbol: "A", calls: &calls}}}

	loop := NewDispatchLoop([]*MarketReader{a}, 0, 60_000)
	_, err := loop.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []call{{"A", -1}}, calls)
}

func TestDispatchLoop_EngineFailureAborts(t *testing.T) {
	failing := &failingEngine{err: assert.AnError}
	a := &MarketReader{Symbol: "A", Input: candle.NewSliceSource([]candle.Candle{
		mustCandle("A", 0),
	}), Engines: []Engine{failing}}

	loop := NewDispatchLoop([]*MarketReader{a}, 0, 60_000)
	_, err := loop.Run(context.Background())
	assert.Error(t, err)
	var engineErr *EngineError
	assert.ErrorAs(t, err, &engineErr)
}

type failingEngine struct{ err error }

func (f *failingEngine) Process(c candle.Candle, isHistorical bool) error { return f.err }
