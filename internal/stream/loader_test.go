package stream

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/univocity/trader-replay/internal/candle"
	"github.com/univocity/trader-replay/internal/telemetry"
)

func init() {
	telemetry.Init(true)
}

type fakeStore struct {
	mu       sync.Mutex
	preloads map[string]bool
	failFor  map[string]bool
}

func newFakeStore(failFor ...string) *fakeStore {
	fail := make(map[string]bool)
	for _, s := range failFor {
		fail[s] = true
	}
	return &fakeStore{preloads: make(map[string]bool), failFor: fail}
}

func (f *fakeStore) Iterate(ctx context.Context, symbol string, start, end time.Time, preload bool) (candle.CandleSource, error) {
	if f.failFor[symbol] {
		return nil, fmt.Errorf("simulated load failure for %s", symbol)
	}
	f.mu.Lock()
	f.preloads[symbol] = preload
	f.mu.Unlock()
	return candle.NewSliceSource([]candle.Candle{{Symbol: symbol, OpenTime: 0}}), nil
}

func (f *fakeStore) KnownSymbols(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeStore) ClearCaches()                                      {}

func TestLoader_PreloadThreshold(t *testing.T) {
	fs := newFakeStore()
	loader := NewLoader(fs, 4)
	symbols := []string{"A", "B", "C", "D", "E"}

	result := loader.Load(context.Background(), symbols, time.Unix(0, 0), time.Unix(1, 0), false, 2)

	assert.Len(t, result, 5)
	assert.False(t, fs.preloads["A"])
	assert.False(t, fs.preloads["B"])
	assert.True(t, fs.preloads["C"])
	assert.True(t, fs.preloads["D"])
	assert.True(t, fs.preloads["E"])
}

func TestLoader_CacheAllForcesPreloadForEverySymbol(t *testing.T) {
	fs := newFakeStore()
	loader := NewLoader(fs, 4)
	result := loader.Load(context.Background(), []string{"A", "B"}, time.Unix(0, 0), time.Unix(1, 0), true, 100)

	assert.Len(t, result, 2)
	assert.True(t, fs.preloads["A"])
	assert.True(t, fs.preloads["B"])
}

func TestLoader_DropsFailedSymbol(t *testing.T) {
	fs := newFakeStore("X")
	loader := NewLoader(fs, 4)
	result := loader.Load(context.Background(), []string{"X", "Y"}, time.Unix(0, 0), time.Unix(1, 0), false, 10)

	assert.Len(t, result, 1)
	_, ok := result["X"]
	assert.False(t, ok)
	_, ok = result["Y"]
	assert.True(t, ok)
}
