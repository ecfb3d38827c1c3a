package replay

import (
	"sort"

	"github.com/univocity/trader-replay/internal/candle"
)

// MarketReader is a per-symbol cursor coupling a CandleSource to its
// subscribed engines. Its fields are mutated exclusively by the single
// goroutine running DispatchLoop.Run; no locking is required (spec.md
// §9, "Mutable per-reader pending field").
type MarketReader struct {
	Symbol  string
	Input   candle.CandleSource
	Pending *candle.Candle
	Engines []Engine
}

// BuildReaders joins the loaded per-symbol streams with the symbol→
// engines map into a stable, lexicographically sorted list of readers.
// The sort order is correctness-affecting: when two readers have
// candles in the same minute window, the earlier symbol by key order
// dispatches first (spec.md §4.2). Go map iteration order is randomized,
// so the symbol list is explicitly sorted rather than ranged over
// directly (spec.md §9, "Map-iteration order dependence").
// TODO: allow the original randomized candle processing to happen via configuration.
func BuildReaders(loaded map[string]candle.CandleSource, handlers map[string][]Engine) []*MarketReader {
	symbols := make([]string, 0, len(loaded))
	for symbol := range loaded {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	readers := make([]*MarketReader, 0, len(symbols))
	for _, symbol := range symbols {
		engines := handlers[symbol]
		if len(engines) == 0 {
			continue
		}
		readers = append(readers, &MarketReader{
			Symbol:  symbol,
			Input:   loaded[symbol],
			Engines: engines,
		})
	}
	return readers
}
