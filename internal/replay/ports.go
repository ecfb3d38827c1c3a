// Package replay implements the multi-stream chronological replay
// engine: the MarketReader cursors, the ReplayClock, and the
// DispatchLoop that drives candles from per-symbol streams to their
// subscribed engines in strict global time order (spec.md §2, §4.3).
package replay

import "github.com/univocity/trader-replay/internal/candle"

// Engine is the opaque consumer a MarketReader dispatches candles to.
// Process must be idempotent per (engine, candle) and is invoked at most
// once per candle per engine (spec.md §6).
type Engine interface {
	Process(c candle.Candle, isHistorical bool) error
}
