package replay

import (
	"context"

	"github.com/univocity/trader-replay/internal/candle"
	"github.com/univocity/trader-replay/internal/telemetry"
	"go.uber.org/zap"
)

// DispatchLoop drives every candle in every reader's stream through the
// reader's engines exactly once, in a globally time-ordered manner
// (spec.md §4.3).
type DispatchLoop struct {
	readers    []*MarketReader
	clock      *Clock
	start, end int64
}

// NewDispatchLoop builds a loop over readers ticking from startMS to
// endMS inclusive (spec.md §3, ReplayClock state).
func NewDispatchLoop(readers []*MarketReader, startMS, endMS int64) *DispatchLoop {
	return &DispatchLoop{readers: readers, clock: NewClock(startMS, endMS), start: startMS, end: endMS}
}

// inWindow reports whether a candle's open time falls in the minute
// bucket [clock, clock+MinuteMS) with a one-ms tolerance on the lower
// bound, admitting candles whose open time equals clock-1 (spec.md
// §4.3, "Window semantics"). Whether this is intentional tolerance for
// non-minute-aligned data or a defensive off-by-one in the original is
// an open question (spec.md §9); it is preserved as-is.
func inWindow(c candle.Candle, clock int64) bool {
	return c.OpenTime+1 >= clock && c.OpenTime <= clock+MinuteMS-1
}

// Run executes the tick loop until the clock is done, returning the
// total number of candles pulled off readers' inputs. It fails with
// *EmptyReplayError if that count is zero (spec.md §4.3, §7) unless ctx
// was cancelled first. An *EngineError aborts the loop immediately and
// is returned unwrapped so callers can distinguish engine failures from
// empty-replay failures (spec.md §7).
func (d *DispatchLoop) Run(ctx context.Context) (int64, error) {
	var candlesProcessed int64

	for !d.clock.Done() {
		select {
		case <-ctx.Done():
			return candlesProcessed, ctx.Err()
		default:
		}

		now := d.clock.Now()
		resetClock := false

		for _, reader := range d.readers {
			if reader.Pending != nil {
				pending := *reader.Pending
				if !inWindow(pending, now) {
					continue
				}

				for _, engine := range reader.Engines {
					if err := engine.Process(pending, false); err != nil {
						return candlesProcessed, &EngineError{Symbol: reader.Symbol, Err: err}
					}
				}
				telemetry.CandlesDispatched.WithLabelValues(reader.Symbol).Inc()
				reader.Pending = nil

				if reader.Input.HasNext() {
					next, err := reader.Input.Next()
					if err != nil {
						telemetry.Logger.Warn("candle source read failed mid-stream",
							zap.String("symbol", reader.Symbol), zap.Error(err))
						continue
					}
					reader.Pending = &next
					if inWindow(next, now) {
						resetClock = true
					}
				}
				continue
			}

			if reader.Input.HasNext() {
				next, err := reader.Input.Next()
				if err != nil {
					telemetry.Logger.Warn("candle source read failed mid-stream",
						zap.String("symbol", reader.Symbol), zap.Error(err))
					continue
				}
				candlesProcessed++
				reader.Pending = &next
			}
		}

		if resetClock {
			d.clock.RewindOneStep()
		}
		d.clock.Advance()
	}

	if candlesProcessed == 0 {
		return 0, &EmptyReplayError{Start: d.start, End: d.end}
	}
	return candlesProcessed, nil
}
