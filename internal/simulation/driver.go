package simulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/univocity/trader-replay/internal/account"
	"github.com/univocity/trader-replay/internal/candle"
	"github.com/univocity/trader-replay/internal/replay"
	"github.com/univocity/trader-replay/internal/report"
	"github.com/univocity/trader-replay/internal/store"
	"github.com/univocity/trader-replay/internal/stream"
	"github.com/univocity/trader-replay/internal/telemetry"
)

// Driver is the SimulationDriver (spec.md §4.5). One Driver is built
// per process and fed every parameter set in a sweep; its StreamLoader
// is constructed once and reused across parameter sets, and its
// underlying candle store caches are only cleared at Shutdown, never
// between runs (spec.md §5, "Shared resources").
type Driver struct {
	loader           *stream.Loader
	candleStore      store.CandleStore
	maxInFlightLoads int
}

func NewDriver(candleStore store.CandleStore, maxInFlightLoads int) *Driver {
	return &Driver{
		loader:           stream.NewLoader(candleStore, maxInFlightLoads),
		candleStore:      candleStore,
		maxInFlightLoads: maxInFlightLoads,
	}
}

// Shutdown clears the candle store's caches once the full parameter
// stream has been consumed (spec.md §4.5, §9).
func (d *Driver) Shutdown() {
	d.candleStore.ClearCaches()
}

// Result is what one parameter set produces: the run identifier used
// to label its NATS/WS events and log lines, and one report per
// account.
type Result struct {
	RunID   string
	Label   string
	Reports []report.Report
}

// Run consumes params lazily and sequentially, executing each
// parameter set to completion (or to its first EngineFailure/
// EmptyReplay) before advancing to the next (spec.md §4.5: "runs are
// independent and do not share per-run state").
func (d *Driver) Run(ctx context.Context, params <-chan Parameters) ([]Result, error) {
	var results []Result
	for p := range params {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		result, err := d.runOne(ctx, p)
		if err != nil {
			var emptyErr *replay.EmptyReplayError
			var engineErr *replay.EngineError
			switch {
			case errors.As(err, &emptyErr):
				telemetry.Logger.Error("parameter set produced no candles", zap.String("label", p.Label), zap.Error(err))
			case errors.As(err, &engineErr):
				telemetry.EngineFailures.WithLabelValues(engineErr.Symbol).Inc()
				telemetry.Logger.Error("parameter set aborted by engine failure", zap.String("label", p.Label), zap.Error(err))
			default:
				telemetry.Logger.Error("parameter set failed", zap.String("label", p.Label), zap.Error(err))
			}
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

func (d *Driver) runOne(ctx context.Context, p Parameters) (Result, error) {
	runID := uuid.NewString()
	logger := telemetry.Logger.With(zap.String("run_id", runID), zap.String("label", p.Label))
	logger.Info("starting parameter set")

	symbols := p.symbols()
	loaded := d.loader.Load(ctx, symbols, p.Start, p.End, p.CacheCandles, p.ActiveQueryLimit)

	accounts := make([]*account.Account, len(p.Accounts))
	for i, spec := range p.Accounts {
		accounts[i] = account.NewAccount(spec.InitialBalance, account.NewSimulatedExchange())
	}

	lastCandle := make(map[string]candle.Candle)
	handlers := d.buildSymbolHandlers(accounts, p, lastCandle)

	readers := replay.BuildReaders(loaded, handlers)
	loop := replay.NewDispatchLoop(readers, p.Start.UnixMilli(), p.End.UnixMilli())

	processed, err := loop.Run(ctx)
	if err != nil {
		return Result{}, err
	}
	logger.Info("parameter set dispatch complete", zap.Int64("candles_processed", processed))

	for _, acct := range accounts {
		acct.LiquidateOpenPositions(lastCandle)
	}

	reports := make([]report.Report, len(accounts))
	for i, acct := range accounts {
		reports[i] = report.Build(p.Accounts[i].Label, acct)
	}

	return Result{RunID: runID, Label: p.Label, Reports: reports}, nil
}

// buildSymbolHandlers ports the Java createEngines: one replay.Engine
// per (account, symbol) pair, skipping degenerate asset==fund pairs
// and symbols the account does not trade. lastCandle is updated as a
// side effect of every dispatch so liquidation has a price to sell at
// (spec.md §4.5 step 4).
func (d *Driver) buildSymbolHandlers(accounts []*account.Account, p Parameters, lastCandle map[string]candle.Candle) map[string][]replay.Engine {
	handlers := make(map[string][]replay.Engine)
	allInstances := make(map[string]struct{})

	for i, spec := range p.Accounts {
		for symbol, pair := range spec.SymbolPairs {
			if pair.Skip() {
				continue
			}
			acct := accounts[i]
			key := fmt.Sprintf("%s|%s", spec.Label, symbol)
			if _, seen := allInstances[key]; seen {
				continue
			}
			allInstances[key] = struct{}{}

			strat := spec.StrategyFactory(symbol)
			engine := account.NewReplayEngine(strat, acct)
			handlers[symbol] = append(handlers[symbol], &trackingEngine{inner: engine, lastCandle: lastCandle})
		}
	}
	return handlers
}

// trackingEngine records the last candle seen per symbol so the driver
// can liquidate open positions at a real price after dispatch ends.
type trackingEngine struct {
	inner      replay.Engine
	lastCandle map[string]candle.Candle
}

func (t *trackingEngine) Process(c candle.Candle, isHistorical bool) error {
	t.lastCandle[c.Symbol] = c
	return t.inner.Process(c, isHistorical)
}
