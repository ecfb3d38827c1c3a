// Package simulation implements the SimulationDriver (spec.md §4.5):
// the outer per-parameter-set orchestration that wires the candle
// store, the replay core, and the account layer together. Grounded on
// the Java executeWithParameters/createEngines pair and on the
// teacher's internal/app.App lifecycle (NewApp -> Init -> Run).
package simulation

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/univocity/trader-replay/internal/strategy"
)

// SymbolPair is one configured (asset, fund) pair (spec.md §3): the
// asset being traded, priced in fund. Skip reports whether the pair is
// degenerate (asset == fund) and must never receive an engine.
type SymbolPair struct {
	Asset string
	Fund  string
}

func (p SymbolPair) Skip() bool { return p.Asset == p.Fund }

// AccountSpec configures one simulated account within a parameter set:
// its starting balance, the symbols it trades, and the strategy
// factory invoked once per (account, symbol) pair so independent
// engines never share strategy state (spec.md §9, allInstances dedup).
type AccountSpec struct {
	Label           string
	InitialBalance  decimal.Decimal
	SymbolPairs     map[string]SymbolPair
	StrategyFactory func(symbol string) strategy.Strategy
}

// Parameters is one parameter set in the sweep the driver consumes
// (spec.md §4.5: "the parameter stream is consumed lazily and
// sequentially; runs are independent and do not share per-run state").
type Parameters struct {
	Label            string
	Accounts         []AccountSpec
	Start            time.Time
	End              time.Time
	CacheCandles     bool
	ActiveQueryLimit int
}

// symbols returns the set of distinct tradeable symbols across every
// account in the parameter set, for the single StreamLoader.Load call
// shared by all accounts (spec.md §4.1, one CandleSource per symbol,
// never per (account, symbol)).
func (p Parameters) symbols() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, acct := range p.Accounts {
		for symbol, pair := range acct.SymbolPairs {
			if pair.Skip() {
				continue
			}
			if _, ok := seen[symbol]; ok {
				continue
			}
			seen[symbol] = struct{}{}
			out = append(out, symbol)
		}
	}
	return out
}
