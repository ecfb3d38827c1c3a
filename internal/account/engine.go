package account

import (
	"github.com/univocity/trader-replay/internal/candle"
	"github.com/univocity/trader-replay/internal/strategy"
)

// ReplayEngine adapts a strategy.Strategy, driven by one shared
// Account, into a replay.Engine — the seam spec.md §1 describes as
// "engines ... plug into the replay core" without the replay core ever
// knowing about balances, fees, or positions.
type ReplayEngine struct {
	Strategy strategy.Strategy
	account  *Account
}

func NewReplayEngine(strat strategy.Strategy, acct *Account) *ReplayEngine {
	return &ReplayEngine{Strategy: strat, account: acct}
}

// Process implements replay.Engine. isHistorical candles (from a
// backfill warm-up pass, spec.md §12) update strategy state but never
// place orders.
func (e *ReplayEngine) Process(c candle.Candle, isHistorical bool) error {
	action := e.Strategy.OnCandle(c)
	if isHistorical {
		return nil
	}
	switch action {
	case strategy.ActionBuy:
		e.account.Buy(c)
	case strategy.ActionSell:
		e.account.Sell(c)
	}
	e.account.MarkToMarket(c)
	return nil
}
