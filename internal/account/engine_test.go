package account

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/univocity/trader-replay/internal/candle"
	"github.com/univocity/trader-replay/internal/strategy"
)

type scriptedStrategy struct {
	actions []strategy.Action
	calls   int
}

func (s *scriptedStrategy) Name() string { return "scripted" }

func (s *scriptedStrategy) OnCandle(c candle.Candle) strategy.Action {
	a := s.actions[s.calls%len(s.actions)]
	s.calls++
	return a
}

func TestReplayEngine_HistoricalCandlesDoNotTrade(t *testing.T) {
	acct := NewAccount(decimal.NewFromInt(1000), NewSimulatedExchange())
	eng := NewReplayEngine(&scriptedStrategy{actions: []strategy.Action{strategy.ActionBuy}}, acct)

	err := eng.Process(mkCandle("BTCUSDT", 0, 100), true)
	assert.NoError(t, err)
	assert.Empty(t, acct.Trades())
}

func TestReplayEngine_LiveCandlesTradeAndMarkToMarket(t *testing.T) {
	acct := NewAccount(decimal.NewFromInt(1000), NewSimulatedExchange())
	eng := NewReplayEngine(&scriptedStrategy{actions: []strategy.Action{strategy.ActionBuy, strategy.ActionHold}}, acct)

	assert.NoError(t, eng.Process(mkCandle("BTCUSDT", 0, 100), false))
	assert.NoError(t, eng.Process(mkCandle("BTCUSDT", 60_000, 110), false))

	assert.Len(t, acct.Trades(), 1)
	assert.Len(t, acct.EquityCurve(), 2)
}
