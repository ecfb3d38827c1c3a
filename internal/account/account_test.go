package account

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/univocity/trader-replay/internal/candle"
)

func mkCandle(symbol string, openTime int64, close float64) candle.Candle {
	return candle.Candle{
		Symbol:   symbol,
		OpenTime: openTime,
		Open:     decimal.NewFromFloat(close),
		High:     decimal.NewFromFloat(close),
		Low:      decimal.NewFromFloat(close),
		Close:    decimal.NewFromFloat(close),
		Volume:   decimal.NewFromInt(1),
	}
}

func TestAccount_BuyThenSellRealizesPnL(t *testing.T) {
	acct := NewAccount(decimal.NewFromInt(1000), NewSimulatedExchange())

	acct.Buy(mkCandle("BTCUSDT", 0, 100))
	assert.True(t, acct.Balance().LessThan(decimal.NewFromInt(1)))

	acct.Sell(mkCandle("BTCUSDT", 60_000, 200))
	trades := acct.Trades()
	assert.Len(t, trades, 2)
	assert.Equal(t, SideSell, trades[1].Side)
	assert.True(t, trades[1].PnL.GreaterThan(decimal.Zero), "selling at double the buy price should realize a profit")
}

func TestAccount_SellWithNoPositionIsNoop(t *testing.T) {
	acct := NewAccount(decimal.NewFromInt(1000), NewSimulatedExchange())
	acct.Sell(mkCandle("BTCUSDT", 0, 100))
	assert.Empty(t, acct.Trades())
	assert.True(t, acct.Balance().Equal(decimal.NewFromInt(1000)))
}

func TestAccount_LiquidateOpenPositionsClosesEverything(t *testing.T) {
	acct := NewAccount(decimal.NewFromInt(1000), NewSimulatedExchange())
	acct.Buy(mkCandle("ETHUSDT", 0, 50))

	acct.LiquidateOpenPositions(map[string]candle.Candle{
		"ETHUSDT": mkCandle("ETHUSDT", 60_000, 60),
	})

	trades := acct.Trades()
	assert.Len(t, trades, 2)
	assert.Equal(t, SideSell, trades[1].Side)
	assert.True(t, acct.Balance().GreaterThan(decimal.Zero))
}

func TestAccount_MarkToMarketRecordsEquitySample(t *testing.T) {
	acct := NewAccount(decimal.NewFromInt(1000), NewSimulatedExchange())
	acct.MarkToMarket(mkCandle("BTCUSDT", 0, 100))
	curve := acct.EquityCurve()
	assert.Len(t, curve, 1)
	assert.True(t, curve[0].Equity.Equal(decimal.NewFromInt(1000)))
}
