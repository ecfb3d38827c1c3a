// Package account implements the account / trading-manager external
// collaborator (spec.md §1, §6) that the replay core drives but never
// reaches into. Grounded on the teacher's internal/engine/backtester.go
// buy/sell/fee/slippage model, generalized from a single-pass batch
// backtest into a per-candle Engine the DispatchLoop can call.
package account

import (
	"github.com/shopspring/decimal"
	"github.com/univocity/trader-replay/internal/candle"
)

// SimulatedExchange matches orders at the dispatched candle's close
// price, adjusted by slippage. It intentionally has no order book and
// no partial fills — the account layer is an external collaborator per
// spec.md §1, not the subject under test, so it is kept as simple as the
// teacher's own Backtester.buy/sell.
type SimulatedExchange struct {
	FeeRate     decimal.Decimal
	SlippageBps decimal.Decimal
}

// NewSimulatedExchange mirrors the teacher's default fee/slippage
// constants (0.1% fee, 0.05% slippage).
func NewSimulatedExchange() *SimulatedExchange {
	return &SimulatedExchange{
		FeeRate:     decimal.NewFromFloat(0.001),
		SlippageBps: decimal.NewFromFloat(0.0005),
	}
}

// Fill computes the executed price and fee for a buy (positive qty
// direction) or sell against c's closing price.
func (e *SimulatedExchange) Fill(c candle.Candle, side Side, qty decimal.Decimal) (price, fee decimal.Decimal) {
	if side == SideBuy {
		price = c.Close.Mul(decimal.NewFromInt(1).Add(e.SlippageBps))
	} else {
		price = c.Close.Mul(decimal.NewFromInt(1).Sub(e.SlippageBps))
	}
	fee = qty.Mul(price).Mul(e.FeeRate)
	return price, fee
}

// Side is a simulated order side.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)
