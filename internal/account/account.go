package account

import (
	"sync"

	"github.com/shopspring/decimal"
	"github.com/univocity/trader-replay/internal/candle"
)

// Trade is one executed fill, logged for the report (spec.md §6).
type Trade struct {
	Time   int64
	Symbol string
	Side   Side
	Price  decimal.Decimal
	Size   decimal.Decimal
	Fee    decimal.Decimal
	PnL    decimal.Decimal
}

// EquitySample is one point on the equity curve, taken after each
// dispatched candle (one per symbol, since the DispatchLoop calls
// engines one candle at a time).
type EquitySample struct {
	Time   int64
	Equity decimal.Decimal
}

// position tracks quantity and cost basis for a single symbol so Sell
// can report real PnL instead of the teacher's "net sale, not true PnL"
// shortcut (internal/engine/backtester.go sell()).
type position struct {
	qty     decimal.Decimal
	avgCost decimal.Decimal
}

// Account is the per-parameter-set trading account (spec.md §1's
// "account / trading-manager" external collaborator). One Account is
// built per run of internal/simulation's Driver and discarded at the
// end of that parameter set.
type Account struct {
	mu             sync.Mutex
	exchange       *SimulatedExchange
	initialBalance decimal.Decimal
	balance        decimal.Decimal
	positions      map[string]*position
	trades         []Trade
	equityCurve    []EquitySample
}

func NewAccount(initialBalance decimal.Decimal, exchange *SimulatedExchange) *Account {
	return &Account{
		exchange:       exchange,
		initialBalance: initialBalance,
		balance:        initialBalance,
		positions:      make(map[string]*position),
	}
}

// Buy spends the account's entire available balance on symbol at c's
// fill price, mirroring the teacher's all-in sizing
// (internal/engine/backtester.go buy()).
func (a *Account) Buy(c candle.Candle) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.balance.LessThanOrEqual(decimal.Zero) {
		return
	}
	price, _ := a.exchange.Fill(c, SideBuy, decimal.Zero)
	qty := a.balance.Div(price.Mul(decimal.NewFromInt(1).Add(a.exchange.FeeRate)))
	if qty.LessThanOrEqual(decimal.Zero) {
		return
	}
	fee := qty.Mul(price).Mul(a.exchange.FeeRate)

	pos := a.positions[c.Symbol]
	if pos == nil {
		pos = &position{qty: decimal.Zero, avgCost: decimal.Zero}
		a.positions[c.Symbol] = pos
	}
	newQty := pos.qty.Add(qty)
	pos.avgCost = pos.avgCost.Mul(pos.qty).Add(price.Mul(qty)).Div(newQty)
	pos.qty = newQty

	a.balance = a.balance.Sub(qty.Mul(price)).Sub(fee)
	a.trades = append(a.trades, Trade{
		Time: c.OpenTime, Symbol: c.Symbol, Side: SideBuy,
		Price: price, Size: qty, Fee: fee,
	})
}

// Sell liquidates the full open position in symbol at c's fill price.
func (a *Account) Sell(c candle.Candle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sellLocked(c)
}

func (a *Account) sellLocked(c candle.Candle) {
	pos := a.positions[c.Symbol]
	if pos == nil || pos.qty.LessThanOrEqual(decimal.Zero) {
		return
	}
	price, _ := a.exchange.Fill(c, SideSell, pos.qty)
	saleValue := pos.qty.Mul(price)
	fee := saleValue.Mul(a.exchange.FeeRate)
	costBasis := pos.qty.Mul(pos.avgCost)
	pnl := saleValue.Sub(fee).Sub(costBasis)

	a.balance = a.balance.Add(saleValue).Sub(fee)
	a.trades = append(a.trades, Trade{
		Time: c.OpenTime, Symbol: c.Symbol, Side: SideSell,
		Price: price, Size: pos.qty, Fee: fee, PnL: pnl,
	})
	pos.qty = decimal.Zero
	pos.avgCost = decimal.Zero
}

// MarkToMarket records an equity-curve sample: cash plus the value of
// symbol's open position at c's close, matching the teacher's
// per-candle equity tracking in Backtester.Run.
func (a *Account) MarkToMarket(c candle.Candle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pos := a.positions[c.Symbol]
	equity := a.balance
	if pos != nil {
		equity = equity.Add(pos.qty.Mul(c.Close))
	}
	a.equityCurve = append(a.equityCurve, EquitySample{Time: c.OpenTime, Equity: equity})
}

// LiquidateOpenPositions force-sells every remaining open position at
// the last known candle for its symbol, mirroring the Java
// MarketSimulator's liquidateOpenPositions end-of-run step.
func (a *Account) LiquidateOpenPositions(lastCandle map[string]candle.Candle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for symbol, pos := range a.positions {
		if pos.qty.LessThanOrEqual(decimal.Zero) {
			continue
		}
		c, ok := lastCandle[symbol]
		if !ok {
			continue
		}
		a.sellLocked(c)
	}
}

func (a *Account) Balance() decimal.Decimal        { return a.balance }
func (a *Account) InitialBalance() decimal.Decimal { return a.initialBalance }
func (a *Account) Trades() []Trade                 { return a.trades }
func (a *Account) EquityCurve() []EquitySample     { return a.equityCurve }
