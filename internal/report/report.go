// Package report builds the end-of-run summary for one account
// (spec.md §1's "Reporter / Liquidator" collaborator), grounded on the
// teacher's internal/engine/backtester.go calculateMaxDrawdown/
// calculateStats/calculateSharpeRatio, generalized from a slice-based
// batch backtest to the account's recorded trade and equity history.
package report

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/univocity/trader-replay/internal/account"
)

// Report is one account's final performance summary.
type Report struct {
	AccountLabel   string
	TotalTrades    int
	WinRate        float64
	TotalReturn    decimal.Decimal
	TotalProfit    decimal.Decimal
	MaxDrawdown    float64
	SharpeRatio    float64
	InitialBalance decimal.Decimal
	FinalBalance   decimal.Decimal
	Trades         []account.Trade
	EquityCurve    []account.EquitySample
}

// Build computes a Report from an account's recorded history. acct is
// assumed finished (LiquidateOpenPositions already called).
func Build(label string, acct *account.Account) Report {
	trades := acct.Trades()
	equity := acct.EquityCurve()

	initial := acct.InitialBalance()
	final := acct.Balance()

	var totalReturn decimal.Decimal
	if initial.GreaterThan(decimal.Zero) {
		totalReturn = final.Sub(initial).Div(initial)
	}

	winRate, totalProfit := tradeStats(trades)

	return Report{
		AccountLabel:   label,
		TotalTrades:    len(trades),
		WinRate:        winRate,
		TotalReturn:    totalReturn,
		TotalProfit:    totalProfit,
		MaxDrawdown:    maxDrawdown(equity),
		SharpeRatio:    sharpeRatio(equity),
		InitialBalance: initial,
		FinalBalance:   final,
		Trades:         trades,
		EquityCurve:    equity,
	}
}

func tradeStats(trades []account.Trade) (winRate float64, totalProfit decimal.Decimal) {
	sellCount := 0
	wins := 0
	for _, t := range trades {
		if t.Side != account.SideSell {
			continue
		}
		sellCount++
		if t.PnL.GreaterThan(decimal.Zero) {
			wins++
		}
		totalProfit = totalProfit.Add(t.PnL)
	}
	if sellCount == 0 {
		return 0, decimal.Zero
	}
	return float64(wins) / float64(sellCount), totalProfit
}

func maxDrawdown(curve []account.EquitySample) float64 {
	if len(curve) == 0 {
		return 0
	}
	maxEquity := curve[0].Equity
	maxDD := decimal.Zero
	for _, sample := range curve {
		if sample.Equity.GreaterThan(maxEquity) {
			maxEquity = sample.Equity
		}
		if maxEquity.IsZero() {
			continue
		}
		dd := maxEquity.Sub(sample.Equity).Div(maxEquity)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}
	f, _ := maxDD.Float64()
	return f
}

func sharpeRatio(curve []account.EquitySample) float64 {
	if len(curve) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev.IsZero() {
			continue
		}
		r, _ := curve[i].Equity.Sub(prev).Div(prev).Float64()
		returns = append(returns, r)
	}
	if len(returns) < 2 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	avg := sum / float64(len(returns))

	var sumSqDiff float64
	for _, r := range returns {
		diff := r - avg
		sumSqDiff += diff * diff
	}
	stdDev := math.Sqrt(sumSqDiff / float64(len(returns)))
	if stdDev == 0 {
		return 0
	}
	return avg / stdDev
}
