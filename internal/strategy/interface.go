package strategy

import (
	"github.com/univocity/trader-replay/internal/candle"
)

type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Strategy maintains its own private state across candles and decides,
// for each one, whether to buy, sell, or hold (spec.md §1, "engines
// consume one candle at a time and update their own private state").
type Strategy interface {
	Name() string
	OnCandle(c candle.Candle) Action
}
