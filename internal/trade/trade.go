// Package trade holds the raw tick data connectors receive from
// exchange websocket feeds, before internal/candleagg folds it into
// one-minute candles. Adapted from the teacher's internal/model.Trade.
package trade

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one executed trade reported by an exchange feed.
type Trade struct {
	ID        string          `json:"id" db:"trade_id"`
	Symbol    string          `json:"symbol" db:"symbol"`
	Exchange  string          `json:"exchange" db:"exchange"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Side      string          `json:"side" db:"side"` // "buy" or "sell"
	Timestamp time.Time       `json:"ts" db:"time"`
}
