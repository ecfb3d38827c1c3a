// Package candle defines the core market-data record the replay engine
// operates on: an immutable OHLCV bar and the symbol it belongs to.
package candle

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Candle is one fixed-interval OHLCV bar. The replay core only ever
// inspects OpenTime; every other field is opaque payload.
type Candle struct {
	Symbol    string
	OpenTime  int64 // ms since Unix epoch, UTC
	CloseTime int64
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// Symbol identifies a tradable instrument as an (asset, fund) pair, e.g.
// BTCUSDT = (BTC, USDT).
type Symbol struct {
	Key   string
	Asset string
	Fund  string
}

// Skip reports whether this symbol should be excluded from simulation
// because its asset and fund currency are the same (spec.md §3).
func (s Symbol) Skip() bool {
	return s.Asset != "" && s.Asset == s.Fund
}

// ParseSymbol splits a conventional asset+fund concatenation into a
// Symbol. It knows the quote currencies the teacher's exchange
// connectors deal in; unrecognized symbols keep Asset/Fund empty so
// Skip() never false-positives on them.
func ParseSymbol(key string) Symbol {
	key = strings.ToUpper(key)
	for _, quote := range []string{"USDT", "USDC", "BUSD", "USD", "BTC", "ETH"} {
		if strings.HasSuffix(key, quote) && len(key) > len(quote) {
			return Symbol{Key: key, Asset: key[:len(key)-len(quote)], Fund: quote}
		}
	}
	return Symbol{Key: key}
}
