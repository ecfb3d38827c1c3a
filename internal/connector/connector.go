// Package connector implements exchange websocket trade feeds used by
// the history backfill pipeline (spec.md §6's backfill_from/to,
// tick_interval, resume_backfill config surface). Kept from the
// teacher largely unchanged at the wire-format level; renamed to
// implement a shared Connector interface.
package connector

import (
	"context"

	"github.com/univocity/trader-replay/internal/trade"
)

// Connector streams trades for one symbol from an exchange until ctx
// is cancelled, reconnecting with backoff on transport failures.
type Connector interface {
	Run(ctx context.Context, tradeChan chan<- trade.Trade)
}
