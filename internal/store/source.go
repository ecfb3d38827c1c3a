package store

import (
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/univocity/trader-replay/internal/candle"
)

// streamingSource wraps a live pgx.Rows cursor and pulls one candle at a
// time, releasing the cursor once exhausted (spec.md §4.1).
type streamingSource struct {
	symbol string
	rows   pgx.Rows
	closed bool

	buffered   bool
	next       candle.Candle
	nextErr    error
}

// HasNext advances the underlying cursor far enough to know whether
// another row exists, buffering it for the following Next call.
func (s *streamingSource) HasNext() bool {
	if s.closed {
		return false
	}
	if s.buffered {
		return s.nextErr == nil
	}
	if !s.rows.Next() {
		s.closed = true
		s.rows.Close()
		return false
	}
	s.next, s.nextErr = scanCandle(s.rows, s.symbol)
	s.buffered = true
	return true
}

func (s *streamingSource) Next() (candle.Candle, error) {
	if !s.buffered {
		if !s.HasNext() {
			return candle.Candle{}, fmt.Errorf("candle source for %s exhausted", s.symbol)
		}
	}
	s.buffered = false
	return s.next, s.nextErr
}
