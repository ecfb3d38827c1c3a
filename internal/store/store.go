// Package store implements the candle repository external collaborator
// (spec.md §6) against PostgreSQL, grounded on the teacher's
// internal/engine/loader.go DataLoader.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/univocity/trader-replay/internal/candle"
)

// CandleStore is the external collaborator spec.md §6 describes:
// iterate(symbol, start, end, preload) -> CandleSource,
// known_symbols() -> set of Symbol, clear_caches().
type CandleStore interface {
	Iterate(ctx context.Context, symbol string, start, end time.Time, preload bool) (candle.CandleSource, error)
	KnownSymbols(ctx context.Context) ([]string, error)
	ClearCaches()
}

// PostgresStore is a pgxpool-backed CandleStore, generalized from the
// teacher's DataLoader.LoadCandles query.
type PostgresStore struct {
	pool *pgxpool.Pool

	mu       sync.Mutex
	openRows []pgx.Rows // tracked so ClearCaches can close outstanding cursors
}

// NewPostgresStore wraps an already-connected pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Iterate returns a CandleSource yielding every candle for symbol whose
// open_time falls in [start, end], in non-decreasing open_time order
// (spec.md §4.1). When preload is true the full result set is
// materialized before returning, releasing the store-side cursor
// immediately; otherwise the returned source streams rows lazily.
func (s *PostgresStore) Iterate(ctx context.Context, symbol string, start, end time.Time, preload bool) (candle.CandleSource, error) {
	const query = `
		SELECT open_time, close_time, open, high, low, close, volume
		FROM candles
		WHERE symbol = $1 AND open_time >= $2 AND open_time <= $3
		ORDER BY open_time ASC`

	startMS, endMS := start.UnixMilli(), end.UnixMilli()

	if preload {
		rows, err := s.pool.Query(ctx, query, symbol, startMS, endMS)
		if err != nil {
			return nil, fmt.Errorf("preloading candles for %s: %w", symbol, err)
		}
		defer rows.Close()

		var candles []candle.Candle
		for rows.Next() {
			c, err := scanCandle(rows, symbol)
			if err != nil {
				return nil, err
			}
			candles = append(candles, c)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("reading preloaded candles for %s: %w", symbol, err)
		}
		return candle.NewSliceSource(candles), nil
	}

	rows, err := s.pool.Query(ctx, query, symbol, startMS, endMS)
	if err != nil {
		return nil, fmt.Errorf("opening candle cursor for %s: %w", symbol, err)
	}
	src := &streamingSource{symbol: symbol, rows: rows}
	s.mu.Lock()
	s.openRows = append(s.openRows, rows)
	s.mu.Unlock()
	return src, nil
}

// KnownSymbols returns every symbol the repository has candles for
// (spec.md §6).
func (s *PostgresStore) KnownSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT symbol FROM candles ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("listing known symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, err
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

// ClearCaches closes any streaming cursors this store still tracks. The
// driver calls this once at shutdown, not per run (spec.md §3,
// Lifecycle).
func (s *PostgresStore) ClearCaches() {
	s.mu.Lock()
	rows := s.openRows
	s.openRows = nil
	s.mu.Unlock()

	for _, r := range rows {
		r.Close()
	}
}

func scanCandle(rows pgx.Rows, symbol string) (candle.Candle, error) {
	var c candle.Candle
	c.Symbol = symbol
	if err := rows.Scan(&c.OpenTime, &c.CloseTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
		return candle.Candle{}, fmt.Errorf("scanning candle row for %s: %w", symbol, err)
	}
	return c, nil
}
