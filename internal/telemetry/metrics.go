package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CandlesDispatched counts candles handed to engines, by symbol.
	CandlesDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_candles_dispatched_total",
		Help: "Total number of candles dispatched to engines during replay.",
	}, []string{"symbol"})

	// StreamsLoaded counts per-symbol stream loads, split by whether the
	// stream was preloaded into memory or left streaming.
	StreamsLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_streams_loaded_total",
		Help: "Total number of candle streams loaded, by preload mode.",
	}, []string{"preload"})

	// StreamLoadFailures counts symbols whose stream load failed and was
	// dropped (spec.md §7, LoadFailure).
	StreamLoadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_stream_load_failures_total",
		Help: "Total number of per-symbol candle stream load failures.",
	}, []string{"symbol"})

	// ReplayDuration observes wall-clock seconds spent in one
	// DispatchLoop.Run call.
	ReplayDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "replay_dispatch_duration_seconds",
		Help:    "Wall-clock duration of a single replay dispatch loop run.",
		Buckets: prometheus.DefBuckets,
	})

	// EngineFailures counts engine.Process errors that aborted a
	// parameter set (spec.md §7, EngineFailure).
	EngineFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_engine_failures_total",
		Help: "Total number of engine.Process failures that aborted a run.",
	}, []string{"symbol"})

	// IngestLatency observes connector trade-feed latency, by exchange
	// and symbol (internal/connector).
	IngestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "ingest_latency_seconds",
		Help: "Latency of market data ingestion",
	}, []string{"exchange", "symbol"})

	// WSConnections tracks active push-gateway websocket clients
	// (internal/push).
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// CandlesBackfilled counts candles persisted by internal/backfill,
	// by symbol.
	CandlesBackfilled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backfill_candles_inserted_total",
		Help: "Total number of candles inserted by the history backfill filler.",
	}, []string{"symbol"})

	// TradeProcessRate counts raw trades folded into candles by
	// internal/candleagg, by symbol.
	TradeProcessRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trade_process_total",
		Help: "Total number of trades processed",
	}, []string{"symbol"})
)
