// Package notify wires the backfill pipeline and replay progress
// events onto NATS JetStream subjects, adapted from the teacher's
// internal/infrastructure/nats.go.
package notify

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects published under the MARKET stream.
const (
	SubjectRawTradePrefix  = "market.raw"
	SubjectKline1mPrefix   = "market.kline.1m"
	SubjectProgressPattern = "sim.%s.progress" // sim.<run-id>.progress, spec.md §9
)

// Connect opens a JetStream connection and ensures the MARKET stream
// exists, covering both raw trade/candle subjects (backfill pipeline)
// and per-run simulation progress subjects.
func Connect(url string, logger *zap.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, nil, err
	}

	cfg := &nats.StreamConfig{
		Name:     "MARKET",
		Subjects: []string{"market.raw.*.*", "market.kline.*.*", "sim.*.progress"},
	}
	if _, err := js.AddStream(cfg); err != nil {
		if _, err := js.UpdateStream(cfg); err != nil {
			logger.Warn("failed to create or update MARKET stream", zap.Error(err))
		}
	}

	return nc, js, nil
}

// ProgressSubject returns the subject a Driver run publishes its
// dispatch progress to.
func ProgressSubject(runID string) string {
	return fmt.Sprintf(SubjectProgressPattern, runID)
}

// PublishProgress is a best-effort notification; publish failures are
// logged, not propagated, since progress events are observational only.
func PublishProgress(js nats.JetStreamContext, logger *zap.Logger, runID string, payload []byte) {
	if js == nil {
		return
	}
	if _, err := js.Publish(ProgressSubject(runID), payload); err != nil {
		logger.Warn("failed to publish run progress", zap.String("run_id", runID), zap.Error(err))
	}
}
