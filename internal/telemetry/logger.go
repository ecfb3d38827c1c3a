// Package telemetry centralizes the process-wide logger and Prometheus
// metrics, grounded on the teacher's internal/infrastructure package.
package telemetry

import (
	"go.uber.org/zap"
)

// Logger is the process-wide structured logger. Init must be called once
// during startup before any package reads it.
var Logger *zap.Logger

// Init builds the production zap logger. dev switches to the
// human-readable development encoder (still JSON-free field logging).
func Init(dev bool) {
	var err error
	if dev {
		Logger, err = zap.NewDevelopment()
	} else {
		Logger, err = zap.NewProduction()
	}
	if err != nil {
		// Fall back rather than leave Logger nil: a logging failure
		// must never take down the simulator.
		Logger = zap.NewNop()
		return
	}
	Logger.Info("telemetry initialized", zap.Bool("dev", dev))
}
