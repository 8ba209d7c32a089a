// Package cmdlog wraps CLI command bodies with run counters, timing and a
// single outcome log line.
package cmdlog

import (
	"context"
	"errors"
	"time"

	"threshold/internal/logging"
	"threshold/internal/metrics"
)

// Run executes f as the named CLI command. Every invocation lands in the
// command-duration histogram; failures are also counted and logged at error
// level. A cancelled context is an interrupted command, not a failure.
func Run(cmd string, f func() error) error {
	start := time.Now()
	metrics.IncCommandRun(cmd)
	err := f()
	d := metrics.ObserveCommandDuration(cmd, start)
	fields := map[string]any{"cmd": cmd, "duration_ms": d.Milliseconds()}
	switch {
	case err == nil:
		logging.Debug(cmd+"_ok", fields)
	case errors.Is(err, context.Canceled):
		logging.Info(cmd+"_interrupted", fields)
	default:
		metrics.IncCommandError(cmd)
		fields["error"] = err.Error()
		logging.Error(cmd+"_error", fields)
	}
	return err
}
