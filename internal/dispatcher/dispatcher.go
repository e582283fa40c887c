// Package dispatcher runs the scheduled-withdrawal dispatch loop.
//
// The perpetual service and the one-shot trigger share the same single-pass
// routine; only the outer repetition policy differs. Multiple dispatcher
// instances may run concurrently against the same database: coordination
// happens entirely through row locks, never in process.
package dispatcher

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	processedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "withdrawals_dispatched_total",
		Help: "Scheduled withdrawals driven to a terminal state.",
	})
	passErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "withdrawal_dispatch_pass_errors_total",
		Help: "Dispatch passes that ended with an error.",
	})
)

// Service provides the single dispatch pass needed by the dispatcher.
//
//go:generate mockgen -source dispatcher.go -destination dispatcher_mock.go -package dispatcher
type Service interface {
	ProcessScheduled(ctx context.Context) (int, error)
}

// Dispatcher periodically triggers dispatch passes.
type Dispatcher struct {
	service  Service
	interval time.Duration
}

// New returns a dispatcher running a pass every interval.
func New(service Service, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = time.Minute
	}

	return &Dispatcher{
		service:  service,
		interval: interval,
	}
}

// RunOnce executes a single dispatch pass and returns the number of
// withdrawals that reached a terminal state.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	processed, err := d.service.ProcessScheduled(ctx)

	processedTotal.Add(float64(processed))

	if err != nil {
		passErrorsTotal.Inc()
	}

	return processed, err
}

// Run executes dispatch passes on a fixed period until ctx is cancelled.
// Pass errors are logged and the loop keeps going.
func (d *Dispatcher) Run(ctx context.Context) {
	l := zerolog.Ctx(ctx)

	l.Info().Dur("interval", d.interval).Msg("scheduled withdrawal dispatcher started")

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if _, err := d.RunOnce(ctx); err != nil {
			l.Error().Err(err).Msg("dispatch pass failed")
		}

		select {
		case <-ctx.Done():
			l.Info().Msg("scheduled withdrawal dispatcher stopped")
			return
		case <-ticker.C:
		}
	}
}
