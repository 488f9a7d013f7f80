// Package monitor drives HAL's polling loop: read the logs, publish what
// changed, alert on what is out of bounds, then sleep.
package monitor

import (
	"context"
	"time"

	"github.com/oicur0t/hal/internal/metrics"
	"github.com/oicur0t/hal/internal/reader"
	"github.com/oicur0t/hal/pkg/models"
	"github.com/oicur0t/hal/pkg/retry"
	"go.uber.org/zap"
)

// Source produces the current reading histories
type Source interface {
	Read() map[string]reader.History
}

// Dispatcher publishes new readings and returns the ones out of bounds
type Dispatcher interface {
	Dispatch(ctx context.Context, data map[string]reader.History) ([]models.Alert, error)
}

// Alerter notifies about an out of bounds reading
type Alerter interface {
	Warn(ctx context.Context, a models.Alert) error
}

// Monitor owns one polling loop
type Monitor struct {
	source     Source
	dispatcher Dispatcher
	alerter    Alerter
	interval   time.Duration
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option configures a Monitor
type Option func(*Monitor)

// WithAlerter sends alerts through a. Without it alerts are only logged.
func WithAlerter(a Alerter) Option {
	return func(m *Monitor) { m.alerter = a }
}

// WithMetrics records cycle durations
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Monitor) { m.metrics = mt }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithSleep replaces the wait between cycles
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Monitor) { m.sleep = sleep }
}

// New creates a monitor that polls every interval
func New(source Source, dispatcher Dispatcher, interval time.Duration, logger *zap.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		source:     source,
		dispatcher: dispatcher,
		interval:   interval,
		logger:     logger,
		now:        time.Now,
		sleep:      retry.Sleep,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunOnce performs one read, dispatch and alert cycle
func (m *Monitor) RunOnce(ctx context.Context) error {
	start := m.now()
	m.logger.Debug("Reading and posting data")

	data := m.source.Read()
	alerts, err := m.dispatcher.Dispatch(ctx, data)
	if err != nil {
		return err
	}

	for _, a := range alerts {
		if m.alerter == nil {
			m.logger.Warn("Out of bounds reading, alerts disabled",
				zap.String("parameter", a.Parameter),
				zap.String("value", a.Value))
			continue
		}
		if err := m.alerter.Warn(ctx, a); err != nil {
			return err
		}
	}

	end := m.now()
	m.metrics.Cycle(end.Sub(start), end)
	m.logger.Debug("Cycle complete",
		zap.Int("alerts", len(alerts)),
		zap.Duration("took", end.Sub(start)))
	return nil
}

// Run repeats RunOnce until ctx is cancelled. Cancellation is only observed
// between cycles; a cycle in progress always runs to completion.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("Entering main loop", zap.Duration("interval", m.interval))

	cycle := context.WithoutCancel(ctx)
	for {
		if err := m.RunOnce(cycle); err != nil {
			return err
		}

		m.logger.Debug("Sleeping till next update", zap.Duration("interval", m.interval))
		if err := m.sleep(ctx, m.interval); err != nil {
			m.logger.Info("Main loop stopped")
			return nil
		}
	}
}
