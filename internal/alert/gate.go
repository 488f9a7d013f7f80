// Package alert rate limits out of bounds notifications per parameter.
package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/oicur0t/hal/internal/metrics"
	"github.com/oicur0t/hal/pkg/models"
	"github.com/oicur0t/hal/pkg/retry"
	"go.uber.org/zap"
)

// Notifier delivers a message to a human channel. Errors wrapped with
// retry.Permanent are rejections that must not be retried.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Config holds alert timing
type Config struct {
	// RemindInterval is the minimum time between two alerts for one parameter.
	RemindInterval time.Duration
	// RetryDelay is the wait before re-sending after a transient error.
	RetryDelay time.Duration
}

// Gate sends at most one alert per parameter per RemindInterval
type Gate struct {
	notifier Notifier
	cfg      Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	// sent holds the time of the last confirmed alert per parameter
	sent map[string]time.Time
}

// Option configures a Gate
type Option func(*Gate)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithSleep replaces the wait used between retries
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Gate) { g.sleep = sleep }
}

// WithMetrics records alert outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// NewGate creates an alert gate in front of notifier
func NewGate(notifier Notifier, cfg Config, logger *zap.Logger, opts ...Option) *Gate {
	g := &Gate{
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		sleep:    retry.Sleep,
		sent:     make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Message renders the notification text for an alert
func Message(a models.Alert) string {
	return fmt.Sprintf("%s value %s is out of bounds (%g, %g)", a.Parameter, a.Value, a.Min, a.Max)
}

// LastSent returns when the last alert for parameter was confirmed
func (g *Gate) LastSent(parameter string) (time.Time, bool) {
	t, ok := g.sent[parameter]
	return t, ok
}

// Warn notifies about a if no alert for the same parameter was sent within
// the remind interval. Transient failures are retried; a rejection is logged
// and leaves the ledger untouched. Only ctx's error is returned.
func (g *Gate) Warn(ctx context.Context, a models.Alert) error {
	text := Message(a)

	if last, ok := g.sent[a.Parameter]; ok {
		if elapsed := g.now().Sub(last); elapsed <= g.cfg.RemindInterval {
			g.logger.Debug("Alert suppressed",
				zap.String("parameter", a.Parameter),
				zap.Duration("since_last", elapsed),
				zap.Duration("remind_interval", g.cfg.RemindInterval))
			g.metrics.Alert(a.Parameter, metrics.AlertSuppressed)
			return nil
		}
	}

	cfg := retry.Config{
		MaxRetries: retry.Unlimited,
		Wait:       g.cfg.RetryDelay,
		Sleep:      g.sleep,
		OnRetry: func(attempt int, err error) {
			g.logger.Warn("Alert failed, retrying",
				zap.String("parameter", a.Parameter),
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", g.cfg.RetryDelay),
				zap.Error(err))
		},
	}

	err := retry.Do(ctx, cfg, func() error {
		return g.notifier.Notify(ctx, text)
	})
	switch {
	case err == nil:
		g.sent[a.Parameter] = g.now()
		g.metrics.Alert(a.Parameter, metrics.AlertSent)
		g.logger.Info("Alert sent", zap.String("parameter", a.Parameter), zap.String("message", text))
		return nil
	case retry.IsPermanent(err):
		g.metrics.Alert(a.Parameter, metrics.AlertRejected)
		g.logger.Error("Alert rejected", zap.String("parameter", a.Parameter), zap.Error(err))
		return nil
	default:
		return err
	}
}
