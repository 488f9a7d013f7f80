// Package dispatch forwards new readings to the dashboard, one parameter at
// a time, and reports the ones that fell out of bounds.
package dispatch

import (
	"context"
	"time"

	"github.com/oicur0t/hal/internal/metrics"
	"github.com/oicur0t/hal/internal/param"
	"github.com/oicur0t/hal/internal/reader"
	"github.com/oicur0t/hal/pkg/models"
	"github.com/oicur0t/hal/pkg/retry"
	"go.uber.org/zap"
)

// NoData is published for a parameter that has no readings yet
const NoData = "N/A"

// Publisher sends one update to the dashboard
type Publisher interface {
	Publish(ctx context.Context, u models.Update) error
}

// Config holds dispatcher timing
type Config struct {
	// RetryDelay is the wait before re-sending a failed publish.
	RetryDelay time.Duration
	// RequestDelay is the pause after every publish attempt.
	RequestDelay time.Duration
}

// Dispatcher remembers the last published timestamp per parameter and only
// publishes when a newer reading shows up.
type Dispatcher struct {
	params    []param.Parameter
	publisher Publisher
	cfg       Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time

	// published holds the timestamp of the last successful publish; an
	// absent key means the parameter was never published.
	published map[string]string
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithSleep replaces the wait used for retries and throttling
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(d *Dispatcher) { d.sleep = sleep }
}

// WithClock replaces time.Now for PublishedAt
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithMetrics records publish attempts and out of bounds readings
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New creates a dispatcher for every parameter in reg
func New(reg *param.Registry, publisher Publisher, cfg Config, logger *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		params:    reg.All(),
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		sleep:     retry.Sleep,
		now:       time.Now,
		published: make(map[string]string),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// LastPublished returns the reading timestamp last published for name
func (d *Dispatcher) LastPublished(name string) (string, bool) {
	ts, ok := d.published[name]
	return ts, ok
}

// Dispatch publishes every parameter whose latest reading changed since the
// last successful publish and returns the new readings that are out of
// bounds. A failing publish is retried until it succeeds, so an error is
// only returned when ctx ends or the publisher marks a failure permanent.
// Alerts collected before the error are returned with it.
func (d *Dispatcher) Dispatch(ctx context.Context, data map[string]reader.History) ([]models.Alert, error) {
	var alerts []models.Alert

	for _, p := range d.params {
		latest, ok := data[p.Name].Latest()
		last, published := d.published[p.Name]
		if published && last == latest.Timestamp {
			continue
		}

		update := models.Update{
			Parameter:   p.Name,
			Category:    p.Category,
			Value:       NoData,
			ReadingTime: latest.Timestamp,
		}

		if ok {
			value, alert, err := d.evaluate(p, latest)
			switch {
			case err == nil:
				update.Value = value
				if alert != nil {
					alerts = append(alerts, *alert)
				}
			case published:
				// Keep the last good value on the dashboard; the bad reading
				// is not retried until a new one arrives.
				d.logger.Error("Cannot normalize reading",
					zap.String("parameter", p.Name),
					zap.String("raw", latest.Value),
					zap.Error(err))
				d.published[p.Name] = latest.Timestamp
				continue
			default:
				// The parameter has no dashboard row yet, create it with NoData.
				d.logger.Error("Cannot normalize first reading, publishing no data",
					zap.String("parameter", p.Name),
					zap.String("raw", latest.Value),
					zap.Error(err))
			}
		}

		if err := d.publish(ctx, update); err != nil {
			return alerts, err
		}
		d.published[p.Name] = latest.Timestamp
	}

	return alerts, nil
}

// evaluate normalizes and bounds-checks a reading
func (d *Dispatcher) evaluate(p param.Parameter, e reader.Entry) (string, *models.Alert, error) {
	value, err := param.Normalize(e.Value, p)
	if err != nil {
		return "", nil, err
	}

	valid, err := param.Validate(e.Value, p)
	if err != nil {
		return "", nil, err
	}
	if valid {
		return value, nil, nil
	}

	d.metrics.OutOfBounds(p.Name)
	alert := &models.Alert{
		Parameter:   p.Name,
		Value:       value,
		ReadingTime: e.Timestamp,
	}
	if n, ok := p.Codec.(*param.Numeric); ok && n.Bounds != nil {
		alert.Min, alert.Max = n.Bounds.Min, n.Bounds.Max
	}
	d.logger.Warn("Reading out of bounds",
		zap.String("parameter", p.Name),
		zap.String("value", value))
	return value, alert, nil
}

// publish sends u until the publisher accepts it
func (d *Dispatcher) publish(ctx context.Context, u models.Update) error {
	cfg := retry.Config{
		MaxRetries: retry.Unlimited,
		Wait:       d.cfg.RetryDelay,
		Sleep:      d.sleep,
		OnRetry: func(attempt int, err error) {
			d.logger.Warn("Publish failed, retrying",
				zap.String("parameter", u.Parameter),
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", d.cfg.RetryDelay),
				zap.Error(err))
		},
	}

	err := retry.Do(ctx, cfg, func() error {
		u.PublishedAt = d.now()
		err := d.publisher.Publish(ctx, u)
		d.metrics.Publish(u.Parameter, err)
		d.throttle(ctx)
		return err
	})
	if err != nil {
		return err
	}

	d.logger.Debug("Published update",
		zap.String("parameter", u.Parameter),
		zap.String("value", u.Value),
		zap.String("reading_time", u.ReadingTime))
	return nil
}

// throttle keeps requests under the dashboard API's rate limit
func (d *Dispatcher) throttle(ctx context.Context) {
	if d.cfg.RequestDelay <= 0 {
		return
	}
	if err := d.sleep(ctx, d.cfg.RequestDelay); err != nil {
		d.logger.Debug("Throttle interrupted", zap.Error(err))
	}
}
