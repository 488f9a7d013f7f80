package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oicur0t/hal/internal/metrics"
	"github.com/oicur0t/hal/internal/reader"
	"github.com/oicur0t/hal/pkg/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSource struct {
	reads int
}

func (s *fakeSource) Read() map[string]reader.History {
	s.reads++
	return map[string]reader.History{}
}

type fakeDispatcher struct {
	alerts []models.Alert
	err    error
	ctxs   []context.Context
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, data map[string]reader.History) ([]models.Alert, error) {
	d.ctxs = append(d.ctxs, ctx)
	return d.alerts, d.err
}

type fakeAlerter struct {
	warned []models.Alert
}

func (a *fakeAlerter) Warn(ctx context.Context, alert models.Alert) error {
	a.warned = append(a.warned, alert)
	return nil
}

var lowFlow = models.Alert{Parameter: "Water flow", Value: "9.5 L/min", Min: 10, Max: 25}

func TestRunOnce(t *testing.T) {
	src := &fakeSource{}
	disp := &fakeDispatcher{alerts: []models.Alert{lowFlow}}
	alerter := &fakeAlerter{}
	m := metrics.NewMetrics("test")

	mon := New(src, disp, time.Minute, zaptest.NewLogger(t), WithAlerter(alerter), WithMetrics(m))
	require.NoError(t, mon.RunOnce(context.Background()))

	assert.Equal(t, 1, src.reads)
	assert.Equal(t, []models.Alert{lowFlow}, alerter.warned)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesTotal))
}

func TestRunOnceWithoutAlerter(t *testing.T) {
	disp := &fakeDispatcher{alerts: []models.Alert{lowFlow}}
	mon := New(&fakeSource{}, disp, time.Minute, zaptest.NewLogger(t))
	assert.NoError(t, mon.RunOnce(context.Background()))
}

func TestRunOnceDispatchError(t *testing.T) {
	disp := &fakeDispatcher{alerts: []models.Alert{lowFlow}, err: errors.New("stopped")}
	alerter := &fakeAlerter{}
	mon := New(&fakeSource{}, disp, time.Minute, zaptest.NewLogger(t), WithAlerter(alerter))

	assert.EqualError(t, mon.RunOnce(context.Background()), "stopped")
	assert.Empty(t, alerter.warned)
}

func TestRunStopsBetweenCycles(t *testing.T) {
	src := &fakeSource{}
	disp := &fakeDispatcher{}
	ctx, cancel := context.WithCancel(context.Background())

	var slept []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		if len(slept) == 3 {
			cancel()
		}
		return ctx.Err()
	}

	mon := New(src, disp, 150*time.Second, zaptest.NewLogger(t), WithSleep(sleep))
	require.NoError(t, mon.Run(ctx))

	assert.Equal(t, 3, src.reads)
	assert.Equal(t, []time.Duration{150 * time.Second, 150 * time.Second, 150 * time.Second}, slept)

	// cycles never see the loop's cancellation
	for _, c := range disp.ctxs {
		assert.NoError(t, c.Err())
	}
}
