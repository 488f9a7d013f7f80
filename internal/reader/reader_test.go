package reader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/oicur0t/hal/internal/metrics"
	"github.com/oicur0t/hal/internal/param"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// clock is a settable time source
type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 14, 30, 0, 0, time.Local)
}

func mxc(depth int) param.Parameter {
	return param.Parameter{
		Name:       "MXC flange",
		FilePrefix: "CH6 T ",
		Locator:    param.Column(2),
		Category:   param.CategoryTemperature,
		Depth:      depth,
		Codec:      &param.Numeric{Unit: "K", Precision: 2, Scales: []param.ScaleRule{{Unit: "mK", MinExp: -3, MaxExp: -1}}},
	}
}

func maxigauge(name, channel string) param.Parameter {
	return param.Parameter{
		Name:       name,
		FilePrefix: "maxigauge ",
		Locator:    param.Keyword(channel),
		Category:   param.CategoryPressure,
		Depth:      3,
		Codec:      &param.Numeric{Unit: "mbar", Precision: 2, Scientific: true},
	}
}

func writeLog(t *testing.T, root, prefix, date string, lines ...string) string {
	t.Helper()
	dir := filepath.Join(root, date)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, prefix+date+".log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func appendLog(t *testing.T, path string, lines ...string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(strings.Join(lines, "\n") + "\n")
	require.NoError(t, err)
}

func newReader(t *testing.T, root string, c *clock, params ...param.Parameter) *Reader {
	t.Helper()
	reg, err := param.NewRegistry(params...)
	require.NoError(t, err)
	return New(root, reg, zaptest.NewLogger(t), WithClock(c.Now))
}

func TestLocate(t *testing.T) {
	got := Locate("/logs", mxc(1), "23-01-12")
	assert.Equal(t, filepath.Join("/logs", "23-01-12", "CH6 T 23-01-12.log"), got)
	assert.Equal(t, "23-01-12", DateString(day(2023, time.January, 12)))
}

func TestReadScenario(t *testing.T) {
	root := t.TempDir()
	writeLog(t, root, "CH6 T ", "23-01-12", "12-01-23,14:30:00,0.00512")

	r := newReader(t, root, &clock{now: day(2023, time.January, 12)}, mxc(10))
	data := r.Read()

	h := data["MXC flange"]
	require.Equal(t, 1, h.Len())
	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, Entry{Timestamp: "12-01-23 14:30:00", Value: "0.00512"}, latest)

	p := mxc(10)
	display, err := param.Normalize(latest.Value, p)
	require.NoError(t, err)
	assert.Equal(t, "5.12 mK", display)
}

func TestReadKeepsNewestDepthInOrder(t *testing.T) {
	root := t.TempDir()
	writeLog(t, root, "CH6 T ", "23-01-12",
		"12-01-23,14:00:00,0.010",
		"12-01-23,14:01:00,0.011",
		"12-01-23,14:02:00,0.012",
		"12-01-23,14:03:00,0.013",
	)

	r := newReader(t, root, &clock{now: day(2023, time.January, 12)}, mxc(3))
	h := r.Read()["MXC flange"]

	assert.Equal(t, []Entry{
		{"12-01-23 14:01:00", "0.011"},
		{"12-01-23 14:02:00", "0.012"},
		{"12-01-23 14:03:00", "0.013"},
	}, h.Entries())
}

func TestReadIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeLog(t, root, "CH6 T ", "23-01-12",
		"12-01-23,14:00:00,0.010",
		"12-01-23,14:01:00,0.011",
	)

	r := newReader(t, root, &clock{now: day(2023, time.January, 12)}, mxc(5))
	first := r.Read()["MXC flange"]
	second := r.Read()["MXC flange"]

	assert.Equal(t, first.Len(), second.Len())
	assert.Equal(t, first.Entries(), second.Entries())
}

func TestReadMergesNewLinesAndTrims(t *testing.T) {
	root := t.TempDir()
	path := writeLog(t, root, "CH6 T ", "23-01-12",
		"12-01-23,14:00:00,0.010",
		"12-01-23,14:01:00,0.011",
	)

	r := newReader(t, root, &clock{now: day(2023, time.January, 12)}, mxc(3))
	require.Equal(t, 2, r.Read()["MXC flange"].Len())

	appendLog(t, path, "12-01-23,14:02:00,0.012", "12-01-23,14:03:00,0.013")
	h := r.Read()["MXC flange"]

	require.Equal(t, 3, h.Len())
	entries := h.Entries()
	assert.Equal(t, "12-01-23 14:01:00", entries[0].Timestamp)
	assert.Equal(t, "12-01-23 14:03:00", entries[2].Timestamp)
}

func TestReadSkipsMalformedLines(t *testing.T) {
	root := t.TempDir()
	writeLog(t, root, "CH6 T ", "23-01-12",
		"12-01-23,14:00:00,0.010",
		"12-01-23,14:01:00,0.011",
		"12-01-23,14:0", // truncated by the instrument
	)

	reg, err := param.NewRegistry(mxc(2))
	require.NoError(t, err)
	m := metrics.NewMetrics("test")
	r := New(root, reg, zaptest.NewLogger(t),
		WithClock((&clock{now: day(2023, time.January, 12)}).Now),
		WithMetrics(m))

	h := r.Read()["MXC flange"]
	assert.Equal(t, []Entry{
		{"12-01-23 14:00:00", "0.010"},
		{"12-01-23 14:01:00", "0.011"},
	}, h.Entries())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkippedLinesTotal.WithLabelValues("MXC flange")))
}

func TestReadKeywordLocator(t *testing.T) {
	root := t.TempDir()
	writeLog(t, root, "maxigauge ", "23-01-12",
		"12-01-23,14:00:00,CH1,1.0e-06,CH2,2.0e-02",
		"12-01-23,14:01:00,status,ok",
		"12-01-23,14:02:00,CH2,2.1e-02,CH1,1.1e-06",
		"12-01-23,14:03:00,CH2,2.2e-02,CH1", // keyword with nothing after it
	)

	r := newReader(t, root, &clock{now: day(2023, time.January, 12)},
		maxigauge("P1 OVC", "CH1"),
		maxigauge("P2 still", "CH2"))
	data := r.Read()

	assert.Equal(t, []Entry{
		{"12-01-23 14:00:00", "1.0e-06"},
		{"12-01-23 14:02:00", "1.1e-06"},
	}, data["P1 OVC"].Entries())
	assert.Equal(t, []Entry{
		{"12-01-23 14:00:00", "2.0e-02"},
		{"12-01-23 14:02:00", "2.1e-02"},
		{"12-01-23 14:03:00", "2.2e-02"},
	}, data["P2 still"].Entries())
}

func TestReadMissingFileKeepsHistory(t *testing.T) {
	root := t.TempDir()
	writeLog(t, root, "CH6 T ", "23-01-12", "12-01-23,23:59:00,0.010")

	c := &clock{now: day(2023, time.January, 12)}
	reg, err := param.NewRegistry(mxc(5))
	require.NoError(t, err)
	m := metrics.NewMetrics("test")
	r := New(root, reg, zaptest.NewLogger(t), WithClock(c.Now), WithMetrics(m))

	before := r.Read()["MXC flange"]
	require.Equal(t, 1, before.Len())

	// midnight: today's folder does not exist yet
	c.now = day(2023, time.January, 13)
	after := r.Read()["MXC flange"]
	assert.Equal(t, "23-01-13", r.Date())
	assert.Equal(t, before.Entries(), after.Entries())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MissingFilesTotal.WithLabelValues("CH6 T ")))

	// the new day's file appears and is merged after the old readings
	writeLog(t, root, "CH6 T ", "23-01-13", "13-01-23,00:01:00,0.011")
	rotated := r.Read()["MXC flange"]
	assert.Equal(t, []Entry{
		{"12-01-23 23:59:00", "0.010"},
		{"13-01-23 00:01:00", "0.011"},
	}, rotated.Entries())
}

func TestReadNoFileAtAll(t *testing.T) {
	r := newReader(t, t.TempDir(), &clock{now: day(2023, time.January, 12)}, mxc(5))
	h := r.Read()["MXC flange"]
	assert.Equal(t, 0, h.Len())
	_, ok := h.Latest()
	assert.False(t, ok)
}

func TestReadReturnsCopies(t *testing.T) {
	root := t.TempDir()
	writeLog(t, root, "CH6 T ", "23-01-12", "12-01-23,14:00:00,0.010")

	r := newReader(t, root, &clock{now: day(2023, time.January, 12)}, mxc(5))
	h := r.Read()["MXC flange"]
	entries := h.Entries()
	entries[0].Value = "tampered"

	again := r.Read()["MXC flange"]
	latest, _ := again.Latest()
	assert.Equal(t, "0.010", latest.Value)
}

func TestHistoryMerge(t *testing.T) {
	h := &history{}
	h.merge([]Entry{{"b", "2"}, {"a", "1"}}, 3)
	assert.Equal(t, []Entry{{"a", "1"}, {"b", "2"}}, h.entries)

	// duplicate keys overwrite in place without changing order
	h.merge([]Entry{{"c", "3"}, {"a", "1'"}}, 3)
	assert.Equal(t, []Entry{{"a", "1'"}, {"b", "2"}, {"c", "3"}}, h.entries)

	// eviction drops the least recently inserted
	h.merge([]Entry{{"e", "5"}, {"d", "4"}}, 3)
	assert.Equal(t, []Entry{{"c", "3"}, {"d", "4"}, {"e", "5"}}, h.entries)
}
