// Package reader tails the fridge's daily rotated log files and keeps a
// bounded history of the latest readings of every parameter.
package reader

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/oicur0t/hal/internal/metrics"
	"github.com/oicur0t/hal/internal/param"
	"go.uber.org/zap"
)

// DefaultDelimiter separates the fields of a log line
const DefaultDelimiter = ","

// logFile is one log file and the parameters read from it
type logFile struct {
	path   string
	params []param.Parameter
}

// Reader re-reads the current day's log files on every call to Read and
// merges the newest records into per-parameter histories.
type Reader struct {
	root      string
	params    []param.Parameter
	delimiter string
	now       func() time.Time
	logger    *zap.Logger
	metrics   *metrics.Metrics

	date      string
	files     []logFile
	histories map[string]*history
}

// Option configures a Reader
type Option func(*Reader)

// WithClock replaces time.Now, used to pick the day's log folder
func WithClock(now func() time.Time) Option {
	return func(r *Reader) { r.now = now }
}

// WithDelimiter sets the field separator
func WithDelimiter(d string) Option {
	return func(r *Reader) { r.delimiter = d }
}

// WithMetrics records missing files and skipped lines
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reader) { r.metrics = m }
}

// New creates a reader for every parameter in reg, rooted at the log folder
func New(root string, reg *param.Registry, logger *zap.Logger, opts ...Option) *Reader {
	r := &Reader{
		root:      root,
		params:    reg.All(),
		delimiter: DefaultDelimiter,
		now:       time.Now,
		logger:    logger,
		histories: make(map[string]*history, reg.Len()),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, p := range r.params {
		r.histories[p.Name] = &history{}
	}
	return r
}

// Date returns the date the file map was last built for
func (r *Reader) Date() string {
	return r.date
}

// Read refreshes every parameter from today's log files and returns a
// snapshot of each history keyed by parameter name. A missing file leaves
// the histories of its parameters untouched.
func (r *Reader) Read() map[string]History {
	if date := DateString(r.now()); date != r.date {
		r.rotate(date)
	}

	for _, f := range r.files {
		r.readFile(f)
	}

	out := make(map[string]History, len(r.params))
	for _, p := range r.params {
		out[p.Name] = r.histories[p.Name].snapshot()
	}
	return out
}

// rotate rebuilds the path to parameters map for a new day
func (r *Reader) rotate(date string) {
	index := make(map[string]int)
	files := make([]logFile, 0)

	for _, p := range r.params {
		path := Locate(r.root, p, date)
		i, ok := index[path]
		if !ok {
			i = len(files)
			index[path] = i
			files = append(files, logFile{path: path})
		}
		files[i].params = append(files[i].params, p)
	}

	if r.date != "" {
		r.logger.Info("Log rotation detected",
			zap.String("previous_date", r.date),
			zap.String("date", date))
	}
	r.date = date
	r.files = files
}

func (r *Reader) readFile(f logFile) {
	if _, err := os.Stat(f.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Debug("Log file not available yet", zap.String("file", f.path))
		} else {
			r.logger.Warn("Cannot stat log file", zap.String("file", f.path), zap.Error(err))
		}
		r.metrics.MissingFile(f.params[0].FilePrefix)
		return
	}

	lines, err := readLines(f.path)
	if err != nil {
		r.logger.Warn("Failed to read log file", zap.String("file", f.path), zap.Error(err))
		return
	}

	records := make([][]string, len(lines))
	for i, line := range lines {
		records[i] = strings.Split(line, r.delimiter)
	}

	for _, p := range f.params {
		recent, skipped := extract(records, p)
		if skipped > 0 {
			r.logger.Debug("Skipped unreadable lines",
				zap.String("parameter", p.Name),
				zap.String("file", f.path),
				zap.Int("skipped", skipped))
			r.metrics.SkippedLines(p.Name, skipped)
		}
		r.histories[p.Name].merge(recent, p.Depth)
	}
}

// extract walks records from the end and returns up to p.Depth readings,
// newest first. Lines the locator cannot resolve are skipped and counted.
func extract(records [][]string, p param.Parameter) ([]Entry, int) {
	out := make([]Entry, 0, p.Depth)
	skipped := 0

	for i := len(records) - 1; i >= 0 && len(out) < p.Depth; i-- {
		fields := records[i]
		if len(fields) < 2 {
			skipped++
			continue
		}
		value, ok := p.Locator.Resolve(fields)
		if !ok {
			skipped++
			continue
		}
		out = append(out, Entry{
			Timestamp: fields[0] + " " + fields[1],
			Value:     value,
		})
	}
	return out, skipped
}
