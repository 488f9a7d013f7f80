// Package param describes the monitored fridge quantities: where each value
// lives in the instrument logs and how a raw value becomes a display string.
package param

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/oicur0t/hal/internal/units"
)

// Parameter is an immutable descriptor of one monitored quantity
type Parameter struct {
	Name string
	// FilePrefix is prepended to the date to form the log file name. Some
	// instruments log to "CH6 T 23-01-12.log", so trailing spaces matter.
	FilePrefix string
	Locator    Locator
	Category   string
	// Depth is the number of most recent readings kept in history.
	Depth int
	Codec Codec
}

// Normalize turns a raw log value into the parameter's display string
func Normalize(raw string, p Parameter) (string, error) {
	if p.Codec == nil {
		return "", &ConfigError{Parameter: p.Name, Reason: "no codec"}
	}
	return p.Codec.normalize(p.Name, raw)
}

// Validate reports whether a raw log value lies inside the parameter's bounds
func Validate(raw string, p Parameter) (bool, error) {
	if p.Codec == nil {
		return false, &ConfigError{Parameter: p.Name, Reason: "no codec"}
	}
	return p.Codec.validate(p.Name, raw)
}

// Locator finds a parameter's value among the fields of a log line. Either
// a fixed column or the field right after a keyword field.
type Locator struct {
	Index   int
	Keyword string
}

// Column locates the value at a fixed, zero-based field index
func Column(i int) Locator { return Locator{Index: i} }

// Keyword locates the value immediately following the field equal to kw
func Keyword(kw string) Locator { return Locator{Keyword: kw} }

// Resolve extracts the value from fields. The first matching keyword wins;
// a keyword in the last field, or a column past the end, does not resolve.
func (l Locator) Resolve(fields []string) (string, bool) {
	if l.Keyword == "" {
		if l.Index < 0 || l.Index >= len(fields) {
			return "", false
		}
		return fields[l.Index], true
	}

	for i, f := range fields {
		if f != l.Keyword {
			continue
		}
		if i+1 >= len(fields) {
			return "", false
		}
		return fields[i+1], true
	}
	return "", false
}

func (l Locator) String() string {
	if l.Keyword != "" {
		return fmt.Sprintf("after %q", l.Keyword)
	}
	return fmt.Sprintf("column %d", l.Index)
}

// Bounds is the open interval of acceptable values
type Bounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains is strict: values equal to Min or Max are out of bounds
func (b Bounds) Contains(v float64) bool {
	return b.Min < v && v < b.Max
}

func (b Bounds) String() string {
	return fmt.Sprintf("(%g, %g)", b.Min, b.Max)
}

// Codec is the closed set of parameter kinds: *Numeric and Binary.
type Codec interface {
	normalize(name, raw string) (string, error)
	validate(name, raw string) (bool, error)
}

// ScaleRule switches the display unit when floor(log10(|value|)) falls in
// [MinExp, MaxExp].
type ScaleRule struct {
	Unit   string `yaml:"unit"`
	MinExp int    `yaml:"min_exp"`
	MaxExp int    `yaml:"max_exp"`
}

func (r ScaleRule) covers(exp int) bool {
	return r.MinExp <= exp && exp <= r.MaxExp
}

// Numeric is a real valued quantity logged in Unit
type Numeric struct {
	Unit       string
	Precision  int
	Scales     []ScaleRule
	Scientific bool
	Bounds     *Bounds
}

func (n *Numeric) normalize(name, raw string) (string, error) {
	value, err := parseFloat(name, raw)
	if err != nil {
		return "", err
	}

	base, ok := units.Lookup(n.Unit)
	if !ok {
		return "", &ConfigError{Parameter: name, Reason: fmt.Sprintf("unknown unit %q", n.Unit)}
	}

	display, target := value, base
	if len(n.Scales) > 0 && value != 0 {
		exp := int(math.Floor(math.Log10(math.Abs(value))))
		for _, rule := range n.Scales {
			if !rule.covers(exp) {
				continue
			}
			alt, ok := units.Lookup(rule.Unit)
			if !ok {
				return "", &ConfigError{Parameter: name, Reason: fmt.Sprintf("unknown unit %q", rule.Unit)}
			}
			converted, err := units.Convert(value, base, alt)
			if err != nil {
				return "", &ConfigError{Parameter: name, Reason: err.Error()}
			}
			display, target = converted, alt
			break
		}
	}

	return units.Format(display, target, n.Precision, n.Scientific), nil
}

func (n *Numeric) validate(name, raw string) (bool, error) {
	value, err := parseFloat(name, raw)
	if err != nil {
		return false, err
	}
	if n.Bounds == nil {
		return true, nil
	}
	return n.Bounds.Contains(value), nil
}

// Binary is an on/off flag logged as 0 or 1
type Binary struct{}

func (Binary) normalize(name, raw string) (string, error) {
	on, err := parseBit(name, raw)
	if err != nil {
		return "", err
	}
	if on {
		return "True", nil
	}
	return "False", nil
}

func (Binary) validate(name, raw string) (bool, error) {
	if _, err := parseBit(name, raw); err != nil {
		return false, err
	}
	return true, nil
}

func parseFloat(name, raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &ParseError{Parameter: name, Raw: raw, Reason: "not a number"}
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, &ParseError{Parameter: name, Raw: raw, Reason: "not finite"}
	}
	return value, nil
}

func parseBit(name, raw string) (bool, error) {
	value, err := parseFloat(name, raw)
	if err != nil {
		return false, err
	}
	switch value {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, &ParseError{Parameter: name, Raw: raw, Reason: "binary value must be 0 or 1"}
}
