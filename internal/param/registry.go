package param

import (
	"fmt"

	"github.com/oicur0t/hal/internal/units"
)

// Registry is the ordered, read-only catalog of parameters. Declaration
// order drives the order of reads, publishes and reports.
type Registry struct {
	params []Parameter
	index  map[string]int
}

// NewRegistry validates params and freezes them into a Registry
func NewRegistry(params ...Parameter) (*Registry, error) {
	r := &Registry{
		params: make([]Parameter, 0, len(params)),
		index:  make(map[string]int, len(params)),
	}

	for _, p := range params {
		if err := check(p); err != nil {
			return nil, err
		}
		if _, dup := r.index[p.Name]; dup {
			return nil, &ConfigError{Parameter: p.Name, Reason: "duplicate name"}
		}
		r.index[p.Name] = len(r.params)
		r.params = append(r.params, clone(p))
	}

	return r, nil
}

// Lookup returns the parameter with the given name
func (r *Registry) Lookup(name string) (Parameter, bool) {
	i, ok := r.index[name]
	if !ok {
		return Parameter{}, false
	}
	return clone(r.params[i]), true
}

// All returns the parameters in declaration order
func (r *Registry) All() []Parameter {
	out := make([]Parameter, len(r.params))
	for i, p := range r.params {
		out[i] = clone(p)
	}
	return out
}

// Len returns the number of parameters
func (r *Registry) Len() int {
	return len(r.params)
}

func check(p Parameter) error {
	if p.Name == "" {
		return &ConfigError{Reason: "parameter without a name"}
	}
	if p.FilePrefix == "" {
		return &ConfigError{Parameter: p.Name, Reason: "file prefix is required"}
	}
	if p.Depth < 1 {
		return &ConfigError{Parameter: p.Name, Reason: fmt.Sprintf("history depth must be at least 1, got %d", p.Depth)}
	}
	if p.Locator.Keyword == "" && p.Locator.Index < 2 {
		// fields 0 and 1 are the date and time of the record
		return &ConfigError{Parameter: p.Name, Reason: fmt.Sprintf("column %d overlaps the timestamp", p.Locator.Index)}
	}

	switch c := p.Codec.(type) {
	case Binary:
		return nil
	case *Numeric:
		return checkNumeric(p.Name, c)
	case nil:
		return &ConfigError{Parameter: p.Name, Reason: "no codec"}
	default:
		return &ConfigError{Parameter: p.Name, Reason: fmt.Sprintf("unsupported codec %T", c)}
	}
}

func checkNumeric(name string, n *Numeric) error {
	base, ok := units.Lookup(n.Unit)
	if !ok {
		return &ConfigError{Parameter: name, Reason: fmt.Sprintf("unknown unit %q", n.Unit)}
	}
	if n.Precision < 0 {
		return &ConfigError{Parameter: name, Reason: "precision must not be negative"}
	}
	for _, rule := range n.Scales {
		alt, ok := units.Lookup(rule.Unit)
		if !ok {
			return &ConfigError{Parameter: name, Reason: fmt.Sprintf("unknown unit %q", rule.Unit)}
		}
		if alt.Dimension != base.Dimension {
			return &ConfigError{Parameter: name, Reason: fmt.Sprintf("unit %q is not compatible with %q", rule.Unit, n.Unit)}
		}
		if rule.MinExp > rule.MaxExp {
			return &ConfigError{Parameter: name, Reason: fmt.Sprintf("empty exponent range for %q", rule.Unit)}
		}
	}
	if n.Bounds != nil && n.Bounds.Min >= n.Bounds.Max {
		return &ConfigError{Parameter: name, Reason: fmt.Sprintf("bounds %s are empty", n.Bounds)}
	}
	return nil
}

// clone copies the mutable parts of a numeric codec so that callers never
// share state with the registry.
func clone(p Parameter) Parameter {
	n, ok := p.Codec.(*Numeric)
	if !ok {
		return p
	}

	cp := *n
	if n.Scales != nil {
		cp.Scales = append([]ScaleRule(nil), n.Scales...)
	}
	if n.Bounds != nil {
		b := *n.Bounds
		cp.Bounds = &b
	}
	p.Codec = &cp
	return p
}
