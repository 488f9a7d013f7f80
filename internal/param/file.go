package param

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	kindNumeric = "numeric"
	kindBinary  = "binary"
)

// fileParameter is the YAML form of a Parameter
type fileParameter struct {
	Name       string      `yaml:"name"`
	FilePrefix string      `yaml:"file_prefix"`
	Column     *int        `yaml:"column"`
	Keyword    string      `yaml:"keyword"`
	Category   string      `yaml:"category"`
	Depth      *int        `yaml:"depth"`
	Kind       string      `yaml:"kind"`
	Unit       string      `yaml:"unit"`
	Precision  *int        `yaml:"precision"`
	Scales     []ScaleRule `yaml:"scales"`
	Scientific bool        `yaml:"scientific"`
	Bounds     *Bounds     `yaml:"bounds"`
}

type catalogFile struct {
	Parameters []fileParameter `yaml:"parameters"`
}

// LoadFile reads a YAML parameter catalog and builds a Registry from it
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter file: %w", err)
	}

	params, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewRegistry(params...)
}

// Decode parses a YAML parameter catalog. Unknown keys are rejected so that
// typos do not silently fall back to defaults.
func Decode(data []byte) ([]Parameter, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode parameter catalog: %w", err)
	}
	if len(file.Parameters) == 0 {
		return nil, &ConfigError{Reason: "catalog declares no parameters"}
	}

	params := make([]Parameter, 0, len(file.Parameters))
	for _, fp := range file.Parameters {
		p, err := fp.toParameter()
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

func (fp fileParameter) toParameter() (Parameter, error) {
	p := Parameter{
		Name:       fp.Name,
		FilePrefix: fp.FilePrefix,
		Category:   fp.Category,
		Depth:      1,
	}
	if fp.Depth != nil {
		p.Depth = *fp.Depth
	}

	switch {
	case fp.Column != nil && fp.Keyword != "":
		return Parameter{}, &ConfigError{Parameter: fp.Name, Reason: "set either column or keyword, not both"}
	case fp.Column != nil:
		p.Locator = Column(*fp.Column)
	case fp.Keyword != "":
		p.Locator = Keyword(fp.Keyword)
	default:
		return Parameter{}, &ConfigError{Parameter: fp.Name, Reason: "column or keyword is required"}
	}

	switch fp.Kind {
	case kindBinary:
		if fp.Unit != "" || fp.Bounds != nil || len(fp.Scales) > 0 {
			return Parameter{}, &ConfigError{Parameter: fp.Name, Reason: "binary parameters take no unit, scales or bounds"}
		}
		p.Codec = Binary{}
	case kindNumeric, "":
		n := &Numeric{
			Unit:       fp.Unit,
			Precision:  2,
			Scales:     fp.Scales,
			Scientific: fp.Scientific,
			Bounds:     fp.Bounds,
		}
		if fp.Precision != nil {
			n.Precision = *fp.Precision
		}
		p.Codec = n
	default:
		return Parameter{}, &ConfigError{Parameter: fp.Name, Reason: fmt.Sprintf("unknown kind %q", fp.Kind)}
	}

	return p, nil
}
