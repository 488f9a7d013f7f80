package param

import "fmt"

// ParseError reports a raw log value that cannot be read as the parameter's kind
type ParseError struct {
	Parameter string
	Raw       string
	Reason    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parameter %q: cannot parse %q: %s", e.Parameter, e.Raw, e.Reason)
}

// ConfigError reports a parameter declaration that can never be normalized
type ConfigError struct {
	Parameter string
	Reason    string
}

func (e *ConfigError) Error() string {
	if e.Parameter == "" {
		return "parameter config: " + e.Reason
	}
	return fmt.Sprintf("parameter %q: %s", e.Parameter, e.Reason)
}
