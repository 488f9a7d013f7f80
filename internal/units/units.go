// Package units knows the physical units that appear in the fridge logs and
// how to move a quantity between units of the same dimension.
package units

import (
	"fmt"
	"strconv"
)

// Unit is a recognized unit symbol. Factor converts one of this unit into
// the reference unit of its dimension.
type Unit struct {
	Symbol    string
	Dimension string
	Factor    float64
}

// Dimensionless is the unit of plain numbers; it renders without a symbol.
var Dimensionless = Unit{Symbol: "", Dimension: "dimensionless", Factor: 1}

var table = map[string]Unit{}

// aliases map alternate spellings onto a canonical symbol
var aliases = map[string]string{
	"uK":     "µK",
	"uW":     "µW",
	"uA":     "µA",
	"umol/s": "µmol/s",
	"degC":   "°C",
	"l/min":  "L/min",
	"ml/min": "mL/min",
}

func init() {
	register("temperature", map[string]float64{"K": 1, "mK": 1e-3, "µK": 1e-6})
	// Celsius is affine, so it only converts to itself.
	register("celsius", map[string]float64{"°C": 1})
	register("power", map[string]float64{"kW": 1e3, "W": 1, "mW": 1e-3, "µW": 1e-6, "nW": 1e-9})
	register("pressure", map[string]float64{
		"Pa": 1, "hPa": 1e2, "kPa": 1e3,
		"bar": 1e5, "mbar": 1e2,
		"psi":  6894.757293168361,
		"Torr": 133.32236842105263,
	})
	register("volume flow", map[string]float64{"L/min": 1, "mL/min": 1e-3})
	register("molar flow", map[string]float64{"mol/s": 1, "mmol/s": 1e-3, "µmol/s": 1e-6})
	register("current", map[string]float64{"A": 1, "mA": 1e-3, "µA": 1e-6})
	register("voltage", map[string]float64{"V": 1, "mV": 1e-3})
	register("frequency", map[string]float64{"Hz": 1, "kHz": 1e3})
	table[""] = Dimensionless
}

func register(dimension string, factors map[string]float64) {
	for symbol, factor := range factors {
		table[symbol] = Unit{Symbol: symbol, Dimension: dimension, Factor: factor}
	}
}

// Lookup resolves a unit symbol or alias
func Lookup(symbol string) (Unit, bool) {
	if canonical, ok := aliases[symbol]; ok {
		symbol = canonical
	}
	u, ok := table[symbol]
	return u, ok
}

// Convert expresses value, given in from, in to
func Convert(value float64, from, to Unit) (float64, error) {
	if from.Dimension != to.Dimension {
		return 0, fmt.Errorf("cannot convert %s (%s) to %s (%s)", from.Symbol, from.Dimension, to.Symbol, to.Dimension)
	}
	if from.Symbol == to.Symbol {
		return value, nil
	}
	return value * from.Factor / to.Factor, nil
}

// Format renders value with precision decimal places followed by the unit
// symbol. Scientific selects mantissa/exponent notation.
func Format(value float64, u Unit, precision int, scientific bool) string {
	verb := byte('f')
	if scientific {
		verb = 'e'
	}
	s := strconv.FormatFloat(value, verb, precision, 64)
	if u.Symbol == "" {
		return s
	}
	return s + " " + u.Symbol
}
