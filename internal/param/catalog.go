package param

// DefaultDepth is the number of readings kept per parameter in the built-in catalog
const DefaultDepth = 10

// Categories used by the built-in catalog
const (
	CategoryTemperature = "Temperature"
	CategoryPressure    = "Pressure"
	CategoryCooling     = "Cooling water"
	CategoryCompressor  = "Compressor"
	CategoryFlow        = "Flow"
	CategoryHeater      = "Heater"
)

// Default returns the catalog of the dilution fridge's standard log set
func Default() []Parameter {
	num := func(name, prefix string, col int, category string, codec *Numeric) Parameter {
		return Parameter{
			Name:       name,
			FilePrefix: prefix,
			Locator:    Column(col),
			Category:   category,
			Depth:      DefaultDepth,
			Codec:      codec,
		}
	}
	mK := []ScaleRule{{Unit: "mK", MinExp: -3, MaxExp: -1}}

	return []Parameter{
		// flange temperatures
		num("MXC flange", "CH6 T ", 2, CategoryTemperature, &Numeric{Unit: "K", Precision: 2, Scales: mK}),
		num("Still flange", "CH5 T ", 2, CategoryTemperature, &Numeric{Unit: "K", Precision: 2, Scales: mK}),
		num("4K flange", "CH2 T ", 2, CategoryTemperature, &Numeric{Unit: "K", Precision: 2}),
		num("50K flange", "CH1 T ", 2, CategoryTemperature, &Numeric{Unit: "K", Precision: 2}),

		// maxigauge
		num("P1 OVC", "maxigauge ", 5, CategoryPressure, &Numeric{Unit: "mbar", Precision: 2, Scientific: true}),
		num("P2 still", "maxigauge ", 11, CategoryPressure, &Numeric{Unit: "mbar", Precision: 2, Scientific: true}),
		num("P3 cond", "maxigauge ", 17, CategoryPressure, &Numeric{Unit: "mbar", Precision: 0}),
		num("P4 cond", "maxigauge ", 23, CategoryPressure, &Numeric{Unit: "mbar", Precision: 0}),
		num("P5 tank", "maxigauge ", 29, CategoryPressure, &Numeric{Unit: "mbar", Precision: 0}),
		num("P6 service", "maxigauge ", 35, CategoryPressure, &Numeric{Unit: "mbar", Precision: 2}),

		// sensor board
		num("Air pres", "ESP32 ", 3, CategoryPressure, &Numeric{Unit: "bar", Precision: 2, Bounds: &Bounds{Min: 7, Max: 10}}),
		num("Water flow", "ESP32 ", 2, CategoryCooling, &Numeric{Unit: "L/min", Precision: 0, Bounds: &Bounds{Min: 10, Max: 25}}),

		// compressor status
		num("Water in", "Status_", 27, CategoryCooling, &Numeric{Unit: "°C", Precision: 1, Bounds: &Bounds{Min: 13, Max: 23}}),
		num("Water out", "Status_", 29, CategoryCooling, &Numeric{Unit: "°C", Precision: 1, Bounds: &Bounds{Min: 13, Max: 33}}),
		num("Oil temp", "Status_", 31, CategoryCompressor, &Numeric{Unit: "°C", Precision: 1}),
		num("He temp", "Status_", 33, CategoryCompressor, &Numeric{Unit: "°C", Precision: 1}),
		num("He high pres", "Status_", 41, CategoryCompressor, &Numeric{Unit: "psi", Precision: 0}),
		num("He low pres", "Status_", 37, CategoryCompressor, &Numeric{Unit: "psi", Precision: 0}),
		num("Comp current", "Status_", 45, CategoryCompressor, &Numeric{Unit: "A", Precision: 1}),

		num("He flow", "Flowmeter ", 2, CategoryFlow, &Numeric{Unit: "mmol/s", Precision: 2}),

		num("MXC heater", "Heaters ", 3, CategoryHeater, &Numeric{Unit: "W", Precision: 1, Scales: []ScaleRule{{Unit: "µW", MinExp: -8, MaxExp: -4}}}),
		num("Still heater", "Heaters ", 5, CategoryHeater, &Numeric{Unit: "W", Precision: 1, Scales: []ScaleRule{{Unit: "mW", MinExp: -5, MaxExp: -1}}}),
	}
}
