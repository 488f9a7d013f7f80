package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		symbol    string
		canonical string
		dimension string
	}{
		{"K", "K", "temperature"},
		{"mK", "mK", "temperature"},
		{"uW", "µW", "power"},
		{"degC", "°C", "celsius"},
		{"mbar", "mbar", "pressure"},
		{"L/min", "L/min", "volume flow"},
		{"mmol/s", "mmol/s", "molar flow"},
		{"", "", "dimensionless"},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			u, ok := Lookup(tt.symbol)
			require.True(t, ok)
			assert.Equal(t, tt.canonical, u.Symbol)
			assert.Equal(t, tt.dimension, u.Dimension)
		})
	}

	_, ok := Lookup("furlong")
	assert.False(t, ok)
}

func TestConvert(t *testing.T) {
	k, _ := Lookup("K")
	mk, _ := Lookup("mK")
	w, _ := Lookup("W")
	uw, _ := Lookup("µW")
	bar, _ := Lookup("bar")
	mbar, _ := Lookup("mbar")

	v, err := Convert(0.00512, k, mk)
	require.NoError(t, err)
	assert.InDelta(t, 5.12, v, 1e-9)

	v, err = Convert(0.00001, w, uw)
	require.NoError(t, err)
	assert.InDelta(t, 10, v, 1e-9)

	v, err = Convert(1, bar, mbar)
	require.NoError(t, err)
	assert.InDelta(t, 1000, v, 1e-9)

	v, err = Convert(3.5, k, k)
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)

	_, err = Convert(1, k, w)
	assert.ErrorContains(t, err, "cannot convert K")
}

func TestFormat(t *testing.T) {
	mk, _ := Lookup("mK")
	mbar, _ := Lookup("mbar")

	assert.Equal(t, "5.12 mK", Format(5.120000000000001, mk, 2, false))
	assert.Equal(t, "1.23e-05 mbar", Format(0.0000123, mbar, 2, true))
	assert.Equal(t, "12", Format(12.4, Dimensionless, 0, false))
	assert.Equal(t, "0.0 mK", Format(0, mk, 1, false))
}
