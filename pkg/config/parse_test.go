package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericogr/mcp3021-reader/pkg/thermistor"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in   string
		want Address
		ok   bool
	}{
		{"0x4A", 0x4A, true},
		{"0x4a", 0x4A, true},
		{"4A", 0x4A, true},
		{"0X48", 0x48, true},
		{" 0x4d ", 0x4D, true},
		{"0x00", 0x00, true},
		{"7f", 0x7F, true},
		{"zz", 0, false},
		{"", 0, false},
		{"0x", 0, false},
		{"0x80", 0, false},
		{"-1", 0, false},
		{"0x4A1", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseAddress(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("ParseAddress(%q) ok=%v err=%v", tt.in, tt.ok, err)
		}
		if !tt.ok {
			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, "The I2C address "+tt.in+" is not a valid hex I2C address.", ce.Error())
			continue
		}
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestAddressString(t *testing.T) {
	assert.Equal(t, "0x4A", Address(0x4A).String())
	assert.Equal(t, "0x5", Address(0x05).String())
	assert.Equal(t, "0x7F", Address(0x7F).String())
}

func TestParseResistance(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"4700", 4700, true},
		{"4.7K", 4700, true},
		{"4.7k", 4700, true},
		{"10K", 10000, true},
		{"10000", 10000, true},
		{"100.5", 100.5, true},
		{"K", 0, false},
		{"", 0, false},
		{"ten", 0, false},
		{"4.7M", 0, false},
		{"0", 0, false},
		{"-10K", 0, false},
		{"0x1p4", 0, false},
		{"0X10", 0, false},
		{"0x1p4K", 0, false},
		{"1e4", 10000, true},
		{"0.5K", 500, true},
	}
	for _, tt := range tests {
		got, err := ParseResistance(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("ParseResistance(%q) ok=%v err=%v", tt.in, tt.ok, err)
		}
		if !tt.ok {
			assert.Equal(t, "The thermistor base resistance "+tt.in+" is an integer or floating point number greater than 0 or given in the form nK.", err.Error())
			continue
		}
		assert.InDelta(t, tt.want, float64(got), 1e-9, tt.in)
	}
}

func TestParseLocation(t *testing.T) {
	for in, want := range map[string]thermistor.Topology{"t": thermistor.Top, "T": thermistor.Top, "b": thermistor.Bottom, "B": thermistor.Bottom} {
		got, err := ParseLocation(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "x", "top", "bottom"} {
		_, err := ParseLocation(in)
		assert.Error(t, err, in)
	}
}

func TestValidateBValue(t *testing.T) {
	assert.NoError(t, ValidateBValue(3950))
	assert.EqualError(t, ValidateBValue(0), "The thermistor B value must be greater than 0.")
	assert.EqualError(t, ValidateBValue(-5), "The thermistor B value must be greater than 0.")
}
