package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ericogr/mcp3021-reader/pkg/thermistor"
)

// MaxAddress is the highest 7-bit I2C address.
const MaxAddress = Address(0x7F)

// ConfigError is a user input problem detected before any bus I/O.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string { return e.Msg }

func (e *ConfigError) Unwrap() error { return e.Err }

// Address is a 7-bit I2C peripheral address.
type Address uint16

func (a Address) String() string {
	return fmt.Sprintf("0x%X", uint16(a))
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	v, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseAddress reads a hex address with or without the 0x prefix.
func ParseAddress(s string) (Address, error) {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "0x") || strings.HasPrefix(t, "0X") {
		t = t[2:]
	}
	v, err := strconv.ParseUint(t, 16, 16)
	if err != nil {
		e := invalidAddress(s)
		e.Err = err
		return 0, e
	}
	if Address(v) > MaxAddress {
		return 0, invalidAddress(s)
	}
	return Address(v), nil
}

func invalidAddress(s string) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf("The I2C address %s is not a valid hex I2C address.", s)}
}

// Resistance is a value in ohms. Its text form may carry a K suffix.
type Resistance float64

func (r Resistance) String() string {
	return strconv.FormatFloat(float64(r), 'f', -1, 64)
}

func (r Resistance) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Resistance) UnmarshalText(text []byte) error {
	v, err := ParseResistance(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ParseResistance accepts "10000", "4700.5", "4.7K" or "10k".
func ParseResistance(s string) (Resistance, error) {
	t := strings.TrimSpace(s)
	mult := 1.0
	if n := len(t); n > 0 && (t[n-1] == 'K' || t[n-1] == 'k') {
		t, mult = t[:n-1], 1000
	}
	if isHexFloat(t) {
		return 0, invalidResistance(s)
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil || !(v > 0) || math.IsInf(v, 0) {
		e := invalidResistance(s)
		e.Err = err
		return 0, e
	}
	return Resistance(v * mult), nil
}

// isHexFloat reports a "0x" mantissa, which ParseFloat would accept.
func isHexFloat(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func invalidResistance(s string) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf("The thermistor base resistance %s is an integer or floating point number greater than 0 or given in the form nK.", s)}
}

// ParseLocation reads the divider position token, 't' or 'b'.
func ParseLocation(s string) (thermistor.Topology, error) {
	switch strings.ToLower(s) {
	case "t":
		return thermistor.Top, nil
	case "b":
		return thermistor.Bottom, nil
	}
	return thermistor.Bottom, invalidLocation()
}

func invalidLocation() *ConfigError {
	return &ConfigError{Msg: "The thermistor location must be either 't' (top - connected to Vcc) or 'b' (bottom - connected to ground)."}
}

// ValidateBValue checks the thermistor B constant.
func ValidateBValue(b int) error {
	if b <= 0 {
		return bValueError()
	}
	return nil
}

func bValueError() *ConfigError {
	return &ConfigError{Msg: "The thermistor B value must be greater than 0."}
}
