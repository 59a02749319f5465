// Package thermistor converts the voltage across an NTC thermistor divider
// into a temperature using the Beta (B-parameter) equation:
//
//	1/T = 1/T0 + ln(Rt/R0)/B
package thermistor

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// CompanionResistance is the fixed resistor paired with the thermistor.
	CompanionResistance = 10000.0
	// DefaultBaseResistance is R0, the thermistor resistance at T0.
	DefaultBaseResistance = 10000.0
	// DefaultBValue is the B constant of the common 10K NTC parts.
	DefaultBValue = 3950
	// ReferenceTemp is T0 in Kelvin.
	ReferenceTemp = 298.15

	kelvinOffset = 273.15
)

// Topology says where the thermistor sits in the divider.
type Topology int

const (
	// Bottom places the thermistor between the ADC input and ground.
	Bottom Topology = iota
	// Top places the thermistor between Vcc and the ADC input.
	Top
)

func (t Topology) String() string {
	if t == Top {
		return "top"
	}
	return "bottom"
}

// MarshalText emits the single-letter location token.
func (t Topology) MarshalText() ([]byte, error) {
	if t == Top {
		return []byte("t"), nil
	}
	return []byte("b"), nil
}

// UnmarshalText accepts "t"/"b" (any case) and the long forms.
func (t *Topology) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "t", "top":
		*t = Top
	case "b", "bottom":
		*t = Bottom
	default:
		return fmt.Errorf("thermistor: unknown location %q", string(text))
	}
	return nil
}

// DomainError reports inputs for which the divider or the Beta equation has
// no finite answer.
type DomainError struct {
	Voltage    float64
	VRef       float64
	Resistance float64
	Reason     string
}

func (e *DomainError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("The voltage %.2fV is outside the thermistor divider range (0, %g)V.", e.Voltage, e.VRef)
}

// Reading is the thermistor part of one sample.
type Reading struct {
	Resistance float64
	Celsius    float64
}

// Model holds the divider and thermistor parameters.
type Model struct {
	Topology            Topology
	CompanionResistance float64
	BaseResistance      float64
	BValue              float64
	ReferenceTemp       float64
}

// New returns a model with the fixed companion resistor and T0 = 25°C.
func New(topology Topology, baseResistance float64, bValue int) Model {
	return Model{
		Topology:            topology,
		CompanionResistance: CompanionResistance,
		BaseResistance:      baseResistance,
		BValue:              float64(bValue),
		ReferenceTemp:       ReferenceTemp,
	}
}

// Parameter errors returned by Validate.
var (
	ErrTopology            = errors.New("thermistor: unknown divider topology")
	ErrCompanionResistance = errors.New("thermistor: companion resistance must be > 0")
	ErrBaseResistance      = errors.New("thermistor: base resistance must be > 0")
	ErrBValue              = errors.New("thermistor: B value must be > 0")
	ErrReferenceTemp       = errors.New("thermistor: reference temperature must be > 0K")
)

// Validate checks the topology and that every parameter is strictly
// positive and finite.
func (m Model) Validate() error {
	positive := func(v float64) bool { return v > 0 && !math.IsInf(v, 0) }
	switch {
	case m.Topology != Bottom && m.Topology != Top:
		return fmt.Errorf("%w: %d", ErrTopology, int(m.Topology))
	case !positive(m.CompanionResistance):
		return fmt.Errorf("%w, got %g", ErrCompanionResistance, m.CompanionResistance)
	case !positive(m.BaseResistance):
		return fmt.Errorf("%w, got %g", ErrBaseResistance, m.BaseResistance)
	case !positive(m.BValue):
		return fmt.Errorf("%w, got %g", ErrBValue, m.BValue)
	case !positive(m.ReferenceTemp):
		return fmt.Errorf("%w, got %g", ErrReferenceTemp, m.ReferenceTemp)
	}
	return nil
}

// Resistance derives the thermistor resistance from the divider voltage.
// The voltage must lie strictly between the rails.
func (m Model) Resistance(voltage, vref float64) (float64, error) {
	if !(voltage > 0) || !(voltage < vref) {
		return 0, &DomainError{Voltage: voltage, VRef: vref}
	}
	ratio := vref/voltage - 1
	if m.Topology == Top {
		return m.CompanionResistance * ratio, nil
	}
	return m.CompanionResistance / ratio, nil
}

// TemperatureFromResistance applies the Beta equation and returns Celsius.
func (m Model) TemperatureFromResistance(rt float64) (float64, error) {
	if !(rt > 0) || math.IsInf(rt, 0) {
		return 0, &DomainError{Resistance: rt, Reason: fmt.Sprintf("thermistor: resistance %g is not a positive finite value", rt)}
	}
	inv := 1/m.ReferenceTemp + math.Log(rt/m.BaseResistance)/m.BValue
	if !(inv > 0) || math.IsInf(inv, 0) {
		return 0, &DomainError{Resistance: rt, Reason: fmt.Sprintf("thermistor: resistance %g is beyond the B-parameter model", rt)}
	}
	return 1/inv - kelvinOffset, nil
}

// Temperature runs both conversion steps for a divider voltage.
func (m Model) Temperature(voltage, vref float64) (Reading, error) {
	rt, err := m.Resistance(voltage, vref)
	if err != nil {
		return Reading{}, err
	}
	c, err := m.TemperatureFromResistance(rt)
	if err != nil {
		if de, ok := err.(*DomainError); ok {
			de.Voltage, de.VRef = voltage, vref
		}
		return Reading{}, err
	}
	return Reading{Resistance: rt, Celsius: c}, nil
}

// ResistanceAt inverts the Beta equation.
func (m Model) ResistanceAt(celsius float64) float64 {
	t := celsius + kelvinOffset
	return m.BaseResistance * math.Exp(m.BValue*(1/t-1/m.ReferenceTemp))
}

// VoltageAt is the divider voltage the ADC would see for a resistance.
func (m Model) VoltageAt(rt, vref float64) float64 {
	if m.Topology == Top {
		return vref * m.CompanionResistance / (rt + m.CompanionResistance)
	}
	return vref * rt / (rt + m.CompanionResistance)
}
