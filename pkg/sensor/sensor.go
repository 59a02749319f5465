package sensor

import (
	"fmt"

	"periph.io/x/conn/v3/physic"

	"github.com/ericogr/mcp3021-reader/pkg/adc"
	"github.com/ericogr/mcp3021-reader/pkg/config"
	"github.com/ericogr/mcp3021-reader/pkg/thermistor"
)

// Reading is the record produced by one sampling tick.
type Reading struct {
	Elapsed    float64
	Raw        adc.RawTransfer
	Sample     adc.Sample
	Voltage    float64
	Thermistor *thermistor.Reading
}

// Potential returns the voltage as a periph unit.
func (r Reading) Potential() physic.ElectricPotential {
	return physic.ElectricPotential(r.Voltage * float64(physic.Volt))
}

// Temperature returns the thermistor temperature, if there is one.
func (r Reading) Temperature() (physic.Temperature, bool) {
	if r.Thermistor == nil {
		return 0, false
	}
	return physic.ZeroCelsius + physic.Temperature(r.Thermistor.Celsius*float64(physic.Kelvin)), true
}

// Transport hands out 2-byte MCP3021 transfers in stream order, whatever
// access pattern it uses on the bus.
type Transport interface {
	ReadTransfer() (adc.RawTransfer, error)
	Close() error
}

// TransportError is a failed read from the peripheral.
type TransportError struct {
	Addr config.Address
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("There is no I2C device present at %s.", e.Addr)
}

func (e *TransportError) Unwrap() error { return e.Err }
