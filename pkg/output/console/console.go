package console

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ericogr/mcp3021-reader/pkg/config"
	"github.com/ericogr/mcp3021-reader/pkg/output"
	"github.com/ericogr/mcp3021-reader/pkg/sensor"
)

type ConsoleOutput struct {
	w io.Writer
}

func NewConsole(w io.Writer) output.Output { return &ConsoleOutput{w: w} }

// Start prints the banner and the column header.
func (c *ConsoleOutput) Start(cfg config.Config) error {
	var b strings.Builder
	fmt.Fprintf(&b, "I2C address %s, Vref %sV", cfg.Address, formatFloat(cfg.VRef))
	if th := cfg.Thermistor; th != nil {
		fmt.Fprintf(&b, ", Thermistor on %s\n", th.Location)
		fmt.Fprintf(&b, "Thermistor base resistance %s Ohms, B value %d\n", th.BaseResistance, th.BValue)
		b.WriteString("Time\tADC\tVoltage\tResist\tTemperature\n")
	} else {
		b.WriteString("\nTime\tADC\tVoltage\n")
	}
	_, err := io.WriteString(c.w, b.String())
	return err
}

func (c *ConsoleOutput) Publish(r sensor.Reading) error {
	line := fmt.Sprintf("%3.1f\t%d\t%.2fV", r.Elapsed, r.Sample, r.Voltage)
	if th := r.Thermistor; th != nil {
		line += fmt.Sprintf("\t%.0f\t%.1fC", th.Resistance, th.Celsius)
	}
	_, err := fmt.Fprintln(c.w, line)
	return err
}

func (c *ConsoleOutput) Close() error { return nil }

// formatFloat always shows a decimal part, so 5 prints as "5.0".
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
