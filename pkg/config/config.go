package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ericogr/mcp3021-reader/pkg/thermistor"
)

// Transport names accepted in Config.Transport.
const (
	TransportStream     = "stream"
	TransportWord       = "word"
	TransportFileHandle = "filehandle"
	TransportSimulation = "simulation"
)

// Output types accepted in OutputConfig.Type.
const (
	OutputConsole = "console"
	OutputMQTT    = "mqtt"
)

const (
	DefaultBus     = "1"
	DefaultAddress = Address(0x4A)
	DefaultDelay   = 0.5
	DefaultVRef    = 3.3
)

type MQTTConfig struct {
	Server            string `yaml:"server"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
	ClientID          string `yaml:"client_id"`
	StateTopic        string `yaml:"state_topic"`
	DiscoveryTopic    string `yaml:"discovery_topic"`
	DiscoveryName     string `yaml:"discovery_name"`
	DiscoveryUniqueID string `yaml:"discovery_unique_id"`
}

type OutputConfig struct {
	Type string      `yaml:"type"`
	MQTT *MQTTConfig `yaml:"mqtt,omitempty"`
}

// ThermistorConfig enables temperature conversion when present.
type ThermistorConfig struct {
	BaseResistance Resistance          `yaml:"base_resistance"`
	BValue         int                 `yaml:"b_value"`
	Location       thermistor.Topology `yaml:"location"`
}

// Config is built once at startup and then only read.
type Config struct {
	Bus        string            `yaml:"i2c_bus"`
	Address    Address           `yaml:"i2c_address"`
	Transport  string            `yaml:"transport"`
	Delay      float64           `yaml:"delay"`
	VRef       float64           `yaml:"vref"`
	Samples    int               `yaml:"samples"`
	Thermistor *ThermistorConfig `yaml:"thermistor,omitempty"`
	Outputs    []OutputConfig    `yaml:"outputs"`
}

func DefaultConfig() Config {
	return Config{
		Bus:       DefaultBus,
		Address:   DefaultAddress,
		Transport: TransportWord,
		Delay:     DefaultDelay,
		VRef:      DefaultVRef,
		Outputs:   []OutputConfig{{Type: OutputConsole}},
	}
}

// DefaultThermistor returns the 10K/3950 NTC on the bottom of the divider.
func DefaultThermistor() *ThermistorConfig {
	return &ThermistorConfig{
		BaseResistance: thermistor.DefaultBaseResistance,
		BValue:         thermistor.DefaultBValue,
		Location:       thermistor.Bottom,
	}
}

// Load reads a YAML file on top of base. Keys missing from the file keep
// the values of base.
func Load(path string, base Config) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return base, errors.Wrap(err, "read config")
	}
	cfg := base
	if base.Thermistor != nil {
		th := *base.Thermistor
		cfg.Thermistor = &th
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return base, errors.Wrap(err, "parse config")
	}
	cfg.ensureDefaults(base)
	return cfg, nil
}

// ensureDefaults fills what an explicit but partial file section left empty.
func (c *Config) ensureDefaults(base Config) {
	if c.Bus == "" {
		c.Bus = base.Bus
	}
	if c.Transport == "" {
		c.Transport = base.Transport
	}
	if len(c.Outputs) == 0 {
		c.Outputs = base.Outputs
	}
	if c.Thermistor != nil {
		def := DefaultThermistor()
		if c.Thermistor.BaseResistance == 0 {
			c.Thermistor.BaseResistance = def.BaseResistance
		}
		if c.Thermistor.BValue == 0 {
			c.Thermistor.BValue = def.BValue
		}
	}
}

// Interval is the delay between two samples.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Delay * float64(time.Second))
}

// Model returns the thermistor model, if temperature conversion is enabled.
func (c Config) Model() (thermistor.Model, bool) {
	if c.Thermistor == nil {
		return thermistor.Model{}, false
	}
	th := c.Thermistor
	return thermistor.New(th.Location, float64(th.BaseResistance), th.BValue), true
}

// Validate reports the first invalid setting as a *ConfigError.
func (c Config) Validate() error {
	if c.Address > MaxAddress {
		return invalidAddress(c.Address.String())
	}
	if !(c.VRef > 0) || math.IsInf(c.VRef, 0) {
		return &ConfigError{Msg: "The reference voltage must be greater than 0."}
	}
	if !(c.Delay > 0) || math.IsInf(c.Delay, 0) {
		return &ConfigError{Msg: "The delay must be greater than 0."}
	}
	if c.Samples < 0 {
		return &ConfigError{Msg: "The number of samples must not be negative."}
	}
	switch c.Transport {
	case TransportStream, TransportWord, TransportFileHandle, TransportSimulation:
	default:
		return &ConfigError{Msg: fmt.Sprintf("The transport %q is not one of %s.", c.Transport,
			strings.Join([]string{TransportStream, TransportWord, TransportFileHandle, TransportSimulation}, ", "))}
	}
	if m, ok := c.Model(); ok {
		if err := m.Validate(); err != nil {
			return thermistorError(c.Thermistor, err)
		}
	}
	for _, o := range c.Outputs {
		switch strings.ToLower(o.Type) {
		case OutputConsole:
		case OutputMQTT:
			if o.MQTT == nil || o.MQTT.Server == "" {
				return &ConfigError{Msg: "The mqtt output needs a server (tcp://host:port)."}
			}
		default:
			return &ConfigError{Msg: fmt.Sprintf("The output %q is not one of console, mqtt.", o.Type)}
		}
	}
	return nil
}

// thermistorError turns a model parameter error into the message of the
// matching command line option.
func thermistorError(th *ThermistorConfig, err error) *ConfigError {
	var ce *ConfigError
	switch {
	case errors.Is(err, thermistor.ErrBValue):
		ce = bValueError()
	case errors.Is(err, thermistor.ErrTopology):
		ce = invalidLocation()
	default:
		ce = invalidResistance(th.BaseResistance.String())
	}
	ce.Err = err
	return ce
}
