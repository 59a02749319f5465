package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"

	"github.com/ericogr/mcp3021-reader/pkg/config"
	"github.com/ericogr/mcp3021-reader/pkg/output"
	"github.com/ericogr/mcp3021-reader/pkg/sensor"
)

const (
	// defaults
	DefaultServer     = "tcp://localhost:1883"
	DefaultClientID   = "mcp3021-client"
	DefaultStateTopic = "mcp3021"
	// discovery payload keys/values
	keyName                = "name"
	keyStateTopic          = "state_topic"
	keyUnitOfMeasurement   = "unit_of_measurement"
	keyDeviceClass         = "device_class"
	keyStateClass          = "state_class"
	keyValueTemplate       = "value_template"
	keyJSONAttributesTopic = "json_attributes_topic"
	keyUniqueID            = "unique_id"
	stateClassMeasurement  = "measurement"

	disconnectQuiesceMs = 250
)

// quantity is one Home Assistant entity derived from the state payload.
type quantity struct {
	key         string
	unit        string
	deviceClass string
}

var (
	quantityVoltage     = quantity{key: "voltage", unit: "V", deviceClass: "voltage"}
	quantityTemperature = quantity{key: "temperature", unit: "°C", deviceClass: "temperature"}
)

type MQTTOutput struct {
	client mqtt.Client
	cfg    config.MQTTConfig
	logger *zap.SugaredLogger
}

func NewMQTT(cfg config.MQTTConfig, logger *zap.SugaredLogger) (output.Output, error) {
	cfg = withDefaults(cfg)
	opts := mqtt.NewClientOptions().AddBroker(cfg.Server).SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, errors.Wrap(token.Error(), "mqtt connect")
	}
	return newWithClient(client, cfg, logger), nil
}

func newWithClient(client mqtt.Client, cfg config.MQTTConfig, logger *zap.SugaredLogger) *MQTTOutput {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &MQTTOutput{client: client, cfg: withDefaults(cfg), logger: logger}
}

func withDefaults(cfg config.MQTTConfig) config.MQTTConfig {
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.StateTopic == "" {
		cfg.StateTopic = DefaultStateTopic
	}
	return cfg
}

// Start publishes the retained Home Assistant discovery payload(s), if a
// discovery topic is configured. A "%s" in the topic is replaced by the
// quantity name and yields one entity per quantity.
func (m *MQTTOutput) Start(cfg config.Config) error {
	if m.cfg.DiscoveryTopic == "" {
		return nil
	}
	quantities := []quantity{quantityVoltage}
	if cfg.Thermistor != nil {
		quantities = append(quantities, quantityTemperature)
	}
	if !strings.Contains(m.cfg.DiscoveryTopic, "%s") {
		quantities = quantities[:1]
	}
	for _, q := range quantities {
		topic := m.cfg.DiscoveryTopic
		if strings.Contains(topic, "%s") {
			topic = fmt.Sprintf(topic, q.key)
		}
		payload := discoveryPayload(m.cfg, cfg.Address, q)
		if err := m.publishJSON(topic, true, payload); err != nil {
			m.logger.Warnw("mqtt discovery publish failed", "topic", topic, "error", err)
		}
	}
	return nil
}

func (m *MQTTOutput) Publish(r sensor.Reading) error {
	return m.publishJSON(m.cfg.StateTopic, false, statePayload(r))
}

func (m *MQTTOutput) Close() error {
	if m.client != nil {
		m.client.Disconnect(disconnectQuiesceMs)
	}
	return nil
}

// statePayload carries the same fields as a console line, in volts, ohms
// and degrees Celsius.
func statePayload(r sensor.Reading) map[string]interface{} {
	payload := map[string]interface{}{
		"elapsed": r.Elapsed,
		"adc":     r.Sample,
		"voltage": volts(r.Potential()),
	}
	if t, ok := r.Temperature(); ok {
		payload["resistance"] = r.Thermistor.Resistance
		payload[quantityTemperature.key] = celsius(t)
	}
	return payload
}

func volts(p physic.ElectricPotential) float64 {
	return float64(p) / float64(physic.Volt)
}

func celsius(t physic.Temperature) float64 {
	return float64(t-physic.ZeroCelsius) / float64(physic.Kelvin)
}

// helper: build a human-friendly discovery name for a quantity
func discoveryName(cfg config.MQTTConfig, addr config.Address, q quantity) string {
	name := cfg.DiscoveryName
	if name == "" {
		name = fmt.Sprintf("MCP3021 %s", addr)
	}
	return fmt.Sprintf("%s %s", name, q.key)
}

// helper: build a unique id for discovery
func discoveryUniqueID(cfg config.MQTTConfig, q quantity) string {
	uid := cfg.DiscoveryUniqueID
	if uid == "" {
		uid = cfg.ClientID
	}
	return fmt.Sprintf("%s_%s", uid, q.key)
}

func discoveryPayload(cfg config.MQTTConfig, addr config.Address, q quantity) map[string]interface{} {
	return map[string]interface{}{
		keyName:                discoveryName(cfg, addr, q),
		keyStateTopic:          cfg.StateTopic,
		keyUnitOfMeasurement:   q.unit,
		keyDeviceClass:         q.deviceClass,
		keyStateClass:          stateClassMeasurement,
		keyValueTemplate:       fmt.Sprintf("{{ value_json.%s }}", q.key),
		keyJSONAttributesTopic: cfg.StateTopic,
		keyUniqueID:            discoveryUniqueID(cfg, q),
	}
}

// helper: marshal and publish JSON payload
func (m *MQTTOutput) publishJSON(topic string, retained bool, payload map[string]interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	token := m.client.Publish(topic, 0, retained, b)
	token.Wait()
	return token.Error()
}
