package sensor

import (
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/ericogr/mcp3021-reader/pkg/config"
)

// Open returns the transport selected by cfg.Transport, bound to cfg.Address
// on cfg.Bus.
func Open(cfg config.Config) (Transport, error) {
	switch cfg.Transport {
	case config.TransportSimulation:
		seed := time.Now().UnixNano()
		if m, ok := cfg.Model(); ok {
			return NewFakeThermistor(seed, m, cfg.VRef), nil
		}
		return NewFakeSensor(seed), nil
	case config.TransportFileHandle:
		t, err := OpenFileHandle(DevicePath(cfg.Bus), cfg.Address)
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.TransportStream:
		bus, err := openBus(cfg.Bus)
		if err != nil {
			return nil, err
		}
		return NewStreamTransport(bus, cfg.Address), nil
	case config.TransportWord:
		bus, err := openBus(cfg.Bus)
		if err != nil {
			return nil, err
		}
		return NewWordTransport(bus, cfg.Address), nil
	}
	return nil, errors.Errorf("unknown transport %q", cfg.Transport)
}

func openBus(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "host init")
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, classifyOpenError("open i2c bus "+name, err)
	}
	return bus, nil
}
