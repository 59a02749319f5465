package sensor

import (
	"io"

	"periph.io/x/conn/v3/i2c"

	"github.com/ericogr/mcp3021-reader/pkg/adc"
	"github.com/ericogr/mcp3021-reader/pkg/config"
)

// StreamTransport reads the conversion as a plain 2-byte I2C read.
type StreamTransport struct {
	dev *i2c.Dev
	bus i2c.Bus
}

func NewStreamTransport(bus i2c.Bus, addr config.Address) *StreamTransport {
	return &StreamTransport{dev: &i2c.Dev{Addr: uint16(addr), Bus: bus}, bus: bus}
}

func (s *StreamTransport) ReadTransfer() (adc.RawTransfer, error) {
	var raw adc.RawTransfer
	if err := s.dev.Tx(nil, raw[:]); err != nil {
		return raw, &TransportError{Addr: config.Address(s.dev.Addr), Err: err}
	}
	return raw, nil
}

func (s *StreamTransport) Close() error {
	return closeBus(s.bus)
}

func closeBus(bus i2c.Bus) error {
	if c, ok := bus.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
