package sensor

import (
	"encoding/binary"

	"periph.io/x/conn/v3/i2c"

	"github.com/ericogr/mcp3021-reader/pkg/adc"
	"github.com/ericogr/mcp3021-reader/pkg/config"
)

// wordCommand is the command byte sent before an SMBus word read. The
// MCP3021 has no registers, so any value returns the conversion.
const wordCommand = 0x00

// WordTransport reads the conversion with an SMBus "read word data"
// transaction and undoes the little-endian packing of the word.
type WordTransport struct {
	dev *i2c.Dev
	bus i2c.Bus
}

func NewWordTransport(bus i2c.Bus, addr config.Address) *WordTransport {
	return &WordTransport{dev: &i2c.Dev{Addr: uint16(addr), Bus: bus}, bus: bus}
}

func (w *WordTransport) ReadTransfer() (adc.RawTransfer, error) {
	word, err := w.readWord(wordCommand)
	if err != nil {
		return adc.RawTransfer{}, &TransportError{Addr: config.Address(w.dev.Addr), Err: err}
	}
	return adc.TransferFromWord(word), nil
}

func (w *WordTransport) readWord(cmd byte) (uint16, error) {
	var b [2]byte
	if err := w.dev.Tx([]byte{cmd}, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func (w *WordTransport) Close() error {
	return closeBus(w.bus)
}
