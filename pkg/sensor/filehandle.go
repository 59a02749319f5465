package sensor

import (
	"io"

	"github.com/pkg/errors"

	"github.com/ericogr/mcp3021-reader/pkg/adc"
	"github.com/ericogr/mcp3021-reader/pkg/config"
)

// i2cSlave is the i2c-dev ioctl that binds a file handle to an address.
const i2cSlave = 0x0703

// FileTransport reads conversions from an i2c-dev file handle already bound
// to the peripheral address.
type FileTransport struct {
	f    io.ReadCloser
	addr config.Address
}

func (t *FileTransport) ReadTransfer() (adc.RawTransfer, error) {
	var raw adc.RawTransfer
	n, err := t.f.Read(raw[:])
	if err != nil {
		return raw, &TransportError{Addr: t.addr, Err: err}
	}
	if n != len(raw) {
		return raw, &TransportError{Addr: t.addr, Err: errors.Errorf("short read: got %d of %d bytes", n, len(raw))}
	}
	return raw, nil
}

func (t *FileTransport) Close() error {
	return t.f.Close()
}
