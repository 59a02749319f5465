//go:build !linux

package sensor

import (
	"github.com/pkg/errors"

	"github.com/ericogr/mcp3021-reader/pkg/config"
)

// OpenFileHandle needs the Linux i2c-dev interface.
func OpenFileHandle(path string, addr config.Address) (*FileTransport, error) {
	return nil, errors.Wrapf(ErrDeviceNotFound, "open %s: i2c-dev file handles are only available on linux", path)
}
